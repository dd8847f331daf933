package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// PermissionAction is an operation on a resource path
type PermissionAction string

const (
	ActionView   PermissionAction = "view"
	ActionCreate PermissionAction = "create"
	ActionEdit   PermissionAction = "edit"
	ActionDelete PermissionAction = "delete"
)

// Resource paths that permissions are granted on
const (
	ResourceTrips      = "/trips"
	ResourceDrivers    = "/drivers"
	ResourceTrucks     = "/trucks"
	ResourceTrailers   = "/trailers"
	ResourceClients    = "/clients"
	ResourceDMTIs      = "/dmtis"
	ResourceWorkOrders = "/work-orders"
	ResourceReports    = "/reports"
)

// Permissions maps a resource path to the actions granted on it
type Permissions map[string][]PermissionAction

// User represents a user in the system
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	Permissions  Permissions        `bson:"permissions" json:"permissions"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
	LastLogin    *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CreateUserRequest is used by administrators to add users. New users always
// get the user role.
type CreateUserRequest struct {
	Username    string      `json:"username" validate:"required,min=3,max=50"`
	Password    string      `json:"password" validate:"required,min=8"`
	Permissions Permissions `json:"permissions"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID      string      `json:"user_id"`
	Username    string      `json:"username"`
	Role        Role        `json:"role"`
	Permissions Permissions `json:"permissions"`
	Exp         int64       `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// IsValidAction checks if an action is valid
func IsValidAction(action PermissionAction) bool {
	switch action {
	case ActionView, ActionCreate, ActionEdit, ActionDelete:
		return true
	default:
		return false
	}
}

// Allows reports whether the permission set grants action on resource.
// Admins pass every check.
func Allows(role Role, perms Permissions, resource string, action PermissionAction) bool {
	if role == RoleAdmin {
		return true
	}
	for _, granted := range perms[resource] {
		if granted == action {
			return true
		}
	}
	return false
}

// HasPermission checks if a user may perform action on resource
func (u *User) HasPermission(resource string, action PermissionAction) bool {
	return Allows(u.Role, u.Permissions, resource, action)
}

// HasPermission checks the permissions carried by a token
func (c *Claims) HasPermission(resource string, action PermissionAction) bool {
	return Allows(c.Role, c.Permissions, resource, action)
}

func (u *User) Key() string { return objectIDKey(u.ID) }

func (u *User) SetKey(key string) error {
	id, err := parseObjectIDKey(key)
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}
