package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ukydev/freight-dispatch/internal/apperr"
	"github.com/ukydev/freight-dispatch/internal/auth"
	"github.com/ukydev/freight-dispatch/internal/middleware"
	"github.com/ukydev/freight-dispatch/internal/models"
)

// MockUserCollection is a mock implementation of UserCollection
type MockUserCollection struct {
	mock.Mock
}

func (m *MockUserCollection) InsertUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserCollection) UpdateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestAuthService(t *testing.T) *auth.Service {
	t.Helper()
	svc, err := auth.NewService("handler-secret", time.Hour)
	require.NoError(t, err)
	return svc
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func TestAuthHandler_Login(t *testing.T) {
	authService := newTestAuthService(t)
	hash, err := authService.HashPassword("correct-horse")
	require.NoError(t, err)

	activeUser := &models.User{
		ID:           primitive.NewObjectID(),
		Username:     "despacho",
		PasswordHash: hash,
		Role:         models.RoleUser,
		IsActive:     true,
	}
	inactiveUser := &models.User{
		ID:           primitive.NewObjectID(),
		Username:     "antiguo",
		PasswordHash: hash,
		Role:         models.RoleUser,
	}

	tests := []struct {
		name           string
		body           any
		setupMock      func(*MockUserCollection)
		expectedStatus int
	}{
		{
			name: "successful login",
			body: models.LoginRequest{Username: "despacho", Password: "correct-horse"},
			setupMock: func(m *MockUserCollection) {
				m.On("FindUserByUsername", mock.Anything, "despacho").Return(activeUser, nil)
				m.On("UpdateLastLogin", mock.Anything, activeUser.ID.Hex()).Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "last login failure is ignored",
			body: models.LoginRequest{Username: "despacho", Password: "correct-horse"},
			setupMock: func(m *MockUserCollection) {
				m.On("FindUserByUsername", mock.Anything, "despacho").Return(activeUser, nil)
				m.On("UpdateLastLogin", mock.Anything, activeUser.ID.Hex()).Return(errors.New("write failed"))
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "wrong password",
			body: models.LoginRequest{Username: "despacho", Password: "wrong"},
			setupMock: func(m *MockUserCollection) {
				m.On("FindUserByUsername", mock.Anything, "despacho").Return(activeUser, nil)
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "unknown user",
			body: models.LoginRequest{Username: "nadie", Password: "correct-horse"},
			setupMock: func(m *MockUserCollection) {
				m.On("FindUserByUsername", mock.Anything, "nadie").Return(nil, apperr.E(apperr.NotFound, "user not found"))
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "inactive user",
			body: models.LoginRequest{Username: "antiguo", Password: "correct-horse"},
			setupMock: func(m *MockUserCollection) {
				m.On("FindUserByUsername", mock.Anything, "antiguo").Return(inactiveUser, nil)
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing password",
			body:           map[string]string{"username": "despacho"},
			setupMock:      func(m *MockUserCollection) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "store failure",
			body: models.LoginRequest{Username: "despacho", Password: "correct-horse"},
			setupMock: func(m *MockUserCollection) {
				m.On("FindUserByUsername", mock.Anything, "despacho").Return(nil, errors.New("connection reset"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserCollection)
			tt.setupMock(users)
			handler := NewAuthHandler(authService, users)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", jsonBody(t, tt.body))
			w := httptest.NewRecorder()
			handler.Login(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var resp models.LoginResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Token)
				assert.NotEmpty(t, resp.RefreshToken)
				assert.Equal(t, "despacho", resp.User.Username)
				assert.NotContains(t, w.Body.String(), "password_hash")
			}
			users.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	authService := newTestAuthService(t)
	hash, err := authService.HashPassword("old-password")
	require.NoError(t, err)
	user := &models.User{ID: primitive.NewObjectID(), Username: "despacho", PasswordHash: hash, Role: models.RoleUser, IsActive: true}
	claims := &models.Claims{UserID: user.ID.Hex(), Username: user.Username, Role: user.Role}

	t.Run("success", func(t *testing.T) {
		users := new(MockUserCollection)
		users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(user, nil)
		users.On("UpdateUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return authService.CheckPassword("new-password", u.PasswordHash)
		})).Return(nil)
		handler := NewAuthHandler(authService, users)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/password", jsonBody(t, changePasswordRequest{
			CurrentPassword: "old-password",
			NewPassword:     "new-password",
		}))
		req = req.WithContext(middleware.WithUser(req.Context(), claims))
		w := httptest.NewRecorder()
		handler.ChangePassword(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		users.AssertExpectations(t)
	})

	t.Run("wrong current password", func(t *testing.T) {
		users := new(MockUserCollection)
		users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(user, nil)
		handler := NewAuthHandler(authService, users)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/password", jsonBody(t, changePasswordRequest{
			CurrentPassword: "guess",
			NewPassword:     "new-password",
		}))
		req = req.WithContext(middleware.WithUser(req.Context(), claims))
		w := httptest.NewRecorder()
		handler.ChangePassword(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		users.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything)
	})

	t.Run("short new password", func(t *testing.T) {
		handler := NewAuthHandler(authService, new(MockUserCollection))
		req := httptest.NewRequest(http.MethodPost, "/api/auth/password", jsonBody(t, changePasswordRequest{
			CurrentPassword: "old-password",
			NewPassword:     "short",
		}))
		req = req.WithContext(middleware.WithUser(req.Context(), claims))
		w := httptest.NewRecorder()
		handler.ChangePassword(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no user context", func(t *testing.T) {
		handler := NewAuthHandler(authService, new(MockUserCollection))
		w := httptest.NewRecorder()
		handler.ChangePassword(w, httptest.NewRequest(http.MethodPost, "/api/auth/password", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthHandler_CreateUser(t *testing.T) {
	authService := newTestAuthService(t)

	t.Run("creates regular user", func(t *testing.T) {
		users := new(MockUserCollection)
		users.On("InsertUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Username == "facturacion" && u.Role == models.RoleUser && u.PasswordHash != ""
		})).Return(nil)
		handler := NewAuthHandler(authService, users)

		req := httptest.NewRequest(http.MethodPost, "/api/users", jsonBody(t, models.CreateUserRequest{
			Username:    "facturacion",
			Password:    "segura-123",
			Permissions: models.Permissions{models.ResourceWorkOrders: {models.ActionView, models.ActionEdit}},
		}))
		w := httptest.NewRecorder()
		handler.CreateUser(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		users.AssertExpectations(t)
	})

	t.Run("duplicate username", func(t *testing.T) {
		users := new(MockUserCollection)
		users.On("InsertUser", mock.Anything, mock.Anything).Return(apperr.E(apperr.Conflict, "username exists"))
		handler := NewAuthHandler(authService, users)

		req := httptest.NewRequest(http.MethodPost, "/api/users", jsonBody(t, models.CreateUserRequest{
			Username: "facturacion",
			Password: "segura-123",
		}))
		w := httptest.NewRecorder()
		handler.CreateUser(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("invalid action", func(t *testing.T) {
		handler := NewAuthHandler(authService, new(MockUserCollection))
		req := httptest.NewRequest(http.MethodPost, "/api/users", jsonBody(t, models.CreateUserRequest{
			Username:    "facturacion",
			Password:    "segura-123",
			Permissions: models.Permissions{models.ResourceTrips: {"approve"}},
		}))
		w := httptest.NewRecorder()
		handler.CreateUser(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
