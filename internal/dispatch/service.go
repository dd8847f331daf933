// Package dispatch implements the trip save workflow: validation, the
// completion gate, surcharge recomputation, DMTI side effects, invoicing and
// soft deletion.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/freight-dispatch/internal/apperr"
	"github.com/ukydev/freight-dispatch/internal/db"
	"github.com/ukydev/freight-dispatch/internal/engine"
	"github.com/ukydev/freight-dispatch/internal/models"
	"github.com/ukydev/freight-dispatch/internal/notify"
	"github.com/ukydev/freight-dispatch/internal/sequence"
)

// Service owns every write to the trip collection.
type Service struct {
	store    *db.Store
	orders   *sequence.ServiceOrderGenerator
	notifier notify.Publisher
	now      func() time.Time
	newID    func() string

	dmtiMu sync.Mutex // serializes correlative issuance
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the uuid assignment id generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates the trip workflow. A nil notifier discards notices.
func NewService(store *db.Store, orders *sequence.ServiceOrderGenerator, notifier notify.Publisher, opts ...Option) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	s := &Service{
		store:    store,
		orders:   orders,
		notifier: notifier,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and stores a new trip. For a DMTI process one declaration
// is filed per container before the trip is stored.
func (s *Service) Create(ctx context.Context, d TripDraft) (*models.Trip, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	if d.ProcessType == ProcessDMTI {
		if err := d.checkDMTI(); err != nil {
			return nil, err
		}
		// DMTI trips always carry containers
		d.CargoType = models.CargoContainer
	}

	now := s.now().UTC()
	trip := &models.Trip{CreatedAt: now}
	if err := s.apply(trip, d); err != nil {
		return nil, err
	}

	if d.ProcessType == ProcessDMTI {
		if err := s.applyClientDMTIFee(ctx, trip); err != nil {
			return nil, err
		}
	}
	if err := s.insertNew(ctx, trip, d, now); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"trip_id":       trip.Key(),
		"service_order": trip.ServiceOrder,
		"assignments":   len(trip.Assignments),
		"process":       d.ProcessType,
	}).Info("Trip created")
	s.publish(ctx, trip, notify.ActionCreated, "", nil)
	return trip, nil
}

// insertNew files the DMTI declarations for d and stores trip. Every
// correlative is computed before anything is written, and the service order is
// allocated before the first declaration.
func (s *Service) insertNew(ctx context.Context, trip *models.Trip, d TripDraft, now time.Time) error {
	var dmtis []models.DMTI
	if d.ProcessType == ProcessDMTI {
		// correlatives depend on the stored records
		s.dmtiMu.Lock()
		defer s.dmtiMu.Unlock()
		var err error
		if dmtis, err = s.prepareDMTIs(ctx, d, now); err != nil {
			return err
		}
	}

	order, err := s.orders.Next(ctx)
	if err != nil {
		return fmt.Errorf("allocate service order: %w", err)
	}
	trip.ServiceOrder = order
	trip.UpdatedAt = now

	if err := s.fileDMTIs(ctx, dmtis); err != nil {
		return err
	}
	if err := s.store.Trips.InsertTrip(ctx, trip); err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

// Update replaces the editable state of a trip. Completed and deleted trips
// cannot be edited.
func (s *Service) Update(ctx context.Context, id string, d TripDraft, expectedVersion int) (*models.Trip, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	trip, err := s.editableTrip(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(trip, d); err != nil {
		return nil, err
	}
	trip.UpdatedAt = s.now().UTC()

	if err := s.store.Trips.UpdateTrip(ctx, trip, expectedVersion); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"trip_id": id,
		"status":  trip.Status,
		"version": trip.Version,
	}).Info("Trip updated")
	s.publish(ctx, trip, notify.ActionUpdated, "", nil)
	return trip, nil
}

// AppendEvent adds an event to one assignment's log and recomputes the trip
// surcharges.
func (s *Service) AppendEvent(ctx context.Context, tripID, assignmentID string, e models.Event, expectedVersion int) (*models.Trip, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	trip, err := s.editableTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	a := trip.FindAssignment(assignmentID)
	if a == nil {
		return nil, apperr.E(apperr.NotFound, "assignment %s not found in trip %s", assignmentID, tripID)
	}
	e.Timestamp = e.Timestamp.UTC()
	a.Events = append(a.Events, e)
	a.SortEvents()

	applySurcharges(trip)
	trip.UpdatedAt = s.now().UTC()

	if err := s.store.Trips.UpdateTrip(ctx, trip, expectedVersion); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"trip_id":       tripID,
		"assignment_id": assignmentID,
		"event":         e.Type,
	}).Info("Trip event recorded")
	s.publish(ctx, trip, notify.ActionEvent, assignmentID, &e)
	return trip, nil
}

// MarkInvoiced moves a completed trip to the invoiced state.
func (s *Service) MarkInvoiced(ctx context.Context, id string) (*models.Trip, error) {
	trip, err := s.store.Trips.FindTripByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !trip.IsCompleted() {
		return nil, apperr.E(apperr.Validation, "only completed trips can be invoiced")
	}
	if trip.EffectiveInvoiceStatus() == models.InvoiceInvoiced {
		return trip, nil
	}

	trip.InvoiceStatus = models.InvoiceInvoiced
	trip.UpdatedAt = s.now().UTC()
	if err := s.store.Trips.UpdateTrip(ctx, trip, trip.Version); err != nil {
		return nil, err
	}

	log.WithField("trip_id", id).Info("Trip invoiced")
	s.publish(ctx, trip, notify.ActionInvoiced, "", nil)
	return trip, nil
}

// Delete soft-deletes a trip.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Trips.SoftDeleteTrip(ctx, id); err != nil {
		return err
	}
	log.WithField("trip_id", id).Info("Trip deleted")
	s.publishStored(ctx, id, notify.ActionDeleted)
	return nil
}

// Recover restores a soft-deleted trip.
func (s *Service) Recover(ctx context.Context, id string) error {
	if err := s.store.Trips.RecoverTrip(ctx, id); err != nil {
		return err
	}
	log.WithField("trip_id", id).Info("Trip recovered")
	s.publishStored(ctx, id, notify.ActionRecovered)
	return nil
}

func (s *Service) editableTrip(ctx context.Context, id string) (*models.Trip, error) {
	trip, err := s.store.Trips.FindTripByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if trip.IsDeleted {
		return nil, apperr.E(apperr.Validation, "trip %s is deleted; recover it before editing", id)
	}
	if trip.Status == models.TripCompleted {
		return nil, apperr.E(apperr.Validation, "trip %s is completed and can only be invoiced", id)
	}
	return trip, nil
}

// apply copies the draft onto trip and derives every computed field.
func (s *Service) apply(trip *models.Trip, d TripDraft) error {
	trip.ClientName = strings.TrimSpace(d.ClientName)
	trip.Status = d.Status
	if trip.Status == "" {
		trip.Status = models.TripConfirmed
	}
	trip.CargoType = d.CargoType
	if trip.CargoType == "" {
		trip.CargoType = models.CargoContainer
	}
	trip.BillOfLading = d.BillOfLading
	trip.ShippingLine = d.ShippingLine
	trip.Origin = d.Origin
	trip.Destination = d.Destination
	trip.WeightKg = d.WeightKg

	trip.Assignments = make([]models.Assignment, 0, len(d.Assignments))
	for _, ad := range d.Assignments {
		a := models.Assignment{
			ID:              ad.ID,
			ContainerNumber: strings.TrimSpace(ad.ContainerNumber),
			MerchandiseType: strings.TrimSpace(ad.MerchandiseType),
			DriverID:        ad.DriverID,
			TruckID:         ad.TruckID,
			TrailerID:       ad.TrailerID,
			Cost:            ad.Cost,
			DMTICost:        ad.DMTICost,
			Events:          make([]models.Event, len(ad.Events)),
		}
		if a.ID == "" {
			a.ID = s.newID()
		}
		if trip.CargoType == models.CargoContainer {
			a.MerchandiseType = ""
		} else {
			a.ContainerNumber = ""
		}
		for i, e := range ad.Events {
			e.Timestamp = e.Timestamp.UTC()
			a.Events[i] = e
		}
		a.SortEvents()
		trip.Assignments = append(trip.Assignments, a)
	}

	if trip.Status == models.TripCompleted && !engine.CanComplete(trip.Assignments) {
		return apperr.E(apperr.Validation, "a trip can only be completed after an empty return end event")
	}
	if trip.Status == models.TripCompleted && trip.InvoiceStatus == "" {
		trip.InvoiceStatus = models.InvoiceActive
	}
	applySurcharges(trip)
	return nil
}

func applySurcharges(trip *models.Trip) {
	sc := engine.Surcharges(trip.Assignments)
	trip.Demurrage = sc.Demurrage
	trip.UnhookCost = sc.UnhookCost
}

// applyClientDMTIFee fills missing DMTI costs from the client's default fee.
func (s *Service) applyClientDMTIFee(ctx context.Context, trip *models.Trip) error {
	clients, err := s.store.Clients.List(ctx)
	if err != nil {
		return fmt.Errorf("list clients: %w", err)
	}
	var fee float64
	for _, c := range clients {
		if !c.IsDeleted && strings.EqualFold(c.BusinessName, trip.ClientName) {
			fee = c.DMTIFee
			break
		}
	}
	for i := range trip.Assignments {
		if trip.Assignments[i].DMTICost == 0 {
			trip.Assignments[i].DMTICost = fee
		}
	}
	return nil
}

// prepareDMTIs builds one declaration per container without writing
// anything. The caller holds dmtiMu.
func (s *Service) prepareDMTIs(ctx context.Context, d TripDraft, now time.Time) ([]models.DMTI, error) {
	existing, err := s.store.DMTIs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list dmtis: %w", err)
	}

	records := make([]models.DMTI, 0, len(d.Assignments))
	for _, ad := range d.Assignments {
		date := ad.DMTI.RegistrationDate
		if date == "" {
			date = now.Format(engine.DateLayout)
		}
		user := ad.DMTI.User
		if user == "" {
			user = models.DMTIUserTransport
		}
		id, err := sequence.NextDMTICorrelative(existing, sequence.DMTIInput{
			RegistrationDate: date,
			StartingCustoms:  ad.DMTI.StartingCustoms,
		})
		if err != nil {
			return nil, err
		}
		rec := models.DMTI{
			ID:               id,
			ClientName:       strings.TrimSpace(d.ClientName),
			ContainerNumber:  strings.TrimSpace(ad.ContainerNumber),
			RegistrationDate: date,
			User:             user,
			StartingCustoms:  strings.TrimSpace(ad.DMTI.StartingCustoms),
			CreatedAt:        now,
		}
		existing = append(existing, rec)
		records = append(records, rec)
	}
	return records, nil
}

// fileDMTIs stores prepared declarations. A store failure part way leaves the
// earlier ones in place.
func (s *Service) fileDMTIs(ctx context.Context, records []models.DMTI) error {
	for i := range records {
		rec := records[i]
		if err := s.store.DMTIs.Insert(ctx, &rec); err != nil {
			return fmt.Errorf("insert dmti %s: %w", rec.ID, err)
		}
		log.WithFields(log.Fields{
			"dmti_id":   rec.ID,
			"container": rec.ContainerNumber,
		}).Info("DMTI filed")
	}
	return nil
}

func (s *Service) publishStored(ctx context.Context, id, action string) {
	trip, err := s.store.Trips.FindTripByID(ctx, id)
	if err != nil {
		log.WithError(err).WithField("trip_id", id).Warn("Failed to load trip for notification")
		return
	}
	s.publish(ctx, trip, action, "", nil)
}

// publish is best effort: the write has already succeeded.
func (s *Service) publish(ctx context.Context, trip *models.Trip, action, assignmentID string, e *models.Event) {
	notice := notify.TripNotice{
		TripID:       trip.Key(),
		ServiceOrder: trip.ServiceOrder,
		Status:       trip.Status,
		Action:       action,
		AssignmentID: assignmentID,
		Event:        e,
		At:           s.now().UTC(),
	}
	if err := s.notifier.PublishTrip(ctx, notice); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"trip_id": notice.TripID,
			"action":  action,
		}).Warn("Failed to publish trip notice")
	}
}
