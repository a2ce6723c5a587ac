package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"clinic-calendar/internal/converter"
	"clinic-calendar/internal/delivery/dto"
	"clinic-calendar/internal/domain/entity"
	"clinic-calendar/internal/domain/repository"
	"clinic-calendar/internal/service"
	"clinic-calendar/pkg/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AppointmentStore owns the session's appointment collection. Every
// successful mutation rewrites the whole collection under one blob key.
//
// The store starts uninitialized; all operations other than Load return
// ErrStoreNotReady until Load has run once.
type AppointmentStore interface {
	Load(ctx context.Context) error
	Create(ctx context.Context, req *dto.AppointmentRequest) (*dto.AppointmentResponse, error)
	Update(ctx context.Context, target *dto.AppointmentMatchRequest, req *dto.AppointmentRequest) (*dto.AppointmentResponse, error)
	UpdateByID(ctx context.Context, id uuid.UUID, req *dto.AppointmentRequest) (*dto.AppointmentResponse, error)
	Delete(ctx context.Context, target *dto.AppointmentMatchRequest) (int, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	Query(ctx context.Context, filter entity.AppointmentFilter) (*dto.AppointmentListResponse, error)
	Rosters(ctx context.Context) (*dto.RosterResponse, error)
	ExportJSON(ctx context.Context) ([]byte, error)
	ExportPDF(ctx context.Context) ([]byte, error)
	ExportICS(ctx context.Context) ([]byte, error)
	ExportXLSX(ctx context.Context) ([]byte, error)
}

// AppointmentStoreConfig holds the non-dependency settings of the store
type AppointmentStoreConfig struct {
	Key        string
	Location   *time.Location
	FilterMode entity.FilterMode
}

type appointmentStore struct {
	log       *logrus.Logger
	blobRepo  repository.BlobRepository
	exporter  service.ExportService
	validator *validator.CustomValidator
	seed      *entity.SeedData
	cfg       AppointmentStoreConfig

	mu           sync.RWMutex
	ready        bool
	appointments []entity.Appointment
	patients     entity.Roster
	doctors      entity.Roster
}

func NewAppointmentStore(
	log *logrus.Logger,
	blobRepo repository.BlobRepository,
	exporter service.ExportService,
	validator *validator.CustomValidator,
	seed *entity.SeedData,
	cfg AppointmentStoreConfig,
) AppointmentStore {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.FilterMode == "" {
		cfg.FilterMode = entity.FilterModeTitle
	}
	return &appointmentStore{
		log:       log,
		blobRepo:  blobRepo,
		exporter:  exporter,
		validator: validator,
		seed:      seed,
		cfg:       cfg,
		patients:  entity.Roster(seed.Patients),
		doctors:   entity.Roster(seed.Doctors),
	}
}

// Load reads the persisted collection. A missing blob loads the seed data.
// A blob that cannot be read or parsed also loads the seed data, and the
// returned error wraps ErrStorageRead. The store is ready in every case.
func (u *appointmentStore) Load(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.ready = true

	data, err := u.blobRepo.Get(ctx, u.cfg.Key)
	if err != nil {
		u.useSeedLocked()
		if errors.Is(err, repository.ErrBlobNotFound) {
			u.log.Infof("No stored appointments under %q, loaded %d seed appointments", u.cfg.Key, len(u.appointments))
			return nil
		}
		u.log.Warnf("Failed to read stored appointments, falling back to seed data: %+v", err)
		return fmt.Errorf("%w: %w", ErrStorageRead, err)
	}

	doc, err := entity.DecodeAppointmentDocument(data)
	if err != nil {
		u.useSeedLocked()
		u.log.Warnf("Stored appointments are malformed, falling back to seed data: %+v", err)
		return fmt.Errorf("%w: %w", ErrStorageRead, err)
	}

	appointments := u.normalize(doc.Appointments, "stored")
	u.appointments = appointments

	u.log.Infof("Loaded %d appointments from %q", len(appointments), u.cfg.Key)
	return nil
}

func (u *appointmentStore) useSeedLocked() {
	u.appointments = u.normalize(u.seed.Appointments, "seed")
}

// normalize drops incomplete records, fills in derived fields and gives any
// missing or repeated ID a fresh one. The input is not modified.
func (u *appointmentStore) normalize(in []entity.Appointment, source string) []entity.Appointment {
	out := make([]entity.Appointment, 0, len(in))
	seen := make(map[uuid.UUID]bool, len(in))
	for _, a := range in {
		if !a.Complete() {
			u.log.Warnf("Dropping %s appointment %q with missing fields", source, a.Title)
			continue
		}
		if a.ID == uuid.Nil || seen[a.ID] {
			a.ID = uuid.New()
		}
		seen[a.ID] = true
		if a.Title == "" {
			a.Title = entity.AppointmentTitle(a.Patient, a.Doctor)
		}
		if a.End.IsZero() {
			a.End = a.Start
		}
		out = append(out, a)
	}
	return out
}

func (u *appointmentStore) Create(ctx context.Context, req *dto.AppointmentRequest) (*dto.AppointmentResponse, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.ready {
		return nil, ErrStoreNotReady
	}

	appointment, err := u.buildAppointment(req)
	if err != nil {
		return nil, err
	}
	appointment.ID = uuid.New()

	u.appointments = append(u.appointments, *appointment)
	resp := converter.AppointmentToResponse(appointment)

	if err := u.persistLocked(ctx); err != nil {
		return resp, err
	}

	u.log.Infof("Appointment created: id=%s, title=%q, start=%s", appointment.ID, appointment.Title, appointment.Start.Format(time.RFC3339))
	return resp, nil
}

// Update replaces the first appointment matching target, keeping its ID
func (u *appointmentStore) Update(ctx context.Context, target *dto.AppointmentMatchRequest, req *dto.AppointmentRequest) (*dto.AppointmentResponse, error) {
	if err := validateMatch(target); err != nil {
		return nil, err
	}
	match := converter.MatchRequestToEntity(target)

	return u.replace(ctx, req, func(a *entity.Appointment) bool {
		return a.Matches(match)
	})
}

func (u *appointmentStore) UpdateByID(ctx context.Context, id uuid.UUID, req *dto.AppointmentRequest) (*dto.AppointmentResponse, error) {
	return u.replace(ctx, req, func(a *entity.Appointment) bool {
		return a.ID == id
	})
}

func (u *appointmentStore) replace(ctx context.Context, req *dto.AppointmentRequest, match func(*entity.Appointment) bool) (*dto.AppointmentResponse, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.ready {
		return nil, ErrStoreNotReady
	}

	idx := -1
	for i := range u.appointments {
		if match(&u.appointments[i]) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrAppointmentNotFound
	}

	replacement, err := u.buildAppointment(req)
	if err != nil {
		return nil, err
	}
	replacement.ID = u.appointments[idx].ID

	u.appointments[idx] = *replacement
	resp := converter.AppointmentToResponse(replacement)

	if err := u.persistLocked(ctx); err != nil {
		return resp, err
	}

	u.log.Infof("Appointment updated: id=%s, title=%q", replacement.ID, replacement.Title)
	return resp, nil
}

// Delete removes every appointment matching target, so duplicates sharing
// the same start and title all go. It returns how many were removed.
func (u *appointmentStore) Delete(ctx context.Context, target *dto.AppointmentMatchRequest) (int, error) {
	if err := validateMatch(target); err != nil {
		return 0, err
	}
	match := converter.MatchRequestToEntity(target)

	return u.remove(ctx, false, func(a *entity.Appointment) bool {
		return a.Matches(match)
	})
}

func (u *appointmentStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	_, err := u.remove(ctx, true, func(a *entity.Appointment) bool {
		return a.ID == id
	})
	return err
}

// remove deletes matching appointments, or only the first one when once is set
func (u *appointmentStore) remove(ctx context.Context, once bool, match func(*entity.Appointment) bool) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.ready {
		return 0, ErrStoreNotReady
	}

	kept := make([]entity.Appointment, 0, len(u.appointments))
	removed := 0
	for i := range u.appointments {
		if (!once || removed == 0) && match(&u.appointments[i]) {
			removed++
			continue
		}
		kept = append(kept, u.appointments[i])
	}
	if removed == 0 {
		return 0, ErrAppointmentNotFound
	}
	u.appointments = kept

	if err := u.persistLocked(ctx); err != nil {
		return removed, err
	}

	u.log.Infof("Deleted %d appointment(s)", removed)
	return removed, nil
}

func (u *appointmentStore) Get(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if !u.ready {
		return nil, ErrStoreNotReady
	}

	for i := range u.appointments {
		if u.appointments[i].ID == id {
			return converter.AppointmentToResponse(&u.appointments[i]), nil
		}
	}
	return nil, ErrAppointmentNotFound
}

// Query returns the appointments accepted by filter, in insertion order
func (u *appointmentStore) Query(ctx context.Context, filter entity.AppointmentFilter) (*dto.AppointmentListResponse, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if !u.ready {
		return nil, ErrStoreNotReady
	}

	matched := make([]entity.Appointment, 0, len(u.appointments))
	for i := range u.appointments {
		if filter.Accept(&u.appointments[i], u.cfg.FilterMode) {
			matched = append(matched, u.appointments[i])
		}
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(matched),
		Total:        len(matched),
	}, nil
}

func (u *appointmentStore) Rosters(ctx context.Context) (*dto.RosterResponse, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if !u.ready {
		return nil, ErrStoreNotReady
	}
	return &dto.RosterResponse{
		Patients: append([]string{}, u.patients...),
		Doctors:  append([]string{}, u.doctors...),
	}, nil
}

// ExportJSON returns the same document that is written to the blob store
func (u *appointmentStore) ExportJSON(ctx context.Context) ([]byte, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if !u.ready {
		return nil, ErrStoreNotReady
	}
	return u.encodeLocked()
}

func (u *appointmentStore) ExportPDF(ctx context.Context) ([]byte, error) {
	return u.export(u.exporter.RenderPDF)
}

func (u *appointmentStore) ExportICS(ctx context.Context) ([]byte, error) {
	return u.export(u.exporter.RenderICS)
}

func (u *appointmentStore) ExportXLSX(ctx context.Context) ([]byte, error) {
	return u.export(u.exporter.RenderXLSX)
}

func (u *appointmentStore) export(render func([]entity.Appointment) ([]byte, error)) ([]byte, error) {
	u.mu.RLock()
	if !u.ready {
		u.mu.RUnlock()
		return nil, ErrStoreNotReady
	}
	snapshot := append([]entity.Appointment{}, u.appointments...)
	u.mu.RUnlock()

	return render(snapshot)
}

func (u *appointmentStore) encodeLocked() ([]byte, error) {
	return json.Marshal(entity.NewAppointmentDocument(u.appointments))
}

// persistLocked writes the whole collection. On failure the in-memory
// collection is left as is.
func (u *appointmentStore) persistLocked(ctx context.Context) error {
	data, err := u.encodeLocked()
	if err != nil {
		u.log.Errorf("Failed to encode appointments: %+v", err)
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}

	if err := u.blobRepo.Set(ctx, u.cfg.Key, data); err != nil {
		u.log.Warnf("Failed to persist %d appointments (kept in memory): %+v", len(u.appointments), err)
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	return nil
}

// buildAppointment validates a booking form and turns it into an appointment
// without an ID.
func (u *appointmentStore) buildAppointment(req *dto.AppointmentRequest) (*entity.Appointment, error) {
	if req == nil {
		return nil, &ValidationError{Fields: map[string]string{"appointment": "appointment is required"}}
	}

	fields := map[string]string{}
	if err := u.validator.Validate(req); err != nil {
		fields = u.validator.FormatValidationErrors(err)
		if len(fields) == 0 {
			return nil, err
		}
	}
	if _, bad := fields["patient"]; !bad && !u.patients.Contains(req.Patient) {
		fields["patient"] = fmt.Sprintf("patient %q is not a registered patient", req.Patient)
	}
	if _, bad := fields["doctor"]; !bad && !u.doctors.Contains(req.Doctor) {
		fields["doctor"] = fmt.Sprintf("doctor %q is not a registered doctor", req.Doctor)
	}
	if req.EndDate != "" && req.EndTime == "" {
		if _, bad := fields["end_time"]; !bad {
			fields["end_time"] = "end_time is required when end_date is set"
		}
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	start, err := combineDateTime(req.Date, req.Time, u.cfg.Location)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"date": err.Error()}}
	}

	end := start
	if req.EndTime != "" {
		endDate := req.EndDate
		if endDate == "" {
			endDate = req.Date
		}
		end, err = combineDateTime(endDate, req.EndTime, u.cfg.Location)
		if err != nil {
			return nil, &ValidationError{Fields: map[string]string{"end_date": err.Error()}}
		}
		if end.Before(start) {
			return nil, &ValidationError{Fields: map[string]string{"end_time": "end must not be before start"}}
		}
	}

	return &entity.Appointment{
		Title:   entity.AppointmentTitle(req.Patient, req.Doctor),
		Start:   start,
		End:     end,
		Patient: req.Patient,
		Doctor:  req.Doctor,
		Time:    req.Time,
	}, nil
}

// combineDateTime interprets date and wall-clock time in loc
func combineDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", date)
	}
	tod, ok := validator.ParseClock(clock)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid time %q", clock)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), tod.Second(), 0, loc), nil
}

func validateMatch(target *dto.AppointmentMatchRequest) error {
	fields := map[string]string{}
	if target == nil || target.Start.IsZero() {
		fields["start"] = "start is required"
	}
	if target == nil || target.Title == "" {
		fields["title"] = "title is required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
