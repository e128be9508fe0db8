package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/extractor"
	"github.com/saturnino-fabrica-de-software/presenca/internal/match"
	"github.com/saturnino-fabrica-de-software/presenca/internal/store"
)

// AttendanceService implements enrollment, recognition and the attendance
// ledger over a snapshot store. Every mutation runs through store.Update,
// so writers are serialized; descriptor extraction happens before the
// write lock is taken.
type AttendanceService struct {
	store     store.Store
	extractor extractor.Extractor
	matcher   *match.Matcher
	logger    *slog.Logger
	now       func() time.Time
}

func NewAttendanceService(
	st store.Store,
	ext extractor.Extractor,
	matcher *match.Matcher,
	logger *slog.Logger,
) *AttendanceService {
	return &AttendanceService{
		store:     st,
		extractor: ext,
		matcher:   matcher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *AttendanceService) WithClock(now func() time.Time) *AttendanceService {
	s.now = now
	return s
}

// Register enrolls a new identity. Registration is one-shot: an id can
// never be re-registered, only wiped by ResetAllData.
func (s *AttendanceService) Register(ctx context.Context, id, name string, descriptors []domain.Descriptor) (*domain.Identity, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)

	if id == "" {
		return nil, domain.ErrInvalidInput.WithError(errors.New("id is required"))
	}
	if name == "" {
		return nil, domain.ErrInvalidInput.WithError(errors.New("name is required"))
	}
	if len(descriptors) == 0 {
		return nil, domain.ErrInvalidInput.WithError(errors.New("at least one descriptor is required"))
	}
	for i, d := range descriptors {
		if !d.Valid() {
			return nil, domain.ErrInvalidInput.WithError(
				fmt.Errorf("descriptor %d has %d components, want %d", i, len(d), domain.DescriptorLength))
		}
	}

	identity := domain.Identity{
		ID:          id,
		Name:        name,
		Descriptors: descriptors,
	}

	err := s.store.Update(ctx, func(snap *domain.Snapshot) (bool, error) {
		if snap.FindUser(id) != nil {
			return false, domain.ErrDuplicateIdentity
		}
		identity.RegisteredAt = s.now()
		snap.Users = append(snap.Users, identity)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("identity registered",
		slog.String("id", identity.ID),
		slog.Int("descriptors", len(identity.Descriptors)),
	)
	return &identity, nil
}

// Recognize extracts a descriptor from the probe image, matches it against
// the enrolled candidates and, on acceptance, marks today's attendance
// idempotently. All non-match cases are tagged results, not errors.
func (s *AttendanceService) Recognize(ctx context.Context, image []byte) (*domain.RecognitionResult, error) {
	result := &domain.RecognitionResult{EventID: uuid.New()}

	probe, err := s.extractor.Extract(ctx, image)
	if err != nil {
		if errors.Is(err, extractor.ErrNoFaceDetected) {
			result.Outcome = domain.OutcomeNoFaceDetected
			result.Message = result.Outcome.Message()
			s.logEvent(result)
			return result, nil
		}
		return nil, domain.ErrInternal.WithError(fmt.Errorf("extract descriptor: %w", err))
	}

	today := s.now().Format(domain.DateFormat)

	err = s.store.Update(ctx, func(snap *domain.Snapshot) (bool, error) {
		matched, outcome := s.matcher.Recognize(probe, match.Flatten(snap.Users))
		if matched == nil {
			result.Outcome = outcome
			result.Message = outcome.Message()
			return false, nil
		}

		result.Recognized = true
		result.ID = matched.ID
		result.Name = matched.Name
		result.Distance = matched.Distance

		marked := snap.Attendance.Mark(matched.ID, today)
		if marked {
			result.Outcome = domain.OutcomeRecorded
		} else {
			result.Outcome = domain.OutcomeAlreadyRecorded
		}
		result.Message = result.Outcome.Message()
		result.AttendanceDates = snap.Attendance.Dates(matched.ID)

		return marked, nil
	})
	if err != nil {
		return nil, domain.ErrStorageFailed.WithError(err)
	}

	s.logEvent(result)
	return result, nil
}

func (s *AttendanceService) logEvent(r *domain.RecognitionResult) {
	attrs := []any{
		slog.String("event_id", r.EventID.String()),
		slog.String("outcome", string(r.Outcome)),
	}
	if r.Recognized {
		attrs = append(attrs,
			slog.String("id", r.ID),
			slog.Float64("distance", r.Distance),
		)
	}
	s.logger.Info("recognition event", attrs...)
}

// UserSummary is one enrolled identity with its attendance totals.
type UserSummary struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	RegisteredAt    time.Time `json:"registration_date"`
	DescriptorCount int       `json:"descriptor_count"`
	AttendanceCount int       `json:"attendance_count"`
	AttendanceDates []string  `json:"attendance_dates"`
}

// DailySummary partitions all identities by presence on a given date.
type DailySummary struct {
	TotalRegistered int      `json:"total_registered"`
	PresentCount    int      `json:"present_count"`
	AbsentCount     int      `json:"absent_count"`
	PresentNames    []string `json:"present_names"`
	AbsentNames     []string `json:"absent_names"`
	PresentIDs      []string `json:"present_today_ids"`
}

// UsersReport is the full listing plus daily summary.
type UsersReport struct {
	Users   []UserSummary `json:"users"`
	Summary DailySummary  `json:"daily_summary"`
}

// ListUsers reports every identity with its date set, plus the
// present/absent partition for the given date. Ledger entries whose id no
// longer resolves to an identity still count as present and surface as
// "Unknown User (<id>)".
func (s *AttendanceService) ListUsers(ctx context.Context, today string) (*UsersReport, error) {
	if today == "" {
		today = s.now().Format(domain.DateFormat)
	}
	if !domain.ValidDate(today) {
		return nil, domain.ErrInvalidInput.WithError(fmt.Errorf("malformed date %q", today))
	}

	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, domain.ErrStorageFailed.WithError(err)
	}

	report := &UsersReport{
		Users: make([]UserSummary, 0, len(snap.Users)),
		Summary: DailySummary{
			PresentNames: []string{},
			AbsentNames:  []string{},
			PresentIDs:   []string{},
		},
	}

	names := make(map[string]string, len(snap.Users))
	for _, u := range snap.Users {
		names[u.ID] = u.Name
		dates := snap.Attendance.Dates(u.ID)
		report.Users = append(report.Users, UserSummary{
			ID:              u.ID,
			Name:            u.Name,
			RegisteredAt:    u.RegisteredAt,
			DescriptorCount: len(u.Descriptors),
			AttendanceCount: len(dates),
			AttendanceDates: dates,
		})
	}

	present := make(map[string]bool)
	for id, dates := range snap.Attendance {
		if slices.Contains(dates, today) {
			present[id] = true
		}
	}

	for id := range present {
		name, ok := names[id]
		if !ok {
			name = fmt.Sprintf("Unknown User (%s)", id)
		}
		report.Summary.PresentNames = append(report.Summary.PresentNames, name)
		report.Summary.PresentIDs = append(report.Summary.PresentIDs, id)
	}
	for _, u := range snap.Users {
		if !present[u.ID] {
			report.Summary.AbsentNames = append(report.Summary.AbsentNames, u.Name)
		}
	}

	slices.Sort(report.Summary.PresentNames)
	slices.Sort(report.Summary.AbsentNames)
	slices.Sort(report.Summary.PresentIDs)

	report.Summary.TotalRegistered = len(snap.Users)
	report.Summary.PresentCount = len(present)
	report.Summary.AbsentCount = len(report.Summary.AbsentNames)

	return report, nil
}

// ResetAttendance clears every identity's date set.
func (s *AttendanceService) ResetAttendance(ctx context.Context) error {
	err := s.store.Update(ctx, func(snap *domain.Snapshot) (bool, error) {
		snap.Attendance = domain.Attendance{}
		return true, nil
	})
	if err != nil {
		return domain.ErrStorageFailed.WithError(err)
	}
	s.logger.Info("attendance ledger reset")
	return nil
}

// ResetDate removes the date from every identity's date set and returns
// the number of identities affected.
func (s *AttendanceService) ResetDate(ctx context.Context, date string) (int, error) {
	if !domain.ValidDate(date) {
		return 0, domain.ErrInvalidInput.WithError(fmt.Errorf("malformed date %q", date))
	}

	cleared := 0
	err := s.store.Update(ctx, func(snap *domain.Snapshot) (bool, error) {
		cleared = snap.Attendance.ResetDate(date)
		return cleared > 0, nil
	})
	if err != nil {
		return 0, domain.ErrStorageFailed.WithError(err)
	}

	s.logger.Info("attendance date reset",
		slog.String("date", date),
		slog.Int("cleared", cleared),
	)
	return cleared, nil
}

// ResetAllData wipes identities and attendance, leaving the store exactly
// as a fresh empty one.
func (s *AttendanceService) ResetAllData(ctx context.Context) error {
	err := s.store.Update(ctx, func(snap *domain.Snapshot) (bool, error) {
		snap.Users = []domain.Identity{}
		snap.Attendance = domain.Attendance{}
		return true, nil
	})
	if err != nil {
		return domain.ErrStorageFailed.WithError(err)
	}
	s.logger.Warn("all registered users and attendance wiped")
	return nil
}
