package checkin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/domain/checkin"
	"github.com/cmlabs-hris/linebot-hrm/internal/domain/registration"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/hrapi"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/line"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/metrics"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/sse"
	"github.com/cmlabs-hris/linebot-hrm/internal/service/file"
	"github.com/google/uuid"
)

// DefaultPosition is shown for registered employees; the directory has no
// position field.
const DefaultPosition = "พนักงาน"

type checkinServiceImpl struct {
	repo          checkin.Repository
	registrations registration.Repository
	directory     hrapi.Directory
	timeRecords   hrapi.TimeRecords
	messenger     line.Messenger
	files         file.FileService
	feed          *sse.Hub
	loc           *time.Location
	now           func() time.Time
}

func NewCheckinService(
	repo checkin.Repository,
	registrations registration.Repository,
	directory hrapi.Directory,
	timeRecords hrapi.TimeRecords,
	messenger line.Messenger,
	files file.FileService,
	feed *sse.Hub,
	loc *time.Location,
) checkin.Service {
	if feed == nil {
		feed = sse.NewHub()
	}
	return &checkinServiceImpl{
		repo:          repo,
		registrations: registrations,
		directory:     directory,
		timeRecords:   timeRecords,
		messenger:     messenger,
		files:         files,
		feed:          feed,
		loc:           loc,
		now:           time.Now,
	}
}

// Record implements checkin.Service.
func (s *checkinServiceImpl) Record(ctx context.Context, req checkin.LocationRequest) (checkin.Event, error) {
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return checkin.Event{}, err
	}

	now := s.now().In(s.loc)
	timestamp := req.Timestamp
	if timestamp == "" {
		timestamp = now.Format(time.RFC3339)
	}

	event := checkin.Event{
		ID:          uuid.NewString(),
		Timestamp:   timestamp,
		Date:        now.Format(time.DateOnly),
		LocalTime:   now.Format("02/01/2006 15:04:05"),
		LineUserID:  req.UserID,
		DisplayName: req.DisplayName,
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
		Address:     req.Address,
		Accuracy:    req.Accuracy,
		HasPhoto:    req.HasPhoto,
		Source:      req.Source,
		CheckinType: req.CheckinType,
		Shift:       req.Shift,
	}

	reg, err := s.registrations.GetByLineUserID(ctx, req.UserID)
	switch {
	case err == nil:
		s.recordRegistered(ctx, &event, reg, now)
	case errors.Is(err, registration.ErrRegistrationNotFound):
		slog.Info("Employee not found for LINE user", "line_user_id", req.UserID)
		s.recordUnregistered(ctx, &event, req.EmployeeCode)
	default:
		slog.Error("Failed to look up employee, recording as unregistered", "line_user_id", req.UserID, "error", err)
		s.recordUnregistered(ctx, &event, req.EmployeeCode)
	}

	if req.HasPhoto && s.files != nil {
		url, err := s.files.CheckinPhotoURL(ctx, req.PhotoFilename)
		if err != nil {
			slog.Warn("Check-in photo not attached", "line_user_id", req.UserID, "filename", req.PhotoFilename, "error", err)
		} else {
			event.PhotoURL = url
		}
	}

	if err := s.repo.Append(ctx, event); err != nil {
		return checkin.Event{}, fmt.Errorf("failed to save check-in record: %w", err)
	}
	metrics.CheckinEvents.WithLabelValues(string(event.CheckinType), string(event.Status)).Inc()
	slog.Info("Check-in recorded",
		"id", event.ID,
		"type", event.CheckinType,
		"status", event.Status,
		"employee_code", deref(event.EmployeeCode),
	)
	s.feed.Publish(sse.Event{Name: "checkin", Data: event}, deref(event.EmployeeCode))

	res := s.messenger.Push(ctx, req.UserID, confirmationMessages(event)...)
	if !res.OK() {
		slog.Warn("Check-in confirmation not delivered",
			"line_user_id", req.UserID,
			"outcome", res.Outcome,
			"error", res.Err,
		)
	}

	return event, nil
}

func (s *checkinServiceImpl) recordRegistered(ctx context.Context, event *checkin.Event, reg registration.Registration, now time.Time) {
	code := reg.EmpCode
	department := reg.DeptName
	position := DefaultPosition

	event.EmployeeCode = &code
	event.EmployeeName = reg.FullName()
	event.Department = &department
	event.Position = &position
	event.Status = checkin.StatusRegistered

	verified := s.directory.Verify(ctx, code)
	if verified.OK() {
		hr := verified.Value
		event.HRSystemVerified = true
		event.HRSystemData = &hr
	}

	switch event.CheckinType {
	case checkin.TypeIn:
		event.TimeRecord = s.openTimeRecord(ctx, reg, event.Shift, now)
	case checkin.TypeOut:
		event.TimeRecord = s.closeTimeRecord(ctx, reg, now)
	}
}

// recordUnregistered keeps the event without HR linkage. A code supplied by
// the LIFF page is still verified for the audit trail.
func (s *checkinServiceImpl) recordUnregistered(ctx context.Context, event *checkin.Event, employeeCode string) {
	event.EmployeeName = event.DisplayName
	event.Status = checkin.StatusUnregistered

	if employeeCode == "" {
		return
	}
	event.EmployeeCode = &employeeCode

	verified := s.directory.Verify(ctx, employeeCode)
	if verified.OK() {
		hr := verified.Value
		event.HRSystemVerified = true
		event.HRSystemData = &hr
	}
}

// List implements checkin.Service.
func (s *checkinServiceImpl) List(ctx context.Context, filter checkin.Filter) ([]checkin.Event, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	switch {
	case filter.EmployeeCode != "":
		events, err := s.repo.ListByEmployeeCode(ctx, filter.EmployeeCode)
		if err != nil || filter.Date == "" {
			return events, err
		}
		result := []checkin.Event{}
		for _, e := range events {
			if e.Date == filter.Date {
				result = append(result, e)
			}
		}
		return result, nil
	case filter.Date != "":
		return s.repo.ListByDate(ctx, filter.Date)
	default:
		return s.repo.List(ctx)
	}
}

// Today implements checkin.Service.
func (s *checkinServiceImpl) Today(ctx context.Context) (string, []checkin.Event, error) {
	today := s.now().In(s.loc).Format(time.DateOnly)
	events, err := s.repo.ListByDate(ctx, today)
	if err != nil {
		return today, nil, err
	}
	return today, events, nil
}

// Count implements checkin.Service.
func (s *checkinServiceImpl) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Subscribe implements checkin.Service.
func (s *checkinServiceImpl) Subscribe(employeeCode string) (<-chan sse.Event, func()) {
	if employeeCode == "" {
		return s.feed.Subscribe(sse.TopicAll)
	}
	return s.feed.Subscribe(employeeCode)
}
