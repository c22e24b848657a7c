package checkin

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/domain/checkin"
	"github.com/cmlabs-hris/linebot-hrm/internal/domain/registration"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/hrapi"
	"github.com/shopspring/decimal"
)

// ClockFormat is the HH.MM form the time record API uses.
const ClockFormat = "15.04"

// TotalTime returns end-start in hours with two decimals. Shifts that cross
// midnight come out negative. An unparsable clock yields "".
func TotalTime(startTime, endTime string) string {
	start, ok := clockMinutes(startTime)
	if !ok {
		return ""
	}
	end, ok := clockMinutes(endTime)
	if !ok {
		return ""
	}
	return decimal.NewFromInt(int64(end - start)).Div(decimal.NewFromInt(60)).StringFixed(2)
}

func clockMinutes(clock string) (int, bool) {
	hh, mm, found := strings.Cut(strings.TrimSpace(clock), ".")
	if !found {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, false
	}
	return h*60 + m, true
}

// openTimeRecord creates the day's time record and points the registration
// at it, replacing any earlier pointer. A failed create leaves the event
// without a record id.
func (s *checkinServiceImpl) openTimeRecord(ctx context.Context, reg registration.Registration, shift string, now time.Time) *checkin.TimeRecordLink {
	startTime := now.Format(ClockFormat)

	res := s.timeRecords.Create(ctx, hrapi.CreateTimeRecord{
		Year:         strconv.Itoa(now.Year()),
		Month:        strconv.Itoa(int(now.Month())),
		EmployeeID:   reg.EmpCode,
		EmployeeName: reg.FullName(),
		EmployeeRecord: []hrapi.TimeRecordEntry{{
			WorkplaceID:   reg.DeptCode,
			WorkplaceName: reg.DeptName,
			Date:          strconv.Itoa(now.Day()),
			Shift:         shift,
			StartTime:     startTime,
		}},
	})

	link := &checkin.TimeRecordLink{
		StartTime: startTime,
		Outcome:   string(res.Outcome),
	}
	if !res.OK() {
		slog.Warn("Time record not created, check-in kept without HR linkage",
			"employee_code", reg.EmpCode,
			"outcome", res.Outcome,
			"status", res.StatusCode,
			"error", res.Err,
		)
		return link
	}

	link.ID = res.Value
	link.Synced = true
	slog.Info("Time record created", "employee_code", reg.EmpCode, "time_record_id", res.Value, "start_time", startTime)

	err := s.registrations.OpenCheckin(ctx, reg.LineUserID, registration.TodayCheckin{
		Date:         now.Format(time.DateOnly),
		TimeRecordID: res.Value,
		StartTime:    startTime,
		Shift:        shift,
	})
	if err != nil {
		slog.Error("Failed to save check-in pointer", "employee_code", reg.EmpCode, "time_record_id", res.Value, "error", err)
	}
	return link
}

// closeTimeRecord closes out today's open record. It returns nil when the
// registration has no open check-in for today; nothing is sent upstream then.
func (s *checkinServiceImpl) closeTimeRecord(ctx context.Context, reg registration.Registration, now time.Time) *checkin.TimeRecordLink {
	today := now.Format(time.DateOnly)
	open := reg.TodayCheckin
	if !open.Matches(today) {
		slog.Info("No open check-in for today, skipping time record update",
			"employee_code", reg.EmpCode,
			"has_pointer", open != nil,
			"today", today,
		)
		return nil
	}

	endTime := now.Format(ClockFormat)
	totalTime := TotalTime(open.StartTime, endTime)
	if totalTime == "" {
		slog.Warn("Could not calculate total time", "employee_code", reg.EmpCode, "start_time", open.StartTime)
	}

	res := s.timeRecords.Update(ctx, open.TimeRecordID, hrapi.UpdateTimeRecord{
		StartTime: open.StartTime,
		EndTime:   endTime,
		TotalTime: totalTime,
	})

	link := &checkin.TimeRecordLink{
		ID:        open.TimeRecordID,
		StartTime: open.StartTime,
		EndTime:   endTime,
		TotalTime: totalTime,
		Synced:    res.OK(),
		Outcome:   string(res.Outcome),
	}
	if !res.OK() {
		slog.Warn("Time record update failed, check-in pointer kept",
			"employee_code", reg.EmpCode,
			"time_record_id", open.TimeRecordID,
			"outcome", res.Outcome,
			"status", res.StatusCode,
			"error", res.Err,
		)
		return link
	}

	closed, err := s.registrations.CloseCheckin(ctx, reg.LineUserID, open.TimeRecordID)
	switch {
	case err != nil:
		slog.Error("Failed to clear check-in pointer", "employee_code", reg.EmpCode, "time_record_id", open.TimeRecordID, "error", err)
	case !closed:
		slog.Warn("Check-in pointer changed before it could be cleared", "employee_code", reg.EmpCode, "time_record_id", open.TimeRecordID)
	default:
		slog.Info("Time record closed",
			"employee_code", reg.EmpCode,
			"time_record_id", open.TimeRecordID,
			"start_time", open.StartTime,
			"end_time", endTime,
			"total_time", totalTime,
		)
	}
	return link
}
