package registration

import (
	"strings"
	"time"
)

type Registration struct {
	ID              string
	DeptCode        string
	DeptName        string
	EmpCode         string
	Prefix          string
	FirstName       string
	LastName        string
	Mobile          string
	LineID          string
	LineUserID      string
	LineDisplayName string
	PhotoURL        string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       *time.Time
	TodayCheckin    *TodayCheckin
}

// FullName joins prefix, first and last name.
func (r Registration) FullName() string {
	return strings.Join(strings.Fields(r.Prefix+" "+r.FirstName+" "+r.LastName), " ")
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// TodayCheckin links an open check-in to the time record created for it.
// A registration holds at most one; nil means no open check-in.
type TodayCheckin struct {
	Date         string // YYYY-MM-DD, local
	TimeRecordID string
	StartTime    string // HH.MM, local
	Shift        string
}

// Matches reports whether the pointer can close out a check-in on date.
func (t *TodayCheckin) Matches(date string) bool {
	return t != nil && t.Date == date && t.TimeRecordID != "" && t.StartTime != ""
}
