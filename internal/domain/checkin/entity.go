package checkin

import "github.com/cmlabs-hris/linebot-hrm/internal/pkg/hrapi"

type Type string

const (
	TypeIn  Type = "in"
	TypeOut Type = "out"
)

type Status string

const (
	StatusRegistered   Status = "registered"
	StatusUnregistered Status = "unregistered"
)

// Event is one entry of the attendance log. It is never modified after it
// has been appended.
type Event struct {
	ID               string          `json:"id"`
	Timestamp        string          `json:"timestamp"`
	Date             string          `json:"date"`
	LocalTime        string          `json:"thaiTime"`
	LineUserID       string          `json:"lineUserId"`
	DisplayName      string          `json:"displayName"`
	Latitude         float64         `json:"latitude"`
	Longitude        float64         `json:"longitude"`
	Address          string          `json:"address"`
	Accuracy         float64         `json:"accuracy"`
	HasPhoto         bool            `json:"hasPhoto"`
	PhotoURL         string          `json:"photoUrl,omitempty"`
	Source           string          `json:"source"`
	CheckinType      Type            `json:"checkinType"`
	Shift            string          `json:"shift"`
	EmployeeCode     *string         `json:"employeeCode"`
	EmployeeName     string          `json:"employeeName"`
	Department       *string         `json:"department"`
	Position         *string         `json:"position"`
	Status           Status          `json:"status"`
	HRSystemVerified bool            `json:"hrSystemVerified"`
	HRSystemData     *hrapi.Employee `json:"hrSystemData"`
	TimeRecord       *TimeRecordLink `json:"timeRecord,omitempty"`
}

// TimeRecordLink records what happened to the HR time record for an event.
type TimeRecordLink struct {
	ID        string `json:"id,omitempty"`
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
	TotalTime string `json:"totalTime,omitempty"`
	Synced    bool   `json:"synced"`
	Outcome   string `json:"outcome"`
}
