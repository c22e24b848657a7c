package hrapi

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Employee is a profile returned by the HR search API, kept as the raw
// object. The HR API is loose about field types, so values are read through
// Field rather than a fixed struct.
type Employee map[string]any

// Field returns key as text. Strings and numbers are returned as-is, booleans
// as "true"/"false"; objects, arrays and null read as "".
func (e Employee) Field(key string) string {
	switch v := e[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func (e Employee) EmployeeID() string {
	return e.Field("employeeId")
}

// FullName joins prefix, name and last name.
func (e Employee) FullName() string {
	parts := []string{}
	for _, key := range []string{"prefix", "name", "lastName"} {
		if s := e.Field(key); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

type searchRequest struct {
	EmployeeID string `json:"employeeId"`
}

type searchResponse struct {
	Employees *[]json.RawMessage `json:"employees"`
}

// TimeRecordEntry is one day inside a monthly time record document.
type TimeRecordEntry struct {
	WorkplaceID   string `json:"workplaceId"`
	WorkplaceName string `json:"workplaceName"`
	WGroup        string `json:"wGroup"`
	Date          string `json:"date"`
	Shift         string `json:"shift"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	TotalTime     string `json:"totalTime"`
	StartOtTime   string `json:"startOtTime"`
	EndOtTime     string `json:"endOtTime"`
	TotalOtTime   string `json:"totalOtTime"`
}

// CreateTimeRecord opens a workday record for an employee.
type CreateTimeRecord struct {
	Year           string            `json:"year"`
	EmployeeID     string            `json:"employeeId"`
	EmployeeName   string            `json:"employeeName"`
	Month          string            `json:"month"`
	EmployeeRecord []TimeRecordEntry `json:"employee_record"`
}

// UpdateTimeRecord closes out a workday record. StartTime is resent so the
// upstream keeps it.
type UpdateTimeRecord struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	TotalTime string `json:"totalTime"`
}

type createTimeRecordResponse struct {
	Result *struct {
		EmployeeRecord []struct {
			ID string `json:"_id"`
		} `json:"employee_record"`
	} `json:"result"`
}
