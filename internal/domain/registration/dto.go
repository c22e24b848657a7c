package registration

import (
	"mime/multipart"
	"strings"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/validator"
)

type RegisterRequest struct {
	DeptCode        string                `json:"deptCode"`
	DeptName        string                `json:"deptName"`
	EmpCode         string                `json:"empCode"`
	Prefix          string                `json:"prefix"`
	FirstName       string                `json:"firstName"`
	LastName        string                `json:"lastName"`
	Mobile          string                `json:"mobile"`
	LineID          string                `json:"lineId"`
	LineUserID      string                `json:"lineUserId"`
	LineDisplayName string                `json:"lineDisplayName"`
	Photo           multipart.File        `json:"-"`
	PhotoHeader     *multipart.FileHeader `json:"-"`
}

// Validate reports the missing required fields in form order.
func (r *RegisterRequest) Validate() error {
	var errs validator.ValidationErrors

	required := []struct {
		field string
		value string
	}{
		{"deptCode", r.DeptCode},
		{"deptName", r.DeptName},
		{"empCode", r.EmpCode},
		{"prefix", r.Prefix},
		{"firstName", r.FirstName},
		{"lastName", r.LastName},
		{"mobile", r.Mobile},
		{"lineId", r.LineID},
	}
	for _, f := range required {
		if validator.IsEmpty(f.value) {
			errs = append(errs, validator.ValidationError{
				Field:   f.field,
				Message: "กรุณากรอก " + f.field,
			})
		}
	}

	if r.PhotoHeader != nil && r.PhotoHeader.Size > 10<<20 {
		errs = append(errs, validator.ValidationError{
			Field:   "photo",
			Message: "photo size must not exceed 10MB",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Normalize trims identifiers that are used as lookup keys.
func (r *RegisterRequest) Normalize() {
	r.EmpCode = strings.TrimSpace(r.EmpCode)
	r.LineUserID = strings.TrimSpace(r.LineUserID)
}

// UpdateRegistrationRequest carries the editable fields; nil leaves a field
// as it is. empCode, id and createdAt are not editable.
type UpdateRegistrationRequest struct {
	DeptCode        *string `json:"deptCode,omitempty"`
	DeptName        *string `json:"deptName,omitempty"`
	Prefix          *string `json:"prefix,omitempty"`
	FirstName       *string `json:"firstName,omitempty"`
	LastName        *string `json:"lastName,omitempty"`
	Mobile          *string `json:"mobile,omitempty"`
	LineID          *string `json:"lineId,omitempty"`
	LineUserID      *string `json:"lineUserId,omitempty"`
	LineDisplayName *string `json:"lineDisplayName,omitempty"`
	PhotoURL        *string `json:"photoUrl,omitempty"`
	Status          *string `json:"status,omitempty"`

	UpdatedAt time.Time `json:"-"`
}

func (r *UpdateRegistrationRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Status != nil && !validator.IsInSlice(*r.Status, []string{string(StatusActive), string(StatusInactive)}) {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be active or inactive",
		})
	}
	if r.LineUserID != nil {
		trimmed := strings.TrimSpace(*r.LineUserID)
		r.LineUserID = &trimmed
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Apply copies the set fields of req onto reg.
func (r UpdateRegistrationRequest) Apply(reg *Registration) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&reg.DeptCode, r.DeptCode)
	set(&reg.DeptName, r.DeptName)
	set(&reg.Prefix, r.Prefix)
	set(&reg.FirstName, r.FirstName)
	set(&reg.LastName, r.LastName)
	set(&reg.Mobile, r.Mobile)
	set(&reg.LineID, r.LineID)
	set(&reg.LineUserID, r.LineUserID)
	set(&reg.LineDisplayName, r.LineDisplayName)
	set(&reg.PhotoURL, r.PhotoURL)
	if r.Status != nil {
		reg.Status = Status(*r.Status)
	}
	updatedAt := r.UpdatedAt
	reg.UpdatedAt = &updatedAt
}

type RegistrationResponse struct {
	ID              string                `json:"id"`
	DeptCode        string                `json:"deptCode"`
	DeptName        string                `json:"deptName"`
	EmpCode         string                `json:"empCode"`
	Prefix          string                `json:"prefix"`
	FirstName       string                `json:"firstName"`
	LastName        string                `json:"lastName"`
	Mobile          string                `json:"mobile"`
	LineID          string                `json:"lineId"`
	LineUserID      string                `json:"lineUserId"`
	LineDisplayName string                `json:"lineDisplayName"`
	PhotoURL        string                `json:"photoUrl,omitempty"`
	Status          string                `json:"status"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       *time.Time            `json:"updatedAt,omitempty"`
	TodayCheckin    *TodayCheckinResponse `json:"todayCheckin,omitempty"`
}

type TodayCheckinResponse struct {
	Date         string `json:"date"`
	TimeRecordID string `json:"timeRecordId"`
	StartTime    string `json:"startTime"`
	Shift        string `json:"shift"`
}

func NewRegistrationResponse(reg Registration) RegistrationResponse {
	resp := RegistrationResponse{
		ID:              reg.ID,
		DeptCode:        reg.DeptCode,
		DeptName:        reg.DeptName,
		EmpCode:         reg.EmpCode,
		Prefix:          reg.Prefix,
		FirstName:       reg.FirstName,
		LastName:        reg.LastName,
		Mobile:          reg.Mobile,
		LineID:          reg.LineID,
		LineUserID:      reg.LineUserID,
		LineDisplayName: reg.LineDisplayName,
		PhotoURL:        reg.PhotoURL,
		Status:          string(reg.Status),
		CreatedAt:       reg.CreatedAt,
		UpdatedAt:       reg.UpdatedAt,
	}
	if reg.TodayCheckin != nil {
		resp.TodayCheckin = &TodayCheckinResponse{
			Date:         reg.TodayCheckin.Date,
			TimeRecordID: reg.TodayCheckin.TimeRecordID,
			StartTime:    reg.TodayCheckin.StartTime,
			Shift:        reg.TodayCheckin.Shift,
		}
	}
	return resp
}
