package checkin

import (
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/validator"
)

const (
	DefaultDisplayName = "ผู้ใช้"
	DefaultAddress     = "ไม่ระบุที่อยู่"
	DefaultSource      = "liff-gps"
)

// LocationRequest is posted by the LIFF page after it has captured the GPS
// position (and optionally uploaded a photo).
type LocationRequest struct {
	UserID        string   `json:"userId"`
	DisplayName   string   `json:"displayName"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Address       string   `json:"address"`
	HasPhoto      bool     `json:"hasPhoto"`
	PhotoFilename string   `json:"photoFilename,omitempty"`
	Accuracy      float64  `json:"accuracy"`
	Timestamp     string   `json:"timestamp"`
	Shift         string   `json:"shift"`
	CheckinType   Type     `json:"checkinType"`
	EmployeeCode  string   `json:"employeeCode,omitempty"`
	Source        string   `json:"source"`
}

// ApplyDefaults fills the optional fields the LIFF page may leave out.
func (r *LocationRequest) ApplyDefaults() {
	if r.DisplayName == "" {
		r.DisplayName = DefaultDisplayName
	}
	if r.Address == "" {
		r.Address = DefaultAddress
	}
	if r.Source == "" {
		r.Source = DefaultSource
	}
	if r.CheckinType == "" {
		r.CheckinType = TypeIn
	}
	r.CheckinType = Type(strings.ToLower(string(r.CheckinType)))
	r.EmployeeCode = strings.TrimSpace(r.EmployeeCode)
	r.PhotoFilename = filepath.Base(strings.TrimSpace(r.PhotoFilename))
	if r.PhotoFilename == "." || r.PhotoFilename == "/" {
		r.PhotoFilename = ""
	}
}

func (r *LocationRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "userId",
			Message: "userId is required",
		})
	}

	if r.Latitude == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude is required",
		})
	} else if !validator.IsValidLatitude(*r.Latitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if r.Longitude == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude is required",
		})
	} else if !validator.IsValidLongitude(*r.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if !validator.IsInSlice(string(r.CheckinType), []string{string(TypeIn), string(TypeOut)}) {
		errs = append(errs, validator.ValidationError{
			Field:   "checkinType",
			Message: "checkinType must be in or out",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Date         string
	EmployeeCode string
}

func (f *Filter) Validate() error {
	if f.Date == "" {
		return nil
	}
	if _, ok := validator.IsValidDate(f.Date); !ok {
		return validator.ValidationErrors{{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		}}
	}
	return nil
}

// UploadPhotoRequest is the multipart form posted by the LIFF camera page.
type UploadPhotoRequest struct {
	UserID     string // optional, adds the employee to the watermark
	File       multipart.File
	FileHeader *multipart.FileHeader
	Latitude   *float64
	Longitude  *float64
	Address    string
	Timestamp  string
}

func (r *UploadPhotoRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.File == nil || r.FileHeader == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "image",
			Message: "Missing required fields: image, latitude, or longitude",
		})
	} else if r.FileHeader.Size > 10<<20 {
		errs = append(errs, validator.ValidationError{
			Field:   "image",
			Message: "image size must not exceed 10MB",
		})
	}
	if r.Latitude == nil || r.Longitude == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "Missing required fields: image, latitude, or longitude",
		})
	} else if !validator.IsValidLatitude(*r.Latitude) || !validator.IsValidLongitude(*r.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude/longitude out of range",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type UploadPhotoResponse struct {
	ImageURL  string  `json:"imageUrl"`
	Filename  string  `json:"filename"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
	Timestamp string  `json:"timestamp"`
}
