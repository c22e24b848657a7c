package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/linebot-hrm/internal/domain/checkin"
	"github.com/cmlabs-hris/linebot-hrm/internal/domain/registration"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/validator"
)

const (
	MsgNotFound        = "ไม่พบข้อมูล"
	MsgEmpCodeExists   = "รหัสพนักงานนี้ถูกลงทะเบียนแล้ว"
	MsgLineUserExists  = "บัญชี LINE นี้ถูกลงทะเบียนแล้ว"
	MsgUnexpectedError = "เกิดข้อผิดพลาด: "
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.First(), validationErrs.ToMap())
		return
	}

	switch {
	// Registration domain errors
	case errors.Is(err, registration.ErrRegistrationNotFound):
		NotFound(w, MsgNotFound)
	case errors.Is(err, registration.ErrEmpCodeExists):
		BadRequest(w, MsgEmpCodeExists)
	case errors.Is(err, registration.ErrLineUserExists):
		BadRequest(w, MsgLineUserExists)

	// Check-in domain errors
	case errors.Is(err, checkin.ErrPhotoNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, checkin.ErrInvalidPhoto), errors.Is(err, checkin.ErrInvalidRequest):
		BadRequest(w, err.Error())

	default:
		InternalServerError(w, MsgUnexpectedError+err.Error())
	}
}
