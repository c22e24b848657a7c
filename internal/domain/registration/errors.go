package registration

import "errors"

var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrEmpCodeExists        = errors.New("employee code already registered")
	ErrLineUserExists       = errors.New("LINE account already registered")
)
