package checkin

import "errors"

var (
	ErrPhotoNotFound  = errors.New("photo not found")
	ErrInvalidPhoto   = errors.New("invalid file type: only jpg, jpeg, png allowed")
	ErrLogUnreadable  = errors.New("attendance log is unreadable")
	ErrInvalidRequest = errors.New("invalid request")
)
