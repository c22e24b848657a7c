package checkin

import (
	"context"

	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/sse"
)

type Service interface {
	// Record runs the check-in/check-out transition for req, appends the
	// event and notifies the user.
	Record(ctx context.Context, req LocationRequest) (Event, error)
	List(ctx context.Context, filter Filter) ([]Event, error)
	// Today returns the local date and its events.
	Today(ctx context.Context) (string, []Event, error)
	Count(ctx context.Context) (int, error)
	// Subscribe streams newly recorded events, all of them when
	// employeeCode is empty.
	Subscribe(employeeCode string) (<-chan sse.Event, func())
}
