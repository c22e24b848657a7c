package linebot

import (
	"context"

	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/line"
)

// CommandPersonal asks the bot for the sender's own registration details.
const CommandPersonal = "personal"

type Service interface {
	// HandleEvents processes verified webhook events and returns the number
	// of reply calls it made.
	HandleEvents(ctx context.Context, events []line.Event) int
}
