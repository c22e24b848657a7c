package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/linebot-hrm/internal/domain/linebot"
	"github.com/cmlabs-hris/linebot-hrm/internal/handler/http/response"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/line"
)

const (
	signatureHeader = "X-Line-Signature"
	maxWebhookBody  = 1 << 20
)

type WebhookHandler interface {
	Callback(w http.ResponseWriter, r *http.Request)
}

type WebhookHandlerImpl struct {
	linebotService linebot.Service
	channelSecret  string
}

// NewWebhookHandler builds the LINE callback handler. An empty channelSecret
// accepts unsigned requests.
func NewWebhookHandler(linebotService linebot.Service, channelSecret string) WebhookHandler {
	return &WebhookHandlerImpl{
		linebotService: linebotService,
		channelSecret:  channelSecret,
	}
}

// Callback implements WebhookHandler.
func (h *WebhookHandlerImpl) Callback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)

	// Nothing in the payload is looked at before the signature check.
	events, err := line.ParseWebhook(h.channelSecret, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			slog.Warn("Webhook rejected: body too large", "limit", tooLarge.Limit)
			response.JSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "Request body too large"})
		case errors.Is(err, line.ErrInvalidSignature):
			slog.Warn("Webhook rejected: invalid signature", "remote_addr", r.RemoteAddr)
			response.JSON(w, http.StatusForbidden, map[string]string{"error": "Invalid signature"})
		default:
			slog.Error("Webhook decode error", "error", err)
			response.JSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
		}
		return
	}

	replies := h.linebotService.HandleEvents(r.Context(), events)
	slog.Info("Webhook processed", "events", len(events), "replies", replies)

	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
