package line

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

// Event is the part of a webhook event the bot acts on.
type Event struct {
	Type       string
	ReplyToken string
	Timestamp  int64
	Source     EventSource
	Message    *EventMessage
}

type EventSource struct {
	Type    string
	UserID  string
	GroupID string
	RoomID  string
}

type EventMessage struct {
	ID   string
	Type string
	Text string
}

// Webhook event types handled by the bot.
const (
	EventTypeMessage = "message"
	MessageTypeText  = "text"
)

// ParseWebhook reads and decodes a callback request. With a channel secret
// the X-Line-Signature header is checked before anything is decoded; an empty
// secret accepts unsigned requests. Body read errors, such as
// *http.MaxBytesError, are returned unwrapped.
func ParseWebhook(channelSecret string, r *http.Request) ([]Event, error) {
	var cb *webhook.CallbackRequest
	if channelSecret != "" {
		parsed, err := webhook.ParseRequest(channelSecret, r)
		if err != nil {
			var tooLarge *http.MaxBytesError
			switch {
			case errors.Is(err, webhook.ErrInvalidSignature):
				return nil, ErrInvalidSignature
			case errors.As(err, &tooLarge):
				return nil, err
			default:
				return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
			}
		}
		cb = parsed
	} else {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		cb = &webhook.CallbackRequest{}
		if err := json.Unmarshal(body, cb); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
	}

	events := make([]Event, 0, len(cb.Events))
	for _, e := range cb.Events {
		events = append(events, fromSDKEvent(e))
	}
	return events, nil
}

func fromSDKEvent(e webhook.EventInterface) Event {
	switch ev := e.(type) {
	case nil:
		return Event{}
	case webhook.MessageEvent:
		event := Event{
			Type:       EventTypeMessage,
			ReplyToken: ev.ReplyToken,
			Timestamp:  ev.Timestamp,
			Source:     fromSDKSource(ev.Source),
		}
		switch m := ev.Message.(type) {
		case webhook.TextMessageContent:
			event.Message = &EventMessage{ID: m.Id, Type: MessageTypeText, Text: m.Text}
		case nil:
		default:
			event.Message = &EventMessage{Type: m.GetType()}
		}
		return event
	default:
		return Event{Type: e.GetType()}
	}
}

func fromSDKSource(s webhook.SourceInterface) EventSource {
	switch src := s.(type) {
	case webhook.UserSource:
		return EventSource{Type: "user", UserID: src.UserId}
	case webhook.GroupSource:
		return EventSource{Type: "group", UserID: src.UserId, GroupID: src.GroupId}
	case webhook.RoomSource:
		return EventSource{Type: "room", UserID: src.UserId, RoomID: src.RoomId}
	default:
		return EventSource{}
	}
}
