package linebot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/domain/linebot"
	"github.com/cmlabs-hris/linebot-hrm/internal/domain/registration"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/line"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/metrics"
)

const (
	notRegisteredText = "❌ ไม่พบข้อมูลการลงทะเบียนของคุณในระบบ\n\nกรุณาลงทะเบียนก่อนใช้งาน"
	personalHeader    = "ข้อมูลการลงทะเบียนของคุณ\n"
)

var registrationSeparator = "\n" + strings.Repeat("─", 23) + "\n\n"

type linebotServiceImpl struct {
	registrations registration.Repository
	messenger     line.Messenger
	loc           *time.Location
}

func NewLinebotService(registrations registration.Repository, messenger line.Messenger, loc *time.Location) linebot.Service {
	return &linebotServiceImpl{
		registrations: registrations,
		messenger:     messenger,
		loc:           loc,
	}
}

// HandleEvents implements linebot.Service.
func (s *linebotServiceImpl) HandleEvents(ctx context.Context, events []line.Event) int {
	replies := 0
	for _, event := range events {
		metrics.WebhookEvents.WithLabelValues(event.Type).Inc()

		if event.Type != line.EventTypeMessage || event.Message == nil || event.Message.Type != line.MessageTypeText {
			slog.Debug("Ignoring webhook event", "type", event.Type)
			continue
		}

		text := strings.ToLower(strings.TrimSpace(event.Message.Text))
		if text != linebot.CommandPersonal {
			slog.Debug("Text does not match a command", "user_id", event.Source.UserID, "text", text)
			continue
		}

		if s.replyPersonal(ctx, event) {
			replies++
		}
	}
	return replies
}

// replyPersonal answers with the sender's registrations and reports whether
// a reply call was made.
func (s *linebotServiceImpl) replyPersonal(ctx context.Context, event line.Event) bool {
	userID := event.Source.UserID

	regs, err := s.registrations.ListByLineUserID(ctx, userID)
	if err != nil {
		slog.Error("Failed to look up registrations for personal command", "user_id", userID, "error", err)
		return false
	}
	slog.Info("Personal command", "user_id", userID, "registrations", len(regs))

	res := s.messenger.Reply(ctx, event.ReplyToken, line.NewTextMessage(s.personalText(regs)))
	if !res.OK() {
		slog.Warn("Personal reply not delivered", "user_id", userID, "outcome", res.Outcome, "error", res.Err)
	}
	return true
}

func (s *linebotServiceImpl) personalText(regs []registration.Registration) string {
	if len(regs) == 0 {
		return notRegisteredText
	}

	var b strings.Builder
	b.WriteString(personalHeader)
	for i, reg := range regs {
		fmt.Fprintf(&b, "ชื่อ: %s\n", reg.FullName())
		fmt.Fprintf(&b, "หน่วยงาน: %s (%s)\n", reg.DeptName, reg.DeptCode)
		fmt.Fprintf(&b, "รหัสพนักงาน: %s\n", reg.EmpCode)
		fmt.Fprintf(&b, "เบอร์: %s\n", reg.Mobile)
		fmt.Fprintf(&b, "LINE: %s\n", reg.LineID)
		if !reg.CreatedAt.IsZero() {
			fmt.Fprintf(&b, "ลงทะเบียนเมื่อ: %s", reg.CreatedAt.In(s.loc).Format("02/01/2006 15:04"))
		}
		if i < len(regs)-1 {
			b.WriteString(registrationSeparator)
		}
	}
	return b.String()
}
