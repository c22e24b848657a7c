package linebot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/domain/registration"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/line"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/upstream"
	"github.com/cmlabs-hris/linebot-hrm/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMessenger struct{ mock.Mock }

func (m *mockMessenger) Push(ctx context.Context, to string, messages ...line.Message) upstream.Result[struct{}] {
	args := m.Called(ctx, to, messages)
	return args.Get(0).(upstream.Result[struct{}])
}

func (m *mockMessenger) Reply(ctx context.Context, replyToken string, messages ...line.Message) upstream.Result[struct{}] {
	args := m.Called(ctx, replyToken, messages)
	return args.Get(0).(upstream.Result[struct{}])
}

func textEvent(userID, replyToken, text string) line.Event {
	return line.Event{
		Type:       line.EventTypeMessage,
		ReplyToken: replyToken,
		Source:     line.EventSource{Type: "user", UserID: userID},
		Message:    &line.EventMessage{ID: "m1", Type: line.MessageTypeText, Text: text},
	}
}

func setup(t *testing.T) (*linebotServiceImpl, registration.Repository, *mockMessenger) {
	t.Helper()
	regs := memory.NewRegistrationRepository()
	messenger := &mockMessenger{}
	svc := NewLinebotService(regs, messenger, time.FixedZone("ICT", 7*60*60)).(*linebotServiceImpl)
	return svc, regs, messenger
}

func TestHandleEvents_PersonalRegistered(t *testing.T) {
	svc, regs, messenger := setup(t)
	ctx := context.Background()

	_, err := regs.Create(ctx, registration.Registration{
		DeptCode: "D01", DeptName: "Operations", EmpCode: "1001",
		Prefix: "นาย", FirstName: "สมชาย", LastName: "ใจดี",
		Mobile: "0812345678", LineID: "somchai", LineUserID: "U1",
		CreatedAt: time.Date(2026, 10, 16, 2, 5, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var sent []line.Message
	messenger.On("Reply", mock.Anything, "token-1", mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(2).([]line.Message) }).
		Return(upstream.OK(struct{}{}, 200)).Once()

	replies := svc.HandleEvents(ctx, []line.Event{textEvent("U1", "token-1", "  Personal ")})
	assert.Equal(t, 1, replies)
	messenger.AssertExpectations(t)

	require.Len(t, sent, 1)
	text := sent[0].(line.TextMessage).Text
	assert.Equal(t, "ข้อมูลการลงทะเบียนของคุณ\n"+
		"ชื่อ: นาย สมชาย ใจดี\n"+
		"หน่วยงาน: Operations (D01)\n"+
		"รหัสพนักงาน: 1001\n"+
		"เบอร์: 0812345678\n"+
		"LINE: somchai\n"+
		"ลงทะเบียนเมื่อ: 16/10/2026 09:05", text)
}

func TestHandleEvents_PersonalSeveralRegistrations(t *testing.T) {
	svc, _, messenger := setup(t)
	svc.registrations = stubRegistrations{regs: []registration.Registration{
		{EmpCode: "1001", LineUserID: "U1"},
		{EmpCode: "1002", LineUserID: "U1"},
	}}

	var sent []line.Message
	messenger.On("Reply", mock.Anything, "token-1", mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(2).([]line.Message) }).
		Return(upstream.OK(struct{}{}, 200)).Once()

	assert.Equal(t, 1, svc.HandleEvents(context.Background(), []line.Event{textEvent("U1", "token-1", "personal")}))

	text := sent[0].(line.TextMessage).Text
	assert.Equal(t, 1, strings.Count(text, "\n"+strings.Repeat("─", 23)+"\n\n"))
	assert.Contains(t, text, "รหัสพนักงาน: 1002")
}

func TestHandleEvents_PersonalNotRegistered(t *testing.T) {
	svc, _, messenger := setup(t)

	messenger.On("Reply", mock.Anything, "token-1", []line.Message{
		line.NewTextMessage("❌ ไม่พบข้อมูลการลงทะเบียนของคุณในระบบ\n\nกรุณาลงทะเบียนก่อนใช้งาน"),
	}).Return(upstream.Disabled[struct{}]()).Once()

	assert.Equal(t, 1, svc.HandleEvents(context.Background(), []line.Event{textEvent("U-unknown", "token-1", "personal")}))
	messenger.AssertExpectations(t)
}

func TestHandleEvents_IgnoresOtherEvents(t *testing.T) {
	svc, _, messenger := setup(t)

	events := []line.Event{
		textEvent("U1", "t1", "hello"),
		{Type: "follow", ReplyToken: "t2", Source: line.EventSource{UserID: "U1"}},
		{Type: line.EventTypeMessage, ReplyToken: "t3", Message: &line.EventMessage{Type: "sticker"}},
		{Type: line.EventTypeMessage, ReplyToken: "t4"},
	}
	assert.Equal(t, 0, svc.HandleEvents(context.Background(), events))
	messenger.AssertNotCalled(t, "Reply", mock.Anything, mock.Anything, mock.Anything)
}

type stubRegistrations struct {
	registration.Repository
	regs []registration.Registration
}

func (s stubRegistrations) ListByLineUserID(ctx context.Context, lineUserID string) ([]registration.Registration, error) {
	return s.regs, nil
}
