package line

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

const callbackBody = `{"destination":"Ubot","events":[
	{"type":"message","mode":"active","timestamp":1760580000000,"webhookEventId":"e1",
	 "deliveryContext":{"isRedelivery":false},"replyToken":"rt-1",
	 "source":{"type":"user","userId":"U1"},
	 "message":{"id":"m1","type":"text","quoteToken":"q","text":"personal"}},
	{"type":"message","mode":"active","timestamp":1760580000001,"webhookEventId":"e2",
	 "deliveryContext":{"isRedelivery":false},"replyToken":"rt-2",
	 "source":{"type":"group","groupId":"G1","userId":"U2"},
	 "message":{"id":"m2","type":"sticker","packageId":"1","stickerId":"1","stickerResourceType":"STATIC","quoteToken":"q2"}},
	{"type":"follow","mode":"active","timestamp":1760580000002,"webhookEventId":"e3",
	 "deliveryContext":{"isRedelivery":false},"replyToken":"rt-3",
	 "source":{"type":"user","userId":"U3"},"follow":{"isUnblocked":false}}
]}`

func callbackRequest(body, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Line-Signature", signature)
	}
	return req
}

func TestParseWebhook(t *testing.T) {
	events, err := ParseWebhook("secret", callbackRequest(callbackBody, sign("secret", []byte(callbackBody))))
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, EventTypeMessage, events[0].Type)
	assert.Equal(t, "rt-1", events[0].ReplyToken)
	assert.Equal(t, EventSource{Type: "user", UserID: "U1"}, events[0].Source)
	require.NotNil(t, events[0].Message)
	assert.Equal(t, EventMessage{ID: "m1", Type: MessageTypeText, Text: "personal"}, *events[0].Message)

	assert.Equal(t, EventSource{Type: "group", UserID: "U2", GroupID: "G1"}, events[1].Source)
	require.NotNil(t, events[1].Message)
	assert.Equal(t, "sticker", events[1].Message.Type)

	assert.Equal(t, "follow", events[2].Type)
	assert.Nil(t, events[2].Message)
}

func TestParseWebhook_Signature(t *testing.T) {
	body := []byte(callbackBody)
	for _, signature := range []string{"", sign("other-secret", body), "bm90LXRoZS1zaWduYXR1cmU="} {
		_, err := ParseWebhook("secret", callbackRequest(callbackBody, signature))
		assert.ErrorIs(t, err, ErrInvalidSignature)
	}

	events, err := ParseWebhook("", callbackRequest(callbackBody, ""))
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestParseWebhook_Malformed(t *testing.T) {
	_, err := ParseWebhook("secret", callbackRequest(`{not json`, sign("secret", []byte(`{not json`))))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = ParseWebhook("", callbackRequest(`{not json`, ""))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestClient_Push(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/bot/message/push", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token", time.Second)
	res := c.Push(context.Background(), "U123",
		NewImageMessage("https://example.com/a.jpg"),
		NewTextMessage("hello"),
		NewFlexMessage("summary", NewCard("Check-in", "#1DB446", []CardRow{{Label: "Name", Value: "Somchai"}})),
	)

	require.True(t, res.OK(), "outcome=%s err=%v", res.Outcome, res.Err)
	assert.Equal(t, "U123", got["to"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, "image", msgs[0].(map[string]any)["type"])
	assert.Equal(t, "https://example.com/a.jpg", msgs[0].(map[string]any)["previewImageUrl"])
	assert.Equal(t, "hello", msgs[1].(map[string]any)["text"])

	flex := msgs[2].(map[string]any)
	assert.Equal(t, "flex", flex["type"])
	assert.Equal(t, "summary", flex["altText"])
	assert.Equal(t, "bubble", flex["contents"].(map[string]any)["type"])
	assert.Contains(t, mustMarshal(t, flex), "Somchai")
}

func mustMarshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestClient_Reply_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/bot/message/reply", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Invalid reply token"}`))
	}))
	defer srv.Close()

	res := NewClient(srv.URL, "token", time.Second).Reply(context.Background(), "rt", NewTextMessage("hi"))
	assert.Equal(t, upstream.OutcomeUnavailable, res.Outcome)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestClient_NoToken(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", time.Second)
	assert.Equal(t, upstream.OutcomeDisabled, c.Push(context.Background(), "U1", NewTextMessage("x")).Outcome)
	assert.Equal(t, upstream.OutcomeDisabled, c.Reply(context.Background(), "rt", NewTextMessage("x")).Outcome)
}

func TestNewFlexMessage_TruncatesAltText(t *testing.T) {
	msg := NewFlexMessage(strings.Repeat("ก", 500), NewCard("title", "#1DB446", []CardRow{{Label: "a", Value: ""}}))

	assert.Equal(t, "flex", msg.Type)
	assert.Len(t, []rune(msg.AltText), maxAltText)

	encoded, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"type":"bubble"`)
	assert.Contains(t, string(encoded), `"text":"-"`)

	converted, err := msg.toSDK()
	require.NoError(t, err)
	assert.Equal(t, "flex", converted.GetType())
}
