package line

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/metrics"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/upstream"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

const serviceName = "line_messaging"

// Messenger sends messages through the LINE Messaging API.
type Messenger interface {
	Push(ctx context.Context, to string, messages ...Message) upstream.Result[struct{}]
	Reply(ctx context.Context, replyToken string, messages ...Message) upstream.Result[struct{}]
}

// Client wraps the Messaging API SDK client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a Messaging API client. Without an access token every
// call reports OutcomeDisabled.
func NewClient(baseURL, channelAccessToken string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      channelAccessToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// api returns an SDK client bound to ctx. The SDK keeps the context on the
// client, so one is built per call.
func (c *Client) api(ctx context.Context) (*messaging_api.MessagingApiAPI, error) {
	opts := []messaging_api.MessagingApiAPIOption{messaging_api.WithHTTPClient(c.httpClient)}
	if c.baseURL != "" {
		opts = append(opts, messaging_api.WithEndpoint(c.baseURL))
	}
	api, err := messaging_api.NewMessagingApiAPI(c.token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging api client: %w", err)
	}
	return api.WithContext(ctx), nil
}

// Push implements Messenger.
func (c *Client) Push(ctx context.Context, to string, messages ...Message) upstream.Result[struct{}] {
	if c.token == "" || to == "" || len(messages) == 0 {
		slog.Warn("LINE push skipped", "has_token", c.token != "", "has_recipient", to != "", "messages", len(messages))
		return upstream.Disabled[struct{}]()
	}

	res := c.send(ctx, messages, func(api *messaging_api.MessagingApiAPI, sdkMessages []messaging_api.MessageInterface) (*http.Response, error) {
		resp, _, err := api.PushMessageWithHttpInfo(&messaging_api.PushMessageRequest{
			To:       to,
			Messages: sdkMessages,
		}, "")
		return resp, err
	})
	if res.OK() {
		slog.Info("LINE message pushed", "to", to, "messages", len(messages))
	}
	return res
}

// Reply implements Messenger.
func (c *Client) Reply(ctx context.Context, replyToken string, messages ...Message) upstream.Result[struct{}] {
	if c.token == "" || replyToken == "" || len(messages) == 0 {
		slog.Warn("LINE reply skipped", "has_token", c.token != "", "has_reply_token", replyToken != "")
		return upstream.Disabled[struct{}]()
	}

	return c.send(ctx, messages, func(api *messaging_api.MessagingApiAPI, sdkMessages []messaging_api.MessageInterface) (*http.Response, error) {
		resp, _, err := api.ReplyMessageWithHttpInfo(&messaging_api.ReplyMessageRequest{
			ReplyToken: replyToken,
			Messages:   sdkMessages,
		})
		return resp, err
	})
}

type sendFunc func(api *messaging_api.MessagingApiAPI, messages []messaging_api.MessageInterface) (*http.Response, error)

func (c *Client) send(ctx context.Context, messages []Message, fn sendFunc) upstream.Result[struct{}] {
	result := c.doSend(ctx, messages, fn)
	metrics.UpstreamCalls.WithLabelValues(serviceName, string(result.Outcome)).Inc()
	return result
}

func (c *Client) doSend(ctx context.Context, messages []Message, fn sendFunc) upstream.Result[struct{}] {
	sdkMessages := make([]messaging_api.MessageInterface, 0, len(messages))
	for _, m := range messages {
		converted, err := m.toSDK()
		if err != nil {
			return upstream.Fail[struct{}](upstream.OutcomeMalformed, 0, fmt.Errorf("failed to build message: %w", err))
		}
		sdkMessages = append(sdkMessages, converted)
	}

	api, err := c.api(ctx)
	if err != nil {
		return upstream.Fail[struct{}](upstream.OutcomeUnavailable, 0, err)
	}

	resp, err := fn(api, sdkMessages)
	if err != nil {
		if resp != nil {
			slog.Warn("LINE API returned error status", "status", resp.StatusCode, "error", err)
			return upstream.Fail[struct{}](upstream.OutcomeUnavailable, resp.StatusCode, err)
		}
		outcome := upstream.Classify(err)
		slog.Warn("LINE API call failed", "outcome", outcome, "error", err)
		return upstream.Fail[struct{}](outcome, 0, err)
	}
	return upstream.OK(struct{}{}, resp.StatusCode)
}
