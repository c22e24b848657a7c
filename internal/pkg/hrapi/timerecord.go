package hrapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/upstream"
)

// TimeRecords creates and closes out workday records in the HR system.
type TimeRecords interface {
	Create(ctx context.Context, req CreateTimeRecord) upstream.Result[string]
	Update(ctx context.Context, recordID string, req UpdateTimeRecord) upstream.Result[struct{}]
}

type timeRecordsImpl struct {
	baseURL string
	client  *upstream.Client
}

// NewTimeRecords builds a client for baseURL, e.g. http://host:3000/timerecord.
func NewTimeRecords(baseURL string, timeout time.Duration) TimeRecords {
	return &timeRecordsImpl{
		baseURL: baseURL,
		client:  upstream.NewClient("time_record", timeout, nil),
	}
}

// Create implements TimeRecords and returns the id of the new day entry.
func (t *timeRecordsImpl) Create(ctx context.Context, req CreateTimeRecord) upstream.Result[string] {
	res := t.client.Do(ctx, http.MethodPost, t.baseURL+"/createtimerecordemployee", req)
	if !res.OK() {
		return upstream.Fail[string](res.Outcome, res.StatusCode, res.Err)
	}

	var body createTimeRecordResponse
	if err := json.Unmarshal(res.Value.Body, &body); err != nil {
		return upstream.Fail[string](upstream.OutcomeMalformed, res.StatusCode, fmt.Errorf("failed to decode time record response: %w", err))
	}
	if body.Result == nil || len(body.Result.EmployeeRecord) == 0 || body.Result.EmployeeRecord[0].ID == "" {
		return upstream.Fail[string](upstream.OutcomeMalformed, res.StatusCode, fmt.Errorf("time record response has no employee_record id"))
	}

	return upstream.OK(body.Result.EmployeeRecord[0].ID, res.StatusCode)
}

// Update implements TimeRecords.
func (t *timeRecordsImpl) Update(ctx context.Context, recordID string, req UpdateTimeRecord) upstream.Result[struct{}] {
	endpoint := t.baseURL + "/updatetimerecordemployee/" + url.PathEscape(recordID)
	res := t.client.Do(ctx, http.MethodPut, endpoint, req)
	if !res.OK() {
		return upstream.Fail[struct{}](res.Outcome, res.StatusCode, res.Err)
	}
	return upstream.OK(struct{}{}, res.StatusCode)
}
