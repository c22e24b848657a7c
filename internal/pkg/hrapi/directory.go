package hrapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/upstream"
)

// Directory verifies employee codes against the HR search API.
type Directory interface {
	Verify(ctx context.Context, employeeCode string) upstream.Result[Employee]
}

type directoryImpl struct {
	enabled bool
	url     string
	client  *upstream.Client
}

func NewDirectory(enabled bool, searchURL string, timeout time.Duration) Directory {
	return &directoryImpl{
		enabled: enabled,
		url:     searchURL,
		client:  upstream.NewClient("hr_directory", timeout, nil),
	}
}

// Verify implements Directory.
func (d *directoryImpl) Verify(ctx context.Context, employeeCode string) upstream.Result[Employee] {
	employeeCode = strings.TrimSpace(employeeCode)
	if !d.enabled || employeeCode == "" {
		return upstream.Disabled[Employee]()
	}

	res := d.client.Do(ctx, http.MethodPost, d.url, searchRequest{EmployeeID: employeeCode})
	if !res.OK() {
		return upstream.Fail[Employee](res.Outcome, res.StatusCode, res.Err)
	}

	var body searchResponse
	if err := json.Unmarshal(res.Value.Body, &body); err != nil {
		return upstream.Fail[Employee](upstream.OutcomeMalformed, res.StatusCode, fmt.Errorf("failed to decode HR response: %w", err))
	}
	if body.Employees == nil {
		return upstream.Fail[Employee](upstream.OutcomeMalformed, res.StatusCode, fmt.Errorf("HR response has no employees field"))
	}

	for _, raw := range *body.Employees {
		emp, ok := decodeEmployee(raw)
		if !ok {
			continue
		}
		if emp.EmployeeID() == employeeCode {
			slog.Info("Employee verified in HR system", "employee_code", employeeCode, "name", emp.FullName())
			return upstream.OK(emp, res.StatusCode)
		}
	}

	slog.Info("Employee code not found in HR system", "employee_code", employeeCode, "candidates", len(*body.Employees))
	return upstream.Fail[Employee](upstream.OutcomeNotFound, res.StatusCode, nil)
}

// decodeEmployee reads one candidate, keeping numbers exact. Entries that are
// not objects are skipped.
func decodeEmployee(raw json.RawMessage) (Employee, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var emp Employee
	if err := dec.Decode(&emp); err != nil || emp == nil {
		return nil, false
	}
	return emp, true
}
