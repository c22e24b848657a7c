package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/domain/checkin"
	"github.com/cmlabs-hris/linebot-hrm/internal/domain/registration"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/hrapi"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/line"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/sse"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/storage"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/watermark"
	"github.com/cmlabs-hris/linebot-hrm/internal/repository/jsonfile"
	"github.com/cmlabs-hris/linebot-hrm/internal/repository/memory"
	checkinService "github.com/cmlabs-hris/linebot-hrm/internal/service/checkin"
	"github.com/cmlabs-hris/linebot-hrm/internal/service/file"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTimeRecordAPI records the calls made to the HR time record endpoints.
type fakeTimeRecordAPI struct {
	mu      sync.Mutex
	creates []hrapi.CreateTimeRecord
	updates map[string]hrapi.UpdateTimeRecord
}

func (f *fakeTimeRecordAPI) handler() http.Handler {
	f.updates = map[string]hrapi.UpdateTimeRecord{}
	r := chi.NewRouter()
	r.Post("/createtimerecordemployee", func(w http.ResponseWriter, r *http.Request) {
		var req hrapi.CreateTimeRecord
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.creates = append(f.creates, req)
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"result":{"employee_record":[{"_id":"tr-1"}]}}`))
	})
	r.Put("/updatetimerecordemployee/{id}", func(w http.ResponseWriter, r *http.Request) {
		var req hrapi.UpdateTimeRecord
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.updates[chi.URLParam(r, "id")] = req
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	return r
}

func (f *fakeTimeRecordAPI) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates), len(f.updates)
}

type checkinServer struct {
	router        *chi.Mux
	registrations registration.Repository
	log           checkin.Repository
	timeRecords   *fakeTimeRecordAPI
}

func newCheckinServer(t *testing.T) *checkinServer {
	t.Helper()

	timeRecords := &fakeTimeRecordAPI{}
	hrAPI := httptest.NewServer(timeRecords.handler())
	t.Cleanup(hrAPI.Close)

	lineAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(lineAPI.Close)

	log, err := jsonfile.NewCheckinRepository(filepath.Join(t.TempDir(), "checkin_records.json"))
	require.NoError(t, err)
	fileStorage, err := storage.NewLocalStorage(t.TempDir(), "http://localhost:3001/uploads")
	require.NoError(t, err)

	regs := memory.NewRegistrationRepository()
	loc := time.FixedZone("ICT", 7*60*60)
	files := file.NewFileService(fileStorage, watermark.NewAnnotator(nil), regs, loc)

	svc := checkinService.NewCheckinService(
		log,
		regs,
		hrapi.NewDirectory(false, "", time.Second),
		hrapi.NewTimeRecords(hrAPI.URL, time.Second),
		line.NewClient(lineAPI.URL, "test-token", time.Second),
		files,
		sse.NewHub(),
		loc,
	)

	return &checkinServer{
		router:        NewCheckinRouter(testRouterOptions, NewCheckinHandler(svc, files, loc)),
		registrations: regs,
		log:           log,
		timeRecords:   timeRecords,
	}
}

func (s *checkinServer) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *checkinServer) postLocation(t *testing.T, body map[string]interface{}) (int, recordResponse) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/location-from-liff", bytes.NewReader(mustJSON(t, body)), "application/json")
	var resp recordResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec.Code, resp
}

func locationBody(userID, checkinType string) map[string]interface{} {
	return map[string]interface{}{
		"userId":      userID,
		"displayName": "Somchai",
		"latitude":    13.7563,
		"longitude":   100.5018,
		"address":     "Bangkok",
		"accuracy":    12.5,
		"shift":       "day",
		"checkinType": checkinType,
	}
}

func TestLocationFromLIFF_CheckinThenCheckout(t *testing.T) {
	s := newCheckinServer(t)
	ctx := context.Background()

	_, err := s.registrations.Create(ctx, registration.Registration{
		DeptCode: "D01", DeptName: "Operations", EmpCode: "1001",
		FirstName: "Somchai", LastName: "Jaidee", LineUserID: "U1",
		Status: registration.StatusActive,
	})
	require.NoError(t, err)

	code, in := s.postLocation(t, locationBody("U1", "in"))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "บันทึกการเช็คอินสำเร็จ", in.Message)
	assert.Equal(t, checkin.StatusRegistered, in.Record.Status)
	require.NotNil(t, in.Record.TimeRecord)
	assert.True(t, in.Record.TimeRecord.Synced)
	assert.Equal(t, "tr-1", in.Record.TimeRecord.ID)

	reg, err := s.registrations.GetByLineUserID(ctx, "U1")
	require.NoError(t, err)
	require.NotNil(t, reg.TodayCheckin)
	assert.Equal(t, in.Record.Date, reg.TodayCheckin.Date)
	assert.Equal(t, "tr-1", reg.TodayCheckin.TimeRecordID)

	code, out := s.postLocation(t, locationBody("U1", "out"))
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, out.Record.TimeRecord)
	assert.True(t, out.Record.TimeRecord.Synced)
	assert.Equal(t, reg.TodayCheckin.StartTime, out.Record.TimeRecord.StartTime)

	reg, err = s.registrations.GetByLineUserID(ctx, "U1")
	require.NoError(t, err)
	assert.Nil(t, reg.TodayCheckin)

	creates, updates := s.timeRecords.calls()
	assert.Equal(t, 1, creates)
	assert.Equal(t, 1, updates)
	assert.Equal(t, out.Record.TimeRecord.TotalTime, s.timeRecords.updates["tr-1"].TotalTime)
}

func TestLocationFromLIFF_CheckoutWithoutCheckin(t *testing.T) {
	s := newCheckinServer(t)

	_, err := s.registrations.Create(context.Background(), registration.Registration{
		DeptCode: "D01", DeptName: "Operations", EmpCode: "1001", LineUserID: "U1",
	})
	require.NoError(t, err)

	code, out := s.postLocation(t, locationBody("U1", "out"))
	require.Equal(t, http.StatusOK, code)
	assert.True(t, out.Success)
	assert.Nil(t, out.Record.TimeRecord)

	creates, updates := s.timeRecords.calls()
	assert.Zero(t, creates)
	assert.Zero(t, updates)

	count, err := s.log.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLocationFromLIFF_Rejections(t *testing.T) {
	s := newCheckinServer(t)

	body := locationBody("U1", "in")
	delete(body, "latitude")
	code, _ := s.postLocation(t, body)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.postLocation(t, locationBody("U1", "sideways"))
	assert.Equal(t, http.StatusBadRequest, code)

	rec := s.do(t, http.MethodPost, "/api/location-from-liff", strings.NewReader("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckins_TodayOnlyReturnsToday(t *testing.T) {
	s := newCheckinServer(t)
	ctx := context.Background()

	for i, date := range []string{"2020-01-01", "2020-01-02", "2020-01-03"} {
		require.NoError(t, s.log.Append(ctx, checkin.Event{ID: string(rune('a' + i)), Date: date}))
	}
	code, _ := s.postLocation(t, locationBody("U-guest", "in"))
	require.Equal(t, http.StatusOK, code)

	rec := s.do(t, http.MethodGet, "/api/checkins/today", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var today checkinListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &today))
	assert.Equal(t, 1, today.Count)
	require.Len(t, today.Records, 1)
	assert.Equal(t, today.Date, today.Records[0].Date)
	assert.Equal(t, checkin.StatusUnregistered, today.Records[0].Status)

	rec = s.do(t, http.MethodGet, "/api/checkins", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all checkinListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Equal(t, 4, all.Count)
	assert.Equal(t, "ดึงข้อมูลเช็คอินสำเร็จ", all.Message)

	rec = s.do(t, http.MethodGet, "/api/checkins?date=2020-01-02", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var byDate checkinListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &byDate))
	assert.Equal(t, 1, byDate.Count)

	rec = s.do(t, http.MethodGet, "/api/checkins?date=02/01/2020", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/checkins/employee/1001", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var byEmployee checkinListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &byEmployee))
	assert.Equal(t, "1001", byEmployee.EmployeeCode)
	assert.Equal(t, 0, byEmployee.Count)
	assert.NotNil(t, byEmployee.Records)
}

func photoForm(t *testing.T, fields map[string]string, withImage bool) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if withImage {
		part, err := mw.CreateFormFile("image", "camera.jpg")
		require.NoError(t, err)
		require.NoError(t, jpeg.Encode(part, image.NewRGBA(image.Rect(0, 0, 320, 240)), nil))
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestUploadPhoto_ThenServe(t *testing.T) {
	s := newCheckinServer(t)

	body, contentType := photoForm(t, map[string]string{
		"latitude":  "13.7563",
		"longitude": "100.5018",
		"timestamp": "2026-10-16T08:30:15+07:00",
	}, true)
	rec := s.do(t, http.MethodPost, "/api/upload-photo", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var uploaded uploadPhotoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploaded))
	assert.True(t, uploaded.Success)
	assert.Equal(t, "อัปโหลดรูปภาพสำเร็จ", uploaded.Message)
	assert.Regexp(t, `^checkin_\d{8}_\d{6}_[0-9a-f]{8}\.jpg$`, uploaded.Filename)
	assert.Equal(t, "http://localhost:3001/uploads/"+uploaded.Filename, uploaded.ImageURL)
	assert.Equal(t, checkin.DefaultAddress, uploaded.Address)

	rec = s.do(t, http.MethodGet, "/uploads/"+uploaded.Filename, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	_, err := jpeg.Decode(rec.Body)
	assert.NoError(t, err)

	rec = s.do(t, http.MethodGet, "/uploads/missing.jpg", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadPhoto_MissingFields(t *testing.T) {
	s := newCheckinServer(t)

	body, contentType := photoForm(t, map[string]string{"latitude": "13.7"}, true)
	rec := s.do(t, http.MethodPost, "/api/upload-photo", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, contentType = photoForm(t, map[string]string{"latitude": "13.7", "longitude": "100.5"}, false)
	rec = s.do(t, http.MethodPost, "/api/upload-photo", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/upload-photo", strings.NewReader(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckinServer_HealthAndNotFound(t *testing.T) {
	s := newCheckinServer(t)
	require.NoError(t, s.log.Append(context.Background(), checkin.Event{ID: "a", Date: "2020-01-01"}))

	rec := s.do(t, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health checkinHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "OK", health.Status)
	assert.Equal(t, "Check-In Server is running", health.Message)
	assert.Equal(t, 1, health.TotalCheckins)
	assert.NotEmpty(t, health.UploadDir)

	rec = s.do(t, http.MethodGet, "/api/nothing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Endpoint not found"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

// readEvent returns the next event name and data line from an SSE stream.
func readEvent(t *testing.T, scanner *bufio.Scanner) (string, string) {
	t.Helper()
	var name, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
	require.NoError(t, scanner.Err())
	t.Fatal("stream closed")
	return "", ""
}

func TestCheckins_Stream(t *testing.T) {
	s := newCheckinServer(t)
	_, err := s.registrations.Create(context.Background(), registration.Registration{
		DeptCode: "D01", DeptName: "Operations", EmpCode: "1001",
		FirstName: "Somchai", LastName: "Jaidee", LineUserID: "U1",
		Status: registration.StatusActive,
	})
	require.NoError(t, err)

	server := httptest.NewServer(s.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/checkins/stream?employeeCode=1001", nil)
	require.NoError(t, err)
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	name, data := readEvent(t, scanner)
	assert.Equal(t, "connected", name)
	assert.JSONEq(t, `{"status":"connected","employeeCode":"1001"}`, data)

	// Another employee's check-in is not delivered on this stream.
	code, _ := s.postLocation(t, locationBody("U-other", "in"))
	require.Equal(t, http.StatusOK, code)
	code, recorded := s.postLocation(t, locationBody("U1", "in"))
	require.Equal(t, http.StatusOK, code)

	name, data = readEvent(t, scanner)
	assert.Equal(t, "checkin", name)
	var event checkin.Event
	require.NoError(t, json.Unmarshal([]byte(data), &event))
	assert.Equal(t, recorded.Record.ID, event.ID)
	require.NotNil(t, event.EmployeeCode)
	assert.Equal(t, "1001", *event.EmployeeCode)
}
