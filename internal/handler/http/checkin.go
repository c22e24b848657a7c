package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/domain/checkin"
	"github.com/cmlabs-hris/linebot-hrm/internal/handler/http/response"
	"github.com/cmlabs-hris/linebot-hrm/internal/service/file"
	"github.com/go-chi/chi/v5"
)

type CheckinHandler interface {
	Health(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Today(w http.ResponseWriter, r *http.Request)
	ListByEmployee(w http.ResponseWriter, r *http.Request)
	ServeUpload(w http.ResponseWriter, r *http.Request)
	UploadPhoto(w http.ResponseWriter, r *http.Request)
	LocationFromLIFF(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type CheckinHandlerImpl struct {
	checkinService checkin.Service
	fileService    file.FileService
	loc            *time.Location
	now            func() time.Time
}

func NewCheckinHandler(checkinService checkin.Service, fileService file.FileService, loc *time.Location) CheckinHandler {
	return &CheckinHandlerImpl{
		checkinService: checkinService,
		fileService:    fileService,
		loc:            loc,
		now:            time.Now,
	}
}

type checkinHealthResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	Timestamp     string `json:"timestamp"`
	UploadDir     string `json:"upload_dir"`
	TotalCheckins int    `json:"total_checkins"`
}

type checkinListResponse struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	Date         string          `json:"date,omitempty"`
	EmployeeCode string          `json:"employeeCode,omitempty"`
	Count        int             `json:"count"`
	Records      []checkin.Event `json:"records"`
}

type uploadPhotoResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	checkin.UploadPhotoResponse
}

type recordResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Record  checkin.Event `json:"record"`
}

// Health implements CheckinHandler.
func (h *CheckinHandlerImpl) Health(w http.ResponseWriter, r *http.Request) {
	total, err := h.checkinService.Count(r.Context())
	if err != nil {
		slog.Error("Failed to count check-ins", "error", err)
		response.HandleError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, checkinHealthResponse{
		Status:        "OK",
		Message:       "Check-In Server is running",
		Timestamp:     h.now().In(h.loc).Format(time.RFC3339),
		UploadDir:     h.fileService.Dir(),
		TotalCheckins: total,
	})
}

// List implements CheckinHandler.
func (h *CheckinHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := checkin.Filter{
		Date:         r.URL.Query().Get("date"),
		EmployeeCode: r.URL.Query().Get("employeeCode"),
	}
	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	events, err := h.checkinService.List(r.Context(), filter)
	if err != nil {
		slog.Error("Failed to list check-ins", "error", err)
		response.HandleError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, checkinListResponse{
		Success: true,
		Message: "ดึงข้อมูลเช็คอินสำเร็จ",
		Count:   len(events),
		Records: orEmpty(events),
	})
}

// Today implements CheckinHandler.
func (h *CheckinHandlerImpl) Today(w http.ResponseWriter, r *http.Request) {
	date, events, err := h.checkinService.Today(r.Context())
	if err != nil {
		slog.Error("Failed to list today's check-ins", "error", err)
		response.HandleError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, checkinListResponse{
		Success: true,
		Message: fmt.Sprintf("ข้อมูลเช็คอินวันนี้ (%s)", date),
		Date:    date,
		Count:   len(events),
		Records: orEmpty(events),
	})
}

// ListByEmployee implements CheckinHandler.
func (h *CheckinHandlerImpl) ListByEmployee(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	events, err := h.checkinService.List(r.Context(), checkin.Filter{EmployeeCode: code})
	if err != nil {
		slog.Error("Failed to list employee check-ins", "employee_code", code, "error", err)
		response.HandleError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, checkinListResponse{
		Success:      true,
		Message:      fmt.Sprintf("ข้อมูลเช็คอินของพนักงาน %s", code),
		EmployeeCode: code,
		Count:        len(events),
		Records:      orEmpty(events),
	})
}

// ServeUpload implements CheckinHandler.
func (h *CheckinHandlerImpl) ServeUpload(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "*")

	rc, contentType, err := h.fileService.Open(r.Context(), filename)
	if err != nil {
		if !errors.Is(err, checkin.ErrPhotoNotFound) {
			slog.Error("Failed to open upload", "filename", filename, "error", err)
		}
		response.HandleError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("Failed to stream upload", "filename", filename, "error", err)
	}
}

// UploadPhoto implements CheckinHandler.
func (h *CheckinHandlerImpl) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		slog.Error("Failed to parse multipart form", "error", err)
		response.BadRequest(w, "Invalid Content-Type, expected multipart/form-data")
		return
	}

	req := checkin.UploadPhotoRequest{
		UserID:    strings.TrimSpace(r.FormValue("userId")),
		Latitude:  formFloat(r, "latitude"),
		Longitude: formFloat(r, "longitude"),
		Address:   r.FormValue("address"),
		Timestamp: r.FormValue("timestamp"),
	}

	f, fileHeader, err := r.FormFile("image")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		slog.Error("Failed to get file from form", "error", err)
		response.BadRequest(w, "Invalid file upload")
		return
	}
	if f != nil {
		defer f.Close()
		req.File = f
		req.FileHeader = fileHeader
	}

	uploaded, err := h.fileService.UploadCheckinPhoto(r.Context(), req)
	if err != nil {
		slog.Error("Upload photo error", "error", err)
		response.HandleError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, uploadPhotoResponse{
		Success:             true,
		Message:             "อัปโหลดรูปภาพสำเร็จ",
		UploadPhotoResponse: uploaded,
	})
}

// LocationFromLIFF implements CheckinHandler.
func (h *CheckinHandlerImpl) LocationFromLIFF(w http.ResponseWriter, r *http.Request) {
	var req checkin.LocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Location decode error", "error", err)
		response.BadRequest(w, "Invalid request format")
		return
	}

	event, err := h.checkinService.Record(r.Context(), req)
	if err != nil {
		slog.Error("Location API error", "user_id", req.UserID, "error", err)
		response.HandleError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, recordResponse{
		Success: true,
		Message: "บันทึกการเช็คอินสำเร็จ",
		Record:  event,
	})
}

// Stream pushes newly recorded check-ins as server-sent events. The optional
// employeeCode query narrows the feed to one employee.
func (h *CheckinHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	employeeCode := strings.TrimSpace(r.URL.Query().Get("employeeCode"))
	events, cleanup := h.checkinService.Subscribe(employeeCode)
	defer cleanup()

	connected, _ := json.Marshal(map[string]string{"status": "connected", "employeeCode": employeeCode})
	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", connected)
	flusher.Flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				slog.Warn("Failed to encode stream event", "event", event.Name, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", h.now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// formFloat returns nil when the field is missing or not a number.
func formFloat(r *http.Request, key string) *float64 {
	raw := strings.TrimSpace(r.FormValue(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func orEmpty(events []checkin.Event) []checkin.Event {
	if events == nil {
		return []checkin.Event{}
	}
	return events
}
