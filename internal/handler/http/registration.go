package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/cmlabs-hris/linebot-hrm/internal/domain/registration"
	"github.com/cmlabs-hris/linebot-hrm/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

const registerFormPage = "register-form.html"

type RegistrationHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	Health(w http.ResponseWriter, r *http.Request)
	Index(w http.ResponseWriter, r *http.Request)
	Static(w http.ResponseWriter, r *http.Request)
}

type RegistrationHandlerImpl struct {
	registrationService registration.Service
	storeName           string
	staticDir           string
	static              http.Handler
}

func NewRegistrationHandler(registrationService registration.Service, storeName string, staticDir string) RegistrationHandler {
	return &RegistrationHandlerImpl{
		registrationService: registrationService,
		storeName:           storeName,
		staticDir:           staticDir,
		static:              http.FileServer(http.Dir(staticDir)),
	}
}

type healthResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Store    string `json:"store"`
	Database string `json:"database,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Register implements RegistrationHandler.
func (h *RegistrationHandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	var req registration.RegisterRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			slog.Error("Failed to parse multipart form", "error", err)
			response.BadRequest(w, "Failed to parse form data")
			return
		}
		req = registration.RegisterRequest{
			DeptCode:        r.FormValue("deptCode"),
			DeptName:        r.FormValue("deptName"),
			EmpCode:         r.FormValue("empCode"),
			Prefix:          r.FormValue("prefix"),
			FirstName:       r.FormValue("firstName"),
			LastName:        r.FormValue("lastName"),
			Mobile:          r.FormValue("mobile"),
			LineID:          r.FormValue("lineId"),
			LineUserID:      r.FormValue("lineUserId"),
			LineDisplayName: r.FormValue("lineDisplayName"),
		}

		file, fileHeader, err := r.FormFile("photo")
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			slog.Error("Failed to get file from form", "error", err)
			response.BadRequest(w, "Invalid file upload")
			return
		}
		if file != nil {
			defer file.Close()
			req.Photo = file
			req.PhotoHeader = fileHeader
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Register decode error", "error", err)
		response.BadRequest(w, "Invalid request format")
		return
	}

	created, err := h.registrationService.Register(r.Context(), req)
	if err != nil {
		slog.Error("Failed to register employee", "emp_code", req.EmpCode, "error", err)
		response.HandleError(w, err)
		return
	}

	response.Created(w, "ลงทะเบียนสำเร็จ", created.ID, created)
}

// List implements RegistrationHandler.
func (h *RegistrationHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	registrations, err := h.registrationService.List(r.Context())
	if err != nil {
		slog.Error("Failed to list registrations", "error", err)
		response.HandleError(w, err)
		return
	}

	response.SuccessWithCount(w, registrations, len(registrations))
}

// Get implements RegistrationHandler.
func (h *RegistrationHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registrationService.Get(r.Context(), chi.URLParam(r, "empCode"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, reg)
}

// Update implements RegistrationHandler.
func (h *RegistrationHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	var req registration.UpdateRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Update registration decode error", "error", err)
		response.BadRequest(w, "Invalid request format")
		return
	}

	empCode := chi.URLParam(r, "empCode")
	updated, err := h.registrationService.Update(r.Context(), empCode, req)
	if err != nil {
		slog.Error("Failed to update registration", "emp_code", empCode, "error", err)
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "อัพเดทข้อมูลสำเร็จ", updated)
}

// Delete implements RegistrationHandler.
func (h *RegistrationHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	empCode := chi.URLParam(r, "empCode")
	if err := h.registrationService.Delete(r.Context(), empCode); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "ลบข้อมูลสำเร็จ", nil)
}

// Health implements RegistrationHandler.
func (h *RegistrationHandlerImpl) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.registrationService.Health(r.Context()); err != nil {
		slog.Error("Store health check failed", "store", h.storeName, "error", err)
		response.JSON(w, http.StatusInternalServerError, healthResponse{
			Message: "Server is running but database connection failed",
			Store:   h.storeName,
			Error:   err.Error(),
		})
		return
	}

	response.JSON(w, http.StatusOK, healthResponse{
		Success:  true,
		Message:  "Server is running",
		Store:    h.storeName,
		Database: "connected",
	})
}

// Index implements RegistrationHandler.
func (h *RegistrationHandlerImpl) Index(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(h.staticDir, registerFormPage))
}

// Static implements RegistrationHandler.
func (h *RegistrationHandlerImpl) Static(w http.ResponseWriter, r *http.Request) {
	h.static.ServeHTTP(w, r)
}
