package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/domain/registration"
	"github.com/cmlabs-hris/linebot-hrm/internal/service/file"
)

type RegistrationServiceImpl struct {
	registrationRepo registration.Repository
	fileService      file.FileService
	now              func() time.Time
}

func NewRegistrationService(registrationRepo registration.Repository, fileService file.FileService) registration.Service {
	return &RegistrationServiceImpl{
		registrationRepo: registrationRepo,
		fileService:      fileService,
		now:              time.Now,
	}
}

// Register implements registration.Service.
func (s *RegistrationServiceImpl) Register(ctx context.Context, req registration.RegisterRequest) (registration.RegistrationResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return registration.RegistrationResponse{}, err
	}

	// Checked up front so a rejected registration leaves no photo behind;
	// the unique indexes still decide concurrent attempts.
	if _, err := s.registrationRepo.GetByEmpCode(ctx, req.EmpCode); err == nil {
		return registration.RegistrationResponse{}, registration.ErrEmpCodeExists
	} else if !errors.Is(err, registration.ErrRegistrationNotFound) {
		return registration.RegistrationResponse{}, err
	}
	if req.LineUserID != "" {
		if _, err := s.registrationRepo.GetByLineUserID(ctx, req.LineUserID); err == nil {
			return registration.RegistrationResponse{}, registration.ErrLineUserExists
		} else if !errors.Is(err, registration.ErrRegistrationNotFound) {
			return registration.RegistrationResponse{}, err
		}
	}

	var photoURL string
	if req.Photo != nil && req.PhotoHeader != nil && s.fileService != nil {
		url, err := s.fileService.UploadRegistrationPhoto(ctx, req.EmpCode, req.Photo, req.PhotoHeader.Filename)
		if err != nil {
			return registration.RegistrationResponse{}, fmt.Errorf("failed to store photo: %w", err)
		}
		photoURL = url
	}

	created, err := s.registrationRepo.Create(ctx, registration.Registration{
		DeptCode:        req.DeptCode,
		DeptName:        req.DeptName,
		EmpCode:         req.EmpCode,
		Prefix:          req.Prefix,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Mobile:          req.Mobile,
		LineID:          req.LineID,
		LineUserID:      req.LineUserID,
		LineDisplayName: req.LineDisplayName,
		PhotoURL:        photoURL,
		Status:          registration.StatusActive,
		CreatedAt:       s.now(),
	})
	if err != nil {
		if photoURL != "" {
			if delErr := s.fileService.DeletePhoto(ctx, photoURL); delErr != nil {
				slog.Warn("Orphaned registration photo not removed", "emp_code", req.EmpCode, "error", delErr)
			}
		}
		return registration.RegistrationResponse{}, err
	}

	slog.Info("Employee registered",
		"emp_code", created.EmpCode,
		"name", created.FullName(),
		"line_user_id", created.LineUserID,
		"has_photo", photoURL != "",
	)
	return registration.NewRegistrationResponse(created), nil
}

// Get implements registration.Service.
func (s *RegistrationServiceImpl) Get(ctx context.Context, empCode string) (registration.RegistrationResponse, error) {
	reg, err := s.registrationRepo.GetByEmpCode(ctx, empCode)
	if err != nil {
		return registration.RegistrationResponse{}, err
	}
	return registration.NewRegistrationResponse(reg), nil
}

// List implements registration.Service.
func (s *RegistrationServiceImpl) List(ctx context.Context) ([]registration.RegistrationResponse, error) {
	regs, err := s.registrationRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]registration.RegistrationResponse, 0, len(regs))
	for _, reg := range regs {
		responses = append(responses, registration.NewRegistrationResponse(reg))
	}
	return responses, nil
}

// Update implements registration.Service.
func (s *RegistrationServiceImpl) Update(ctx context.Context, empCode string, req registration.UpdateRegistrationRequest) (registration.RegistrationResponse, error) {
	if err := req.Validate(); err != nil {
		return registration.RegistrationResponse{}, err
	}
	req.UpdatedAt = s.now()

	updated, err := s.registrationRepo.Update(ctx, empCode, req)
	if err != nil {
		return registration.RegistrationResponse{}, err
	}

	slog.Info("Registration updated", "emp_code", empCode)
	return registration.NewRegistrationResponse(updated), nil
}

// Delete implements registration.Service.
func (s *RegistrationServiceImpl) Delete(ctx context.Context, empCode string) error {
	existing, err := s.registrationRepo.GetByEmpCode(ctx, empCode)
	if err != nil {
		return err
	}
	if err := s.registrationRepo.Delete(ctx, empCode); err != nil {
		return err
	}
	slog.Info("Registration deleted", "emp_code", empCode)

	if existing.PhotoURL != "" && s.fileService != nil {
		if err := s.fileService.DeletePhoto(ctx, existing.PhotoURL); err != nil {
			slog.Warn("Registration photo not removed", "emp_code", empCode, "error", err)
		}
	}
	return nil
}

// Health implements registration.Service.
func (s *RegistrationServiceImpl) Health(ctx context.Context) error {
	return s.registrationRepo.Ping(ctx)
}
