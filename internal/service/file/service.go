package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // Import for PNG decoding support
	"io"
	"log/slog"
	"math"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/domain/checkin"
	"github.com/cmlabs-hris/linebot-hrm/internal/domain/registration"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/storage"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/watermark"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const (
	checkinPhotoPrefix = "checkin_"
	photoExt           = ".jpg"
	registrationDir    = "registrations"
)

type FileService interface {
	// UploadCheckinPhoto watermarks and stores a LIFF camera picture
	UploadCheckinPhoto(ctx context.Context, req checkin.UploadPhotoRequest) (checkin.UploadPhotoResponse, error)

	// UploadRegistrationPhoto stores a compressed profile photo and returns its URL
	UploadRegistrationPhoto(ctx context.Context, empCode string, file io.Reader, filename string) (string, error)

	// CheckinPhotoURL resolves the photo attached to a check-in. An empty
	// filename picks the newest check-in photo.
	CheckinPhotoURL(ctx context.Context, filename string) (string, error)

	// DeletePhoto removes the stored file behind a URL returned by this
	// service. URLs from elsewhere are ignored.
	DeletePhoto(ctx context.Context, url string) error

	// Open returns a stored upload and its content type
	Open(ctx context.Context, filename string) (io.ReadCloser, string, error)

	// Dir describes where uploads are kept
	Dir() string
}

type fileServiceImpl struct {
	storage       storage.FileStorage
	annotator     *watermark.Annotator
	registrations registration.Repository
	now           func() time.Time
	loc           *time.Location
}

func NewFileService(storage storage.FileStorage, annotator *watermark.Annotator, registrations registration.Repository, loc *time.Location) FileService {
	return &fileServiceImpl{
		storage:       storage,
		annotator:     annotator,
		registrations: registrations,
		now:           time.Now,
		loc:           loc,
	}
}

// UploadCheckinPhoto implements FileService.
func (s *fileServiceImpl) UploadCheckinPhoto(ctx context.Context, req checkin.UploadPhotoRequest) (checkin.UploadPhotoResponse, error) {
	if err := req.Validate(); err != nil {
		return checkin.UploadPhotoResponse{}, err
	}

	ext := strings.ToLower(filepath.Ext(req.FileHeader.Filename))
	if ext != "" && ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
		return checkin.UploadPhotoResponse{}, checkin.ErrInvalidPhoto
	}

	buffer, err := io.ReadAll(req.File)
	if err != nil {
		return checkin.UploadPhotoResponse{}, fmt.Errorf("failed to read image: %w", err)
	}

	now := s.now().In(s.loc)
	if req.Address == "" {
		req.Address = checkin.DefaultAddress
	}
	if req.Timestamp == "" {
		req.Timestamp = now.Format(time.RFC3339)
	}

	stamp := watermark.Stamp{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Address:   req.Address,
		Timestamp: req.Timestamp,
		Employee:  s.identify(ctx, req.UserID),
	}
	stamped := s.annotator.Annotate(buffer, stamp)

	// checkin_YYYYMMDD_HHMMSS_<id>.jpg
	filename := fmt.Sprintf("%s%s_%s%s", checkinPhotoPrefix, now.Format("20060102_150405"), uuid.New().String()[:8], photoExt)
	path, err := s.storage.Upload(ctx, bytes.NewReader(stamped), filename, "image/jpeg")
	if err != nil {
		return checkin.UploadPhotoResponse{}, fmt.Errorf("failed to upload check-in photo: %w", err)
	}

	slog.Info("Check-in photo saved", "filename", path, "bytes", len(stamped))

	return checkin.UploadPhotoResponse{
		ImageURL:  s.storage.GetURL(ctx, path),
		Filename:  path,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Address:   req.Address,
		Timestamp: req.Timestamp,
	}, nil
}

// identify looks up the registered employee for the watermark identity line.
func (s *fileServiceImpl) identify(ctx context.Context, lineUserID string) *watermark.Identity {
	if lineUserID == "" || s.registrations == nil {
		return nil
	}
	reg, err := s.registrations.GetByLineUserID(ctx, lineUserID)
	if err != nil {
		if !errors.Is(err, registration.ErrRegistrationNotFound) {
			slog.Warn("Failed to look up employee for watermark", "line_user_id", lineUserID, "error", err)
		}
		return nil
	}
	return &watermark.Identity{
		EmployeeCode: reg.EmpCode,
		Name:         strings.TrimSpace(reg.FirstName + " " + reg.LastName),
	}
}

// UploadRegistrationPhoto implements FileService.
func (s *fileServiceImpl) UploadRegistrationPhoto(ctx context.Context, empCode string, file io.Reader, filename string) (string, error) {
	// Validate file extension
	ext := strings.ToLower(filepath.Ext(filename))
	allowedExts := []string{".jpg", ".jpeg", ".png"}

	isValid := false
	for _, allowed := range allowedExts {
		if ext == allowed {
			isValid = true
			break
		}
	}

	if !isValid {
		return "", checkin.ErrInvalidPhoto
	}

	buffer, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read photo: %w", err)
	}

	// Compress image to at most 150KB
	compressed, err := compressImage(buffer, 150*1024)
	if err != nil {
		return "", fmt.Errorf("failed to compress photo: %w", err)
	}

	newFilename := fmt.Sprintf("%s-%s%s", safeName(empCode), uuid.New().String(), photoExt)
	path, err := s.storage.Upload(ctx, bytes.NewReader(compressed), filepath.Join(registrationDir, newFilename), "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("failed to upload registration photo: %w", err)
	}

	return s.storage.GetURL(ctx, path), nil
}

// CheckinPhotoURL implements FileService.
func (s *fileServiceImpl) CheckinPhotoURL(ctx context.Context, filename string) (string, error) {
	if filename != "" {
		exists, err := s.storage.Exists(ctx, filename)
		if err != nil {
			return "", fmt.Errorf("failed to check photo %s: %w", filename, err)
		}
		if !exists {
			return "", checkin.ErrPhotoNotFound
		}
		return s.storage.GetURL(ctx, filename), nil
	}

	latest, err := s.storage.Latest(ctx, checkinPhotoPrefix, photoExt)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return "", checkin.ErrPhotoNotFound
		}
		return "", err
	}
	return s.storage.GetURL(ctx, latest), nil
}

// DeletePhoto implements FileService.
func (s *fileServiceImpl) DeletePhoto(ctx context.Context, url string) error {
	base := s.storage.GetURL(ctx, "")
	if !strings.HasPrefix(url, base) {
		return nil
	}
	path := strings.TrimPrefix(url, base)
	if path == "" {
		return nil
	}
	if err := s.storage.Delete(ctx, path); err != nil {
		return fmt.Errorf("failed to delete photo %s: %w", path, err)
	}
	return nil
}

// Open implements FileService.
func (s *fileServiceImpl) Open(ctx context.Context, filename string) (io.ReadCloser, string, error) {
	rc, err := s.storage.Download(ctx, filename)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, "", checkin.ErrPhotoNotFound
		}
		return nil, "", err
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return rc, contentType, nil
}

// Dir implements FileService.
func (s *fileServiceImpl) Dir() string {
	return s.storage.Root()
}

// ==================== HELPER FUNCTIONS ====================

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}

// compressImage re-encodes an image as JPEG of at most roughly maxSize bytes,
// lowering quality first and resizing when that is not enough.
func compressImage(buffer []byte, maxSize int) ([]byte, error) {
	// Decode the image
	img, format, err := image.Decode(bytes.NewReader(buffer))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// Small JPEGs are stored as they are
	if format == "jpeg" && len(buffer) <= maxSize {
		return buffer, nil
	}

	bounds := img.Bounds()
	originalWidth := bounds.Dx()
	originalHeight := bounds.Dy()

	// Start with quality 85 and reduce progressively
	quality := 85
	var compressed []byte

	for quality >= 50 {
		buf := new(bytes.Buffer)
		if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode JPEG: %w", err)
		}
		compressed = buf.Bytes()

		if len(compressed) <= maxSize {
			return compressed, nil
		}
		quality -= 5
	}

	// Still too large after quality reduction, resize towards 100KB
	targetSize := 100 * 1024
	ratio := math.Sqrt(float64(targetSize) / float64(len(compressed)))
	newWidth := int(float64(originalWidth) * ratio)
	newHeight := int(float64(originalHeight) * ratio)

	if newWidth < 600 {
		newWidth = 600
	}
	if newHeight < 400 {
		newHeight = 400
	}

	resized := resizeImage(img, newWidth, newHeight)

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, resized, &jpeg.Options{Quality: 70}); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}

	return buf.Bytes(), nil
}

// resizeImage resizes an image to the specified dimensions using high-quality interpolation
func resizeImage(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	// Use CatmullRom for high-quality downscaling
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
