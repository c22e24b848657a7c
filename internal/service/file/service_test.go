package file

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/domain/checkin"
	"github.com/cmlabs-hris/linebot-hrm/internal/domain/registration"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/storage"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/validator"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/watermark"
	"github.com/cmlabs-hris/linebot-hrm/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

var _ multipart.File = memFile{}

func testImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 180, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestService(t *testing.T) (*fileServiceImpl, storage.FileStorage, registration.Repository) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir(), "https://bot.example.com/uploads/")
	require.NoError(t, err)
	regs := memory.NewRegistrationRepository()

	svc := NewFileService(store, watermark.NewAnnotator(nil), regs, time.FixedZone("ICT", 7*60*60)).(*fileServiceImpl)
	svc.now = func() time.Time { return time.Date(2026, 10, 16, 1, 30, 15, 0, time.UTC) }
	return svc, store, regs
}

func photoRequest(t *testing.T, data []byte) checkin.UploadPhotoRequest {
	lat, lon := 13.7563, 100.5018
	return checkin.UploadPhotoRequest{
		File:       memFile{bytes.NewReader(data)},
		FileHeader: &multipart.FileHeader{Filename: "capture.png", Size: int64(len(data))},
		Latitude:   &lat,
		Longitude:  &lon,
	}
}

func TestUploadCheckinPhoto(t *testing.T) {
	svc, store, regs := newTestService(t)
	ctx := context.Background()

	_, err := regs.Create(ctx, registration.Registration{EmpCode: "1001", FirstName: "Somchai", LastName: "Jaidee", LineUserID: "U1"})
	require.NoError(t, err)

	req := photoRequest(t, testImage(t))
	req.UserID = "U1"
	resp, err := svc.UploadCheckinPhoto(ctx, req)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^checkin_20261016_083015_[0-9a-f]{8}\.jpg$`), resp.Filename)
	assert.Equal(t, "https://bot.example.com/uploads/"+resp.Filename, resp.ImageURL)
	assert.Equal(t, checkin.DefaultAddress, resp.Address)
	assert.Equal(t, "2026-10-16T08:30:15+07:00", resp.Timestamp)
	assert.Equal(t, 13.7563, resp.Latitude)

	rc, err := store.Download(ctx, resp.Filename)
	require.NoError(t, err)
	defer rc.Close()
	_, format, err := image.Decode(rc)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestUploadCheckinPhoto_MissingFields(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := photoRequest(t, testImage(t))
	req.Longitude = nil
	_, err := svc.UploadCheckinPhoto(context.Background(), req)

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Missing required fields: image, latitude, or longitude", verrs.First())
}

func TestUploadCheckinPhoto_RejectsOtherTypes(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := photoRequest(t, []byte("GIF89a"))
	req.FileHeader.Filename = "capture.gif"
	_, err := svc.UploadCheckinPhoto(context.Background(), req)
	assert.ErrorIs(t, err, checkin.ErrInvalidPhoto)
}

func TestCheckinPhotoURL(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CheckinPhotoURL(ctx, "")
	assert.ErrorIs(t, err, checkin.ErrPhotoNotFound)

	_, err = store.Upload(ctx, strings.NewReader("a"), "checkin_20261016_080000_aaaaaaaa.jpg", "image/jpeg")
	require.NoError(t, err)

	url, err := svc.CheckinPhotoURL(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "https://bot.example.com/uploads/checkin_20261016_080000_aaaaaaaa.jpg", url)

	url, err = svc.CheckinPhotoURL(ctx, "checkin_20261016_080000_aaaaaaaa.jpg")
	require.NoError(t, err)
	assert.Contains(t, url, "checkin_20261016_080000_aaaaaaaa.jpg")

	_, err = svc.CheckinPhotoURL(ctx, "checkin_missing.jpg")
	assert.ErrorIs(t, err, checkin.ErrPhotoNotFound)
}

func TestOpen(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := store.Upload(ctx, strings.NewReader("png-bytes"), "photo.png", "image/png")
	require.NoError(t, err)

	rc, contentType, err := svc.Open(ctx, "photo.png")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", contentType)

	_, _, err = svc.Open(ctx, "missing.jpg")
	assert.ErrorIs(t, err, checkin.ErrPhotoNotFound)

	_, _, err = svc.Open(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, checkin.ErrPhotoNotFound)
}

func TestUploadRegistrationPhoto(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	url, err := svc.UploadRegistrationPhoto(ctx, "10/01", bytes.NewReader(testImage(t)), "me.png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://bot.example.com/uploads/registrations/10_01-"))
	assert.True(t, strings.HasSuffix(url, ".jpg"))

	_, err = svc.UploadRegistrationPhoto(ctx, "1001", strings.NewReader("x"), "me.gif")
	assert.ErrorIs(t, err, checkin.ErrInvalidPhoto)
}

func TestDeletePhoto(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	url, err := svc.UploadRegistrationPhoto(ctx, "1001", bytes.NewReader(testImage(t)), "me.jpg")
	require.NoError(t, err)
	path := strings.TrimPrefix(url, "https://bot.example.com/uploads/")

	exists, err := store.Exists(ctx, path)
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, svc.DeletePhoto(ctx, url))
	exists, err = store.Exists(ctx, path)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, svc.DeletePhoto(ctx, "https://elsewhere.example.com/a.jpg"))
	assert.NoError(t, svc.DeletePhoto(ctx, url))
}

func TestCompressImage_ShrinksLargeImages(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1600, 1200))
	for y := 0; y < 1200; y++ {
		for x := 0; x < 1600; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * y), G: uint8(x + y), B: uint8(x ^ y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	out, err := compressImage(buf.Bytes(), 150*1024)
	require.NoError(t, err)
	assert.Less(t, len(out), buf.Len())

	_, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}
