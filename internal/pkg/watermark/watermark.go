// Package watermark stamps check-in photos with time, GPS position and
// address so the picture can be audited later.
package watermark

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png" // PNG uploads from the LIFF camera fallback
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	baseFontSize   = 18
	baseLineHeight = 30
	basePadding    = 15
	boxPadding     = 8
	maxAddressLen  = 40
	jpegQuality    = 90
	referenceWidth = 800
)

// Stamp is the information drawn on a photo.
type Stamp struct {
	Latitude  float64
	Longitude float64
	Address   string
	Timestamp string // ISO-8601, UTC when no offset is given
	Employee  *Identity
}

type Identity struct {
	EmployeeCode string
	Name         string
}

// FaceLoader returns a font face of the given pixel size.
type FaceLoader func(size float64) (font.Face, error)

// Annotator draws Stamps onto images. It is safe for concurrent use.
type Annotator struct {
	loadFace FaceLoader
	zone     *time.Location
}

// NewAnnotator uses the first readable font in fontPaths and falls back to
// the embedded Go Bold face.
func NewAnnotator(fontPaths []string) *Annotator {
	return NewAnnotatorWithLoader(DefaultFaceLoader(fontPaths))
}

func NewAnnotatorWithLoader(loader FaceLoader) *Annotator {
	return &Annotator{
		loadFace: loader,
		zone:     time.FixedZone("ICT", 7*60*60),
	}
}

// DefaultFaceLoader parses the first usable TrueType/OpenType font once and
// builds faces from it.
func DefaultFaceLoader(fontPaths []string) FaceLoader {
	var (
		once   sync.Once
		parsed *opentype.Font
		err    error
	)
	return func(size float64) (font.Face, error) {
		once.Do(func() {
			parsed, err = loadFont(fontPaths)
		})
		if err != nil {
			return nil, err
		}
		return opentype.NewFace(parsed, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	}
}

func loadFont(fontPaths []string) (*opentype.Font, error) {
	for _, path := range fontPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		f, err := opentype.Parse(data)
		if err != nil {
			slog.Warn("Skipping unreadable watermark font", "path", path, "error", err)
			continue
		}
		slog.Info("Using watermark font", "path", path)
		return f, nil
	}
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded font: %w", err)
	}
	return f, nil
}

// Annotate returns a JPEG with the stamp drawn along the bottom edge. Any
// failure returns img unchanged.
func (a *Annotator) Annotate(img []byte, stamp Stamp) []byte {
	out, err := a.annotate(img, stamp)
	if err != nil {
		slog.Warn("Watermark skipped", "error", err)
		return img
	}
	return out
}

func (a *Annotator) annotate(img []byte, stamp Stamp) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	lines, err := a.Lines(stamp)
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	scale := float64(bounds.Dx()) / referenceWidth
	if scale < 1 {
		scale = 1
	}

	face, err := a.loadFace(baseFontSize * scale)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	defer face.Close()

	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	lineHeight := int(baseLineHeight * scale)
	padding := int(basePadding * scale)
	boxPad := int(boxPadding * scale)
	ascent := face.Metrics().Ascent.Ceil()
	descent := face.Metrics().Descent.Ceil()

	top := bounds.Max.Y - (len(lines)*lineHeight + padding*2)
	background := image.NewUniform(color.NRGBA{A: 200})
	shadow := image.NewUniform(color.Black)
	foreground := image.NewUniform(color.White)

	for i, line := range lines {
		x := bounds.Min.X + padding
		baseline := top + padding + i*lineHeight + ascent
		width := font.MeasureString(face, line).Ceil()

		box := image.Rect(x-boxPad, baseline-ascent-boxPad, x+width+boxPad, baseline+descent+boxPad)
		draw.Draw(dst, box.Intersect(bounds), background, image.Point{}, draw.Over)

		d := &font.Drawer{Dst: dst, Src: shadow, Face: face, Dot: fixed.P(x+1, baseline+1)}
		d.DrawString(line)
		d.Src = foreground
		d.Dot = fixed.P(x, baseline)
		d.DrawString(line)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Lines returns the text lines Annotate draws, top to bottom.
func (a *Annotator) Lines(stamp Stamp) ([]string, error) {
	ts, err := parseTimestamp(stamp.Timestamp)
	if err != nil {
		return nil, err
	}

	var lines []string
	if stamp.Employee != nil {
		id := "ID " + asciiOnly(stamp.Employee.EmployeeCode)
		if name := asciiOnly(stamp.Employee.Name); name != "" {
			id += " - " + name
		}
		lines = append(lines, id)
	}
	lines = append(lines,
		"Time: "+ts.In(a.zone).Format("02/01/2006 15:04:05"),
		fmt.Sprintf("GPS: %.6f, %.6f", stamp.Latitude, stamp.Longitude),
	)
	if addr := asciiOnly(stamp.Address); addr != "" {
		if len(addr) > maxAddressLen {
			addr = addr[:maxAddressLen]
		}
		lines = append(lines, "Addr: "+addr)
	}
	return lines, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func asciiOnly(s string) string {
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
