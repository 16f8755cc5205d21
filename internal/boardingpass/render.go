// Package boardingpass renders boarding pass images and caches them by
// (flight, confirmation code).
package boardingpass

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/southwestptfs/flightdeck/internal/airport"
)

// Canvas geometry. The stub occupies the right quarter.
const (
	Width  = 1000
	Height = 400

	stubX   = Width * 3 / 4
	leftPad = 40
	stubPad = stubX + 20

	barcodeY = 330
	barcodeH = 50
)

// Pass is the snapshot of booking and flight state printed on a pass.
type Pass struct {
	Passenger    string
	Confirmation string
	FlightID     string
	Gate         string
	Aircraft     string
	Departure    time.Time
	CheckedInAt  time.Time
	Position     string

	FromCode, ToCode string
	From, To         airport.Airport
}

// Renderer draws passes. It is safe for concurrent use.
type Renderer struct {
	fontDir string

	once  sync.Once
	fonts *fontSet
	err   error
}

// NewRenderer returns a Renderer that loads its typefaces from fontDir on
// first use, or uses the bundled Go fonts when fontDir is empty.
func NewRenderer(fontDir string) *Renderer {
	return &Renderer{fontDir: fontDir}
}

// Render lays out p and returns PNG bytes. Output depends only on p, so the
// same snapshot always yields the same bytes.
func (r *Renderer) Render(p Pass) ([]byte, error) {
	r.once.Do(func() { r.fonts, r.err = loadFonts(r.fontDir) })
	if r.err != nil {
		return nil, r.err
	}
	f, err := r.fonts.faces()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	// border and stub separator, 2px each
	fill(img, image.Rect(0, 0, Width, 2))
	fill(img, image.Rect(0, Height-2, Width, Height))
	fill(img, image.Rect(0, 0, 2, Height))
	fill(img, image.Rect(Width-2, 0, Width, Height))
	fill(img, image.Rect(stubX-1, 0, stubX+1, Height))

	gate := orDefault(p.Gate, "TBD")
	aircraft := orDefault(p.Aircraft, "Unknown")
	position := orDefault(p.Position, "N/A")

	y := 60
	text(img, f.bold38, leftPad, y, "SOUTHWEST AIRLINES")
	text(img, f.mono20, leftPad, y+40, "Boarding Pass")

	y += 70
	text(img, f.bold24, leftPad, y, p.Passenger)

	y += 50
	text(img, f.bold24, leftPad, y, "Flight "+p.FlightID)
	text(img, f.mono14, leftPad+210, y, fmt.Sprintf("Gate %s (Subject to Change)", gate))

	y += 40
	text(img, f.mono14, leftPad, y, formatDate(p.Departure))
	text(img, f.mono14, leftPad+110, y, "Confirmation Number: #"+p.Confirmation)

	y += 35
	text(img, f.mono14, leftPad, y, cityState(p.From, p.FromCode)+" -> "+cityState(p.To, p.ToCode))

	y += 30
	text(img, f.mono14, leftPad, y, "Aircraft: "+aircraft)
	y += 30
	text(img, f.mono14, leftPad, y, "Boarding Time: "+formatClock(p.Departure))
	y += 25
	text(img, f.mono14, leftPad, y, fmt.Sprintf("Checked In: %s, %s", formatDate(p.CheckedInAt), formatClock(p.CheckedInAt)))

	text(img, f.reg22, stubPad, 40, "Southwest Airlines")
	text(img, f.mono12, stubPad, 60, "Open Seating")
	text(img, f.reg22, stubPad, 100, "Boarding")
	text(img, f.reg22, stubPad, 130, "Group/Position")
	text(img, f.bold100, stubPad, 160, position)

	text(img, f.mono12, stubPad, 270, strings.TrimSuffix(p.Passenger, "#0"))
	text(img, f.mono12, stubPad, 290, "Conf. #"+p.Confirmation)
	text(img, f.mono12, stubPad, 310, fmt.Sprintf("%s %s to %s", p.FlightID, iata(p.From, p.FromCode), iata(p.To, p.ToCode)))

	drawBarcode(img, image.Rect(stubPad, barcodeY, Width-20, barcodeY+barcodeH), p.Confirmation)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

var ink = image.NewUniform(color.Black)

func fill(dst draw.Image, r image.Rectangle) {
	draw.Draw(dst, r, ink, image.Point{}, draw.Src)
}

// text draws s with its top-left corner at (x, y).
func text(dst draw.Image, face font.Face, x, y int, s string) {
	if s == "" {
		return
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  ink,
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func cityState(a airport.Airport, code string) string {
	if a.IsZero() {
		return code
	}
	return a.City + ", " + a.State
}

func iata(a airport.Airport, code string) string {
	if a.IATA == "" {
		return code
	}
	return a.IATA
}

// formatDate prints "Nov 01"; the zero time prints nothing.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("Jan 02")
}

// formatClock prints "8:30 AM"; the zero time prints nothing.
func formatClock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("3:04 PM")
}
