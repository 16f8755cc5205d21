package boardingpass

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Font files looked up in a custom font directory.
const (
	monoFile    = "OCR-B.otf"
	regularFile = "SouthwestSans-Regular.ttf"
	boldFile    = "SouthwestSans-Bold.ttf"
)

var newFace = opentype.NewFace

type fontSet struct {
	mono, regular, bold *opentype.Font
}

// loadFonts parses the boarding pass typefaces. With an empty dir the Go
// fonts bundled with x/image are used; otherwise every file must exist.
func loadFonts(dir string) (*fontSet, error) {
	if dir == "" {
		return parseFonts(gomono.TTF, goregular.TTF, gobold.TTF)
	}
	var raw [3][]byte
	for i, name := range []string{monoFile, regularFile, boldFile} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("load font %s: %w", name, err)
		}
		raw[i] = b
	}
	return parseFonts(raw[0], raw[1], raw[2])
}

func parseFonts(mono, regular, bold []byte) (*fontSet, error) {
	var fs fontSet
	for _, f := range []struct {
		dst **opentype.Font
		src []byte
	}{{&fs.mono, mono}, {&fs.regular, regular}, {&fs.bold, bold}} {
		parsed, err := opentype.Parse(f.src)
		if err != nil {
			return nil, fmt.Errorf("parse font: %w", err)
		}
		*f.dst = parsed
	}
	return &fs, nil
}

// faces holds one render's sized faces. opentype faces are not safe for
// concurrent use, so each Render builds its own.
type faces struct {
	mono12, mono14, mono20  font.Face
	reg22                   font.Face
	bold24, bold38, bold100 font.Face
}

func (fs *fontSet) faces() (*faces, error) {
	var out faces
	for _, f := range []struct {
		dst  *font.Face
		src  *opentype.Font
		size float64
	}{
		{&out.mono12, fs.mono, 12},
		{&out.mono14, fs.mono, 14},
		{&out.mono20, fs.mono, 20},
		{&out.reg22, fs.regular, 22},
		{&out.bold24, fs.bold, 24},
		{&out.bold38, fs.bold, 38},
		{&out.bold100, fs.bold, 100},
	} {
		face, err := newFace(f.src, &opentype.FaceOptions{Size: f.size, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			out.Close()
			return nil, fmt.Errorf("font face %.0fpt: %w", f.size, err)
		}
		*f.dst = face
	}
	return &out, nil
}

// Close releases every face built so far. Unset faces are skipped.
func (f *faces) Close() {
	for _, face := range []font.Face{f.mono12, f.mono14, f.mono20, f.reg22, f.bold24, f.bold38, f.bold100} {
		if face != nil {
			_ = face.Close()
		}
	}
}
