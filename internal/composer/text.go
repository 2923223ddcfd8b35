package composer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/amuthap/wedding-automation/internal/config"
)

// Faces holds one face per text line.
type Faces struct {
	Name    font.Face
	Address font.Face
	Role    font.Face
}

func (f Faces) List() []font.Face {
	return []font.Face{f.Name, f.Address, f.Role}
}

// LoadFaces opens the configured fonts. Lines without a font path use the
// bundled Go fonts, bold for the name.
func LoadFaces(cfg config.FontsConfig) (Faces, error) {
	name, err := LoadFace(cfg.NamePath, cfg.NameSize, gobold.TTF)
	if err != nil {
		return Faces{}, err
	}
	address, err := LoadFace(cfg.AddressPath, cfg.AddressSize, goregular.TTF)
	if err != nil {
		return Faces{}, err
	}
	role, err := LoadFace(cfg.RolePath, cfg.RoleSize, goregular.TTF)
	if err != nil {
		return Faces{}, err
	}
	return Faces{Name: name, Address: address, Role: role}, nil
}

// LoadFace parses a TrueType/OpenType font at size pixels. An empty path
// uses fallback.
func LoadFace(path string, size float64, fallback []byte) (font.Face, error) {
	data := fallback
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("font: %w", err)
		}
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("font %s: %w", path, err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font %s: %w", path, err)
	}
	return face, nil
}

// Line is a positioned text line. Box is the line's ink box on the canvas;
// Dot is the baseline origin handed to the font drawer.
type Line struct {
	Text string
	Face font.Face
	Box  image.Rectangle
	Dot  fixed.Point26_6
}

// LayoutLines centers each line on anchorX and stacks them from top
// downwards, spacing pixels apart. A line's top is its ascender line and the
// next line starts below the ink height of the previous one.
func LayoutLines(texts []string, faces []font.Face, anchorX, top, spacing int) []Line {
	lines := make([]Line, 0, len(texts))
	y := top
	for i, text := range texts {
		face := faces[i]
		bounds, _ := font.BoundString(face, text)
		w := (bounds.Max.X - bounds.Min.X).Ceil()
		h := (bounds.Max.Y - bounds.Min.Y).Ceil()
		left := anchorX - w/2

		ascent := face.Metrics().Ascent
		inkTop := y + (ascent + bounds.Min.Y).Floor()
		lines = append(lines, Line{
			Text: text,
			Face: face,
			Box:  image.Rect(left, inkTop, left+w, inkTop+h),
			Dot:  fixed.Point26_6{X: fixed.I(left) - bounds.Min.X, Y: fixed.I(y) + ascent},
		})
		y += h + spacing
	}
	return lines
}

// DrawLines renders laid out lines onto dst.
func DrawLines(dst draw.Image, lines []Line, c color.Color) {
	src := image.NewUniform(c)
	for _, l := range lines {
		d := font.Drawer{Dst: dst, Src: src, Face: l.Face, Dot: l.Dot}
		d.DrawString(l.Text)
	}
}
