// Package composer renders greeting images: a member photo pasted onto the
// template with the member's name, club and role centered beneath it.
package composer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"

	"github.com/amuthap/wedding-automation/internal/config"
	"github.com/amuthap/wedding-automation/internal/models"
)

var (
	// ErrTemplate marks an unreadable or undersized template.
	ErrTemplate = errors.New("template")
	// ErrPhoto marks a photo that could not be decoded.
	ErrPhoto = errors.New("photo")
	// ErrSave marks an encode or write failure of the finished image.
	ErrSave = errors.New("save")
)

// Layout is the template geometry in pixels.
type Layout struct {
	PhotoX, PhotoY int
	PhotoW, PhotoH int
	LineSpacing    int
	TextMargin     int
}

// PhotoRect is where the resized photo lands on the template.
func (l Layout) PhotoRect() image.Rectangle {
	return image.Rect(l.PhotoX, l.PhotoY, l.PhotoX+l.PhotoW, l.PhotoY+l.PhotoH)
}

// TextAnchor is the horizontal center of the text block and the top of its
// first line.
func (l Layout) TextAnchor() (x, y int) {
	return l.PhotoX + l.PhotoW/2, l.PhotoY + l.PhotoH + l.TextMargin
}

type Options struct {
	TemplatePath       string
	FallbackImage      string
	OutputDir          string
	PlaceholderMarkers []string
	JPEGQuality        int
	TextColor          color.Color
	Layout             Layout
}

type Composer struct {
	opts   Options
	faces  Faces
	client *http.Client
}

func New(opts Options, faces Faces, client *http.Client) *Composer {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.TextColor == nil {
		opts.TextColor = color.Black
	}
	if opts.JPEGQuality == 0 {
		opts.JPEGQuality = jpeg.DefaultQuality
	}
	return &Composer{opts: opts, faces: faces, client: client}
}

// NewFromConfig loads the configured fonts and builds a Composer.
func NewFromConfig(cfg *config.Config) (*Composer, error) {
	faces, err := LoadFaces(cfg.Fonts)
	if err != nil {
		return nil, err
	}
	textColor, err := ParseHexColor(cfg.Layout.TextColor)
	if err != nil {
		return nil, err
	}
	opts := Options{
		TemplatePath:       cfg.Template.Path,
		FallbackImage:      cfg.Template.FallbackImage,
		OutputDir:          cfg.Template.OutputDir,
		PlaceholderMarkers: cfg.Template.PlaceholderMarkers,
		JPEGQuality:        cfg.Template.JPEGQuality,
		TextColor:          textColor,
		Layout: Layout{
			PhotoX:      cfg.Layout.PhotoX,
			PhotoY:      cfg.Layout.PhotoY,
			PhotoW:      cfg.Layout.PhotoW,
			PhotoH:      cfg.Layout.PhotoH,
			LineSpacing: cfg.Layout.LineSpacing,
			TextMargin:  cfg.Layout.TextMargin,
		},
	}
	client := &http.Client{Timeout: cfg.Template.DownloadTimeout.Duration}
	return New(opts, faces, client), nil
}

// EnsureOutputDir creates the output directory if it is absent.
func (c *Composer) EnsureOutputDir() error {
	if err := os.MkdirAll(c.opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", c.opts.OutputDir, err)
	}
	return nil
}

// CheckTemplate verifies the template decodes and can hold the photo.
func (c *Composer) CheckTemplate() error {
	_, err := c.loadTemplate()
	return err
}

// Compose resolves the row's photo, renders the greeting and saves it. A
// failed photo download is logged and the placeholder image is used; use
// ResolvePhoto and ComposeFrom to handle that failure yourself.
func (c *Composer) Compose(ctx context.Context, row models.RosterRow, suffix string) (*models.Composition, error) {
	photo, err := c.ResolvePhoto(ctx, row)
	if err != nil {
		logDownloadFailure(row, err)
	}
	return c.ComposeFrom(row, photo, suffix)
}

// ComposeFrom renders the greeting using the photo file at photoPath and
// writes it to OutputPath(row.Name, suffix).
func (c *Composer) ComposeFrom(row models.RosterRow, photoPath, suffix string) (*models.Composition, error) {
	canvas, err := c.render(row, photoPath)
	if err != nil {
		return nil, err
	}
	path := c.OutputPath(row.Name, suffix)
	if err := c.save(canvas, path); err != nil {
		return nil, err
	}
	return &models.Composition{Image: canvas, Path: path}, nil
}

// Render resolves the photo and draws the greeting without saving anything.
// The photo is downloaded into a scratch directory that is removed
// afterwards, so previews never touch the output directory.
func (c *Composer) Render(ctx context.Context, row models.RosterRow) (*image.RGBA, error) {
	dir, err := os.MkdirTemp("", "greeting-preview-*")
	if err != nil {
		return nil, fmt.Errorf("preview scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	photo, err := c.resolvePhotoIn(ctx, row, dir)
	if err != nil {
		logDownloadFailure(row, err)
	}
	return c.render(row, photo)
}

func logDownloadFailure(row models.RosterRow, err error) {
	logrus.WithError(err).WithField("member", row.Name).Warn("Image download failed, using fallback")
}

// OutputPath is the deterministic file a member's greeting is written to.
func (c *Composer) OutputPath(name, suffix string) string {
	return filepath.Join(c.opts.OutputDir, SafeName(name)+"_"+suffix+".jpg")
}

func (c *Composer) render(row models.RosterRow, photoPath string) (*image.RGBA, error) {
	canvas, err := c.loadTemplate()
	if err != nil {
		return nil, err
	}
	photo, err := c.loadPhoto(photoPath)
	if err != nil {
		return nil, err
	}
	draw.Draw(canvas, c.opts.Layout.PhotoRect(), photo, image.Point{}, draw.Over)

	x, y := c.opts.Layout.TextAnchor()
	lines := LayoutLines(
		[]string{strings.ToUpper(row.Name), strings.ToUpper(row.Address), strings.ToUpper(row.Role)},
		c.faces.List(), x, y, c.opts.Layout.LineSpacing,
	)
	DrawLines(canvas, lines, c.opts.TextColor)
	return canvas, nil
}

// loadTemplate decodes the template into an opaque canvas. Alpha is
// discarded, not blended.
func (c *Composer) loadTemplate() (*image.RGBA, error) {
	img, err := decodeFile(c.opts.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	b := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			canvas.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: px.R, G: px.G, B: px.B, A: 0xff})
		}
	}

	if !c.opts.Layout.PhotoRect().In(canvas.Bounds()) {
		return nil, fmt.Errorf("%w: %s is %dx%d, photo area %v does not fit",
			ErrTemplate, c.opts.TemplatePath, b.Dx(), b.Dy(), c.opts.Layout.PhotoRect())
	}
	return canvas, nil
}

// loadPhoto decodes the photo and resizes it to the layout's photo box.
func (c *Composer) loadPhoto(path string) (*image.NRGBA, error) {
	src, err := decodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPhoto, err)
	}
	l := c.opts.Layout
	dst := image.NewNRGBA(image.Rect(0, 0, l.PhotoW, l.PhotoH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}

func (c *Composer) save(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSave, err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: c.opts.JPEGQuality}); err != nil {
		f.Close()
		return fmt.Errorf("%w: encode %s: %v", ErrSave, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrSave, err)
	}
	return nil
}
