package composer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/amuthap/wedding-automation/internal/models"
)

// ResolvePhoto returns the local file to use as the member's photo. Rows
// without a usable image URL get the fallback image. When the download
// fails the fallback path is returned together with the download error.
func (c *Composer) ResolvePhoto(ctx context.Context, row models.RosterRow) (string, error) {
	return c.resolvePhotoIn(ctx, row, c.opts.OutputDir)
}

// resolvePhotoIn is ResolvePhoto with downloads written to dir.
func (c *Composer) resolvePhotoIn(ctx context.Context, row models.RosterRow, dir string) (string, error) {
	url := strings.TrimSpace(row.ImageURL)
	if url == "" || c.isPlaceholder(url) {
		return c.opts.FallbackImage, nil
	}
	dest := filepath.Join(dir, SafeName(row.Name)+"_profile.jpg")
	if err := c.download(ctx, url, dest); err != nil {
		return c.opts.FallbackImage, err
	}
	return dest, nil
}

func (c *Composer) isPlaceholder(url string) bool {
	for _, marker := range c.opts.PlaceholderMarkers {
		if marker != "" && strings.Contains(url, marker) {
			return true
		}
	}
	return false
}

func (c *Composer) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("download %s: %s", url, resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("download %s: %w", url, err)
	}
	return f.Close()
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

var unsafeFileChars = strings.NewReplacer(
	"/", "", "\\", "", ":", "", "*", "", "?", "", "\"", "", "<", "", ">", "", "|", "",
)

// SafeName turns a member name into a file name stem: whitespace becomes
// underscores and path or reserved characters are dropped.
func SafeName(name string) string {
	s := unsafeFileChars.Replace(strings.Join(strings.Fields(name), "_"))
	s = strings.Trim(s, ".")
	if s == "" {
		return "member"
	}
	return s
}

// ParseHexColor parses "#rrggbb" or "rrggbb". An empty string is black.
func ParseHexColor(s string) (color.Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return color.Black, nil
	}
	if len(s) != 6 {
		return nil, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
