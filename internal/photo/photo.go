// Package photo stores employee photos uploaded through the web UI.
package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder
)

const (
	// MaxUploadBytes bounds the size of an accepted upload.
	MaxUploadBytes = 5 << 20
	// MaxEdge is the longest edge of a stored photo, in pixels.
	MaxEdge = 256
	// MaxPixels bounds the decoded canvas of an upload.
	MaxPixels = 40_000_000
)

var (
	// ErrTooLarge is returned when an upload exceeds MaxUploadBytes or MaxPixels.
	ErrTooLarge = errors.New("photo exceeds upload limit")
	// ErrUnsupported is returned when the upload is not a PNG, JPEG or WebP image.
	ErrUnsupported = errors.New("unsupported image format")
	// ErrInvalidName is returned for names that were not produced by Save.
	ErrInvalidName = errors.New("invalid photo name")
)

// Store keeps photos as PNG files in a single directory.
type Store struct {
	dir string
}

// NewStore creates dir if needed and returns a Store rooted there.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory photos are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Save decodes r, shrinks it to fit MaxEdge and writes it as PNG.
// It returns the stored file name.
func (s *Store) Save(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > MaxUploadBytes {
		return "", ErrTooLarge
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return "", fmt.Errorf("%w: %dx%d canvas", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnsupported, err)
	}

	var out bytes.Buffer
	if err := png.Encode(&out, Fit(img, MaxEdge)); err != nil {
		return "", fmt.Errorf("encode photo: %w", err)
	}

	name := uuid.New().String() + ".png"
	if err := os.WriteFile(filepath.Join(s.dir, name), out.Bytes(), 0o640); err != nil {
		return "", fmt.Errorf("write photo: %w", err)
	}
	return name, nil
}

// Remove deletes a stored photo. Removing a missing photo is not an error.
func (s *Store) Remove(name string) error {
	if name == "" {
		return nil
	}
	if !validName(name) {
		return ErrInvalidName
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Fit scales img down so neither edge exceeds maxEdge, keeping the aspect
// ratio. Images already small enough are returned unchanged.
func Fit(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img
	}
	if w >= h {
		h = max(1, h*maxEdge/w)
		w = maxEdge
	} else {
		w = max(1, w*maxEdge/h)
		h = maxEdge
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

func validName(name string) bool {
	base, ok := strings.CutSuffix(name, ".png")
	if !ok || filepath.Base(name) != name {
		return false
	}
	_, err := uuid.Parse(base)
	return err == nil
}
