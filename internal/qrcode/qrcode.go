// Package qrcode renders table tokens as PNG images on disk.
package qrcode

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	qr "github.com/skip2/go-qrcode"
)

const (
	DefaultSize      = 400
	DefaultURLPrefix = "/qrcodes/"
)

// Key returns the image key of a table code.
func Key(code string) string {
	return "table-" + code
}

// Renderer writes QR images into a directory.
type Renderer struct {
	dir       string
	urlPrefix string
	size      int
	level     qr.RecoveryLevel
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithSize sets the image width and height in pixels.
func WithSize(px int) Option {
	return func(r *Renderer) {
		if px > 0 {
			r.size = px
		}
	}
}

// WithURLPrefix sets the public path images are served under.
func WithURLPrefix(prefix string) Option {
	return func(r *Renderer) {
		r.urlPrefix = prefix
	}
}

// NewRenderer creates dir if needed and returns a renderer writing into it.
func NewRenderer(dir string, opts ...Option) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	r := &Renderer{
		dir:       dir,
		urlPrefix: DefaultURLPrefix,
		size:      DefaultSize,
		level:     qr.Medium,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Render encodes content as a PNG stored under key and returns its public path.
func (r *Renderer) Render(key, content string) (string, error) {
	file, err := r.file(key)
	if err != nil {
		return "", err
	}

	if err := qr.WriteFile(content, r.level, r.size, file); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", key, err)
	}

	log.Debug().Str("key", key).Str("file", file).Msg("QR image rendered")
	return path.Join(r.urlPrefix, key+".png"), nil
}

// Release deletes the image stored under key. A missing image is not an error.
func (r *Renderer) Release(key string) error {
	file, err := r.file(key)
	if err != nil {
		return err
	}

	if err := os.Remove(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Dir returns the directory images are written to.
func (r *Renderer) Dir() string {
	return r.dir
}

func (r *Renderer) file(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid image key %q", key)
	}
	return filepath.Join(r.dir, key+".png"), nil
}
