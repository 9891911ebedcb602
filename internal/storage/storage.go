// Package storage keeps uploaded blog images on the local filesystem.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"classblog/internal/middleware"
	"classblog/internal/models"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// Dir is the sub-directory blog images are written to.
	Dir         = "blogs"
	jpegQuality = 85
	// maxPixels bounds the decoded size of an upload.
	maxPixels = 40_000_000
)

// Store persists uploaded files and returns their storage-relative path.
type Store interface {
	Store(ctx context.Context, name string, data []byte) (string, error)
	Delete(ctx context.Context, path string) error
	URL(path string) string
}

// LocalStore writes images below a root directory served under a URL prefix.
type LocalStore struct {
	root         string
	urlPrefix    string
	maxBytes     int64
	maxDimension int
}

// NewLocalStore returns a LocalStore rooted at root. Images larger than
// maxSizeKB are rejected; images wider or taller than maxDimension pixels are
// scaled down to fit.
func NewLocalStore(root, urlPrefix string, maxSizeKB, maxDimension int) *LocalStore {
	return &LocalStore{
		root:         root,
		urlPrefix:    "/" + strings.Trim(urlPrefix, "/"),
		maxBytes:     int64(maxSizeKB) * 1024,
		maxDimension: maxDimension,
	}
}

// Root returns the directory files are written to.
func (s *LocalStore) Root() string {
	return s.root
}

func imageError(msg string) error {
	return models.NewFieldValidationError(map[string]string{"image": msg})
}

// Store validates data as a jpeg, png, gif or webp image and writes it under
// Dir with a random name. The returned path is relative to the store root.
func (s *LocalStore) Store(ctx context.Context, name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", imageError("The image field is required.")
	}
	if int64(len(data)) > s.maxBytes {
		return "", imageError(fmt.Sprintf("The image may not be greater than %d kilobytes.", s.maxBytes/1024))
	}
	switch http.DetectContentType(data) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
	default:
		return "", imageError("The image must be a file of type: jpeg, png, jpg, gif, webp.")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", imageError("The image could not be decoded.")
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return "", imageError("The image has invalid dimensions.")
	}

	decoded, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", imageError("The image could not be decoded.")
	}

	ext := "." + format
	if format == "jpeg" {
		ext = ".jpg"
	}

	b := decoded.Bounds()
	if b.Dx() > s.maxDimension || b.Dy() > s.maxDimension {
		resized := resizeToFit(decoded, s.maxDimension, s.maxDimension)
		var buf bytes.Buffer
		switch format {
		case "jpeg":
			err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality})
		case "gif":
			err = gif.Encode(&buf, resized, nil)
		default:
			// webp has no pure-Go encoder
			err = png.Encode(&buf, resized)
			ext = ".png"
		}
		if err != nil {
			return "", models.NewInternalError(err)
		}
		data = buf.Bytes()
		middleware.Logger.InfoContext(ctx, "image downscaled",
			"name", name, "from", fmt.Sprintf("%dx%d", b.Dx(), b.Dy()))
	}

	rel := path.Join(Dir, uuid.NewString()+ext)
	abs := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
		return "", models.NewInternalError(err)
	}
	if err := os.WriteFile(abs, data, 0o600); err != nil {
		return "", models.NewInternalError(err)
	}
	return rel, nil
}

// Delete removes a previously stored file. Missing files are not an error.
func (s *LocalStore) Delete(ctx context.Context, rel string) error {
	if rel == "" {
		return nil
	}
	abs, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		middleware.Logger.WarnContext(ctx, "failed to delete stored image",
			"path", rel, "error", err)
		return err
	}
	return nil
}

// URL maps a stored path to its public URL.
func (s *LocalStore) URL(rel string) string {
	if rel == "" {
		return ""
	}
	return s.urlPrefix + "/" + strings.TrimPrefix(rel, "/")
}

// resolve joins rel onto the root, refusing paths that escape it.
func (s *LocalStore) resolve(rel string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(rel))
	if clean == "/" || strings.Contains(rel, "..") {
		return "", fmt.Errorf("invalid storage path %q", rel)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}
