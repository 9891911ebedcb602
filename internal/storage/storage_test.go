package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"classblog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLocalStore_StoreAndDelete(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStore(root, "/uploads/", 2048, 2048)
	ctx := context.Background()

	rel, err := s.Store(ctx, "cover.png", pngBytes(t, 10, 10))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "blogs/"))
	assert.True(t, strings.HasSuffix(rel, ".png"))
	assert.Equal(t, "/uploads/"+rel, s.URL(rel))

	abs := filepath.Join(root, filepath.FromSlash(rel))
	_, err = os.Stat(abs)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, rel))
	_, err = os.Stat(abs)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Delete(ctx, rel), "deleting twice is fine")
}

func TestLocalStore_Rejects(t *testing.T) {
	s := NewLocalStore(t.TempDir(), "/uploads", 1, 2048)
	ctx := context.Background()

	_, err := s.Store(ctx, "empty.png", nil)
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = s.Store(ctx, "notes.txt", []byte("plain text, not an image"))
	assert.True(t, models.HasCode(err, models.CodeValidation))

	big := append(pngBytes(t, 4, 4), make([]byte, 2048)...)
	_, err = s.Store(ctx, "big.png", big)
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

// hugePNG returns a small PNG whose header declares w x h pixels.
func hugePNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := pngBytes(t, 1, 1)
	// IHDR: length at 8, type at 12, width at 16, height at 20, crc at 29.
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestLocalStore_RejectsOversizedDimensions(t *testing.T) {
	s := NewLocalStore(t.TempDir(), "/uploads", 2048, 2048)

	_, err := s.Store(context.Background(), "bomb.png", hugePNG(t, 100_000, 100_000))
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)
	assert.Equal(t, "The image has invalid dimensions.", appErr.Fields["image"])
}

func TestLocalStore_DownscalesLargeImages(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStore(root, "/uploads", 2048, 50)

	rel, err := s.Store(context.Background(), "wide.png", pngBytes(t, 200, 100))
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 25, cfg.Height)
}

func TestLocalStore_DeleteRejectsTraversal(t *testing.T) {
	s := NewLocalStore(t.TempDir(), "/uploads", 2048, 2048)
	assert.Error(t, s.Delete(context.Background(), "../etc/passwd"))
	assert.NoError(t, s.Delete(context.Background(), ""))
}
