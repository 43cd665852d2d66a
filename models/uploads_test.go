package models

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	e "github.com/lumenblog/lumen/errors"
	"github.com/lumenblog/lumen/storage"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: uint8(x), A: 255})
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newUploadEnv(t *testing.T) *Env {
	t.Helper()

	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	return &Env{
		Storage: store,
		Now: func() time.Time {
			return time.Date(2024, time.May, 9, 10, 0, 0, 0, time.UTC)
		},
	}
}

func TestSaveUploadStoresUnderDatedHash(t *testing.T) {
	env := newUploadEnv(t)

	res, status, err := SaveUpload(context.Background(), env, "photo.PNG", pngBytes(t, 40, 20))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	assert.Regexp(t, regexp.MustCompile(`^2024/05/[0-9a-f]{40}\.png$`), res.Key)
	assert.Equal(t, "/uploads/"+res.Key, res.URL)
	assert.Equal(t, ImagePngMimeType, res.MimeType)
	assert.Equal(t, int64(40), res.Width)

	obj, err := env.Storage.Stat(context.Background(), res.Key)
	require.NoError(t, err)
	assert.Equal(t, res.Size, obj.Size)

	again, _, err := SaveUpload(context.Background(), env, "copy.png", pngBytes(t, 40, 20))
	require.NoError(t, err)
	assert.Equal(t, res.Key, again.Key)
}

func TestSaveUploadResizesWideImages(t *testing.T) {
	env := newUploadEnv(t)

	res, _, err := SaveUpload(context.Background(), env, "wide.png", pngBytes(t, 2400, 100))
	require.NoError(t, err)

	assert.Equal(t, int64(MaxImageWidth), res.Width)
	assert.Equal(t, int64(80), res.Height)
}

func TestSaveUploadRejects(t *testing.T) {
	env := newUploadEnv(t)

	tests := []struct {
		name    string
		file    string
		content []byte
		status  int
		code    e.ErrCode
	}{
		{"empty", "a.png", []byte{}, http.StatusBadRequest, e.InvalidContent},
		{"too large", "a.png", make([]byte, MaxFileSize+1), http.StatusRequestEntityTooLarge, e.FileTooLarge},
		{"extension", "a.exe", []byte("MZ"), http.StatusUnsupportedMediaType, e.UnsupportedMedia},
		{"no extension", "README", []byte("hi"), http.StatusUnsupportedMediaType, e.UnsupportedMedia},
		{"not an image", "a.jpg", []byte("definitely not a jpeg"), http.StatusUnsupportedMediaType, e.UnsupportedMedia},
		{"not an svg", "a.svg", []byte("<html></html>"), http.StatusUnsupportedMediaType, e.UnsupportedMedia},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, status, err := SaveUpload(context.Background(), env, tt.file, tt.content)
			require.Error(t, err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, errCode(t, err))
		})
	}
}

func TestSaveUploadAcceptsSVG(t *testing.T) {
	env := newUploadEnv(t)

	svg := []byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg" width="1" height="1"></svg>`)
	res, _, err := SaveUpload(context.Background(), env, "logo.svg", svg)
	require.NoError(t, err)
	assert.Equal(t, ImageSvgMimeType, res.MimeType)
	assert.Regexp(t, `\.svg$`, res.Key)
}

func TestSaveUploadTrustsDecoderOverName(t *testing.T) {
	env := newUploadEnv(t)

	res, _, err := SaveUpload(context.Background(), env, "mislabelled.gif", pngBytes(t, 4, 4))
	require.NoError(t, err)
	assert.Regexp(t, `\.png$`, res.Key)
}

func TestSaveUploadWithoutStorage(t *testing.T) {
	_, status, err := SaveUpload(context.Background(), &Env{}, "a.png", pngBytes(t, 1, 1))
	assert.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}
