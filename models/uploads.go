package models

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/golang/glog"
	"github.com/microcosm-cc/exifutil"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp"

	e "github.com/lumenblog/lumen/errors"
	h "github.com/lumenblog/lumen/helpers"
	"github.com/lumenblog/lumen/storage"
)

const (
	// MaxFileSize is the maximum size (in bytes) of an upload
	MaxFileSize int64 = 5242880 * 2 // 10MB

	// MaxImageWidth is the widest an uploaded raster image is stored
	MaxImageWidth int = 1920

	// UploadsURLPrefix is where uploads are served from
	UploadsURLPrefix = "/uploads/"

	ImageGifMimeType  string = "image/gif"
	ImageJpegMimeType string = "image/jpeg"
	ImagePngMimeType  string = "image/png"
	ImageWebpMimeType string = "image/webp"
	ImageSvgMimeType  string = "image/svg+xml"
)

// UploadExtensions maps the accepted file extensions to their mime types
var UploadExtensions = map[string]string{
	"gif":  ImageGifMimeType,
	"jpeg": ImageJpegMimeType,
	"jpg":  ImageJpegMimeType,
	"png":  ImagePngMimeType,
	"webp": ImageWebpMimeType,
	"svg":  ImageSvgMimeType,
}

// UploadType is an image on its way into storage
type UploadType struct {
	FileName string
	FileExt  string
	MimeType string
	Content  []byte
	FileHash string
	Width    int64
	Height   int64
}

// UploadResultType is returned once an upload is stored
type UploadResultType struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
	Width    int64  `json:"width,omitempty"`
	Height   int64  `json:"height,omitempty"`
}

// UploadKey returns the storage key an upload with this hash is stored under
func (f *UploadType) UploadKey(env *Env) string {
	now := env.now()
	return fmt.Sprintf("%04d/%02d/%s.%s", now.Year(), int(now.Month()), f.FileHash, f.FileExt)
}

// Validate checks the upload is an image we accept, normalising its
// extension and mime type
func (f *UploadType) Validate() (int, error) {
	size := int64(len(f.Content))
	if size < 1 {
		return http.StatusBadRequest, e.New(
			0, "upload.Validate", e.InvalidContent, "The uploaded file is empty",
		)
	}

	if size > MaxFileSize {
		return http.StatusRequestEntityTooLarge, e.Newf(
			0, "upload.Validate", e.FileTooLarge,
			"Files must be below %dMB in size", MaxFileSize/1024/1024,
		)
	}

	f.FileExt = strings.TrimPrefix(strings.ToLower(path.Ext(f.FileName)), ".")

	mimeType, ok := UploadExtensions[f.FileExt]
	if !ok {
		return http.StatusUnsupportedMediaType, e.Newf(
			0, "upload.Validate", e.UnsupportedMedia,
			"Only %s files may be uploaded", "jpg, jpeg, png, gif, webp and svg",
		)
	}
	f.MimeType = mimeType

	if f.FileExt == "svg" {
		if !looksLikeSVG(f.Content) {
			return http.StatusUnsupportedMediaType, e.New(
				0, "upload.Validate", e.UnsupportedMedia,
				"The uploaded file is not an SVG image",
			)
		}
		return http.StatusOK, nil
	}

	// See image format imports above for supported image types. If a match is
	// not made, we assume the upload is bad.
	im, format, err := image.DecodeConfig(bytes.NewReader(f.Content))
	if err != nil {
		glog.Warningf("image.DecodeConfig(%s) %+v", f.FileName, err)
		return http.StatusUnsupportedMediaType, e.New(
			0, "upload.Validate", e.UnsupportedMedia,
			"The uploaded file is not a valid image",
		)
	}
	f.Width = int64(im.Width)
	f.Height = int64(im.Height)

	// Trust the decoder over the file name
	switch format {
	case "gif":
		f.FileExt, f.MimeType = "gif", ImageGifMimeType
	case "jpeg":
		if f.FileExt != "jpeg" {
			f.FileExt = "jpg"
		}
		f.MimeType = ImageJpegMimeType
	case "png":
		f.FileExt, f.MimeType = "png", ImagePngMimeType
	case "webp":
		f.FileExt, f.MimeType = "webp", ImageWebpMimeType
	}

	return http.StatusOK, nil
}

func looksLikeSVG(content []byte) bool {
	head := content
	if len(head) > 1024 {
		head = head[:1024]
	}
	head = bytes.ToLower(head)

	return bytes.Contains(head, []byte("<svg"))
}

// SaveUpload validates an image, fixes its orientation, shrinks it when it
// is too wide, and stores it under a content addressed key. Storing the same
// image twice in one month is a no-op.
func SaveUpload(
	ctx context.Context,
	env *Env,
	fileName string,
	content []byte,
) (
	UploadResultType,
	int,
	error,
) {
	if env.Storage == nil {
		return UploadResultType{}, http.StatusServiceUnavailable,
			fmt.Errorf("Uploads are not configured")
	}

	f := UploadType{FileName: fileName, Content: content}

	status, err := f.Validate()
	if err != nil {
		return UploadResultType{}, status, err
	}

	// If the image is a jpeg, process the exif data, replace the image, and
	// update the width and height as necessary.
	if f.MimeType == ImageJpegMimeType {
		err = f.processExif()
		if err != nil {
			glog.Errorf("Error processing exif data: %s", err)
		}
	}

	switch f.MimeType {
	case ImageJpegMimeType, ImagePngMimeType, ImageGifMimeType:
		if f.Width > int64(MaxImageWidth) {
			status, err = f.ResizeImage(MaxImageWidth)
			if err != nil {
				glog.Errorf("f.ResizeImage(%d) %+v", MaxImageWidth, err)
				return UploadResultType{}, status, err
			}
		}
	}

	f.FileHash, err = h.Sha1(f.Content)
	if err != nil {
		glog.Errorf("h.Sha1(f.Content) %+v", err)
		return UploadResultType{}, http.StatusInternalServerError,
			fmt.Errorf("Couldn't generate SHA-1")
	}

	key := f.UploadKey(env)

	// Check whether we've already stored this image as we can save ourselves
	// some network effort if we have
	obj, err := env.Storage.Stat(ctx, key)
	uploaded := err == nil && obj.Size > 0
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		glog.Warningf("Storage.Stat(%s) %+v", key, err)
	}

	if !uploaded {
		err = env.Storage.Put(ctx, key, f.Content, f.MimeType)
		if err != nil {
			glog.Errorf("Storage.Put(%s, %s) %+v", key, f.MimeType, err)
			return UploadResultType{}, http.StatusInternalServerError,
				fmt.Errorf("Could not store the uploaded file")
		}
	}

	return UploadResultType{
		URL:      UploadsURLPrefix + key,
		Key:      key,
		Size:     int64(len(f.Content)),
		MimeType: f.MimeType,
		Width:    f.Width,
		Height:   f.Height,
	}, http.StatusOK, nil
}

// ResizeImage shrinks an image to maxWidth, preserving the aspect ratio
func (f *UploadType) ResizeImage(maxWidth int) (int, error) {
	if maxWidth < 1 || f.Width <= int64(maxWidth) {
		// Nothing to do, the image is already small enough
		return http.StatusOK, nil
	}

	// middle var is format, i.e. which decoder was used: "gif", "jpeg", "png"
	// in the case of "gif", only the first frame is extracted
	img, format, err := image.Decode(bytes.NewReader(f.Content))
	if err != nil {
		glog.Errorf("image.Decode(r) %+v", err)
		return http.StatusBadRequest, err
	}

	m := imaging.Resize(img, maxWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer

	switch format {
	case "gif":
		err = gif.Encode(&buf, m, nil)
		if err != nil {
			glog.Errorf("gif.Encode(&buf, m, nil) %+v", err)
			return http.StatusBadRequest, err
		}
	case "jpeg":
		err = jpeg.Encode(&buf, m, &jpeg.Options{Quality: 90})
		if err != nil {
			glog.Errorf("jpeg.Encode(&buf, m, nil) %+v", err)
			return http.StatusBadRequest, err
		}
	default:
		err = png.Encode(&buf, m)
		if err != nil {
			glog.Errorf("png.Encode(&buf, m, nil) %+v", err)
			return http.StatusBadRequest, err
		}
		f.FileExt, f.MimeType = "png", ImagePngMimeType
	}

	f.Content = buf.Bytes()
	f.Width = int64(m.Bounds().Dx())
	f.Height = int64(m.Bounds().Dy())

	return http.StatusOK, nil
}

// processExif attempts to rotate a JPEG based on the exif data. If the exif
// data cannot be decoded or the orientation tag not read, we return nil so
// that the image may continue to be uploaded. If there is an error encoding
// the image after modification, this is returned to the caller.
func (f *UploadType) processExif() error {
	ex, err := exif.Decode(bytes.NewReader(f.Content))
	if err != nil {
		return nil
	}
	tag, err := ex.Get(exif.Orientation)
	if err != nil {
		return nil
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return nil
	}

	angle, flipMode, switchDimensions := exifutil.ProcessOrientation(int64(orientation))
	if angle == 0 && flipMode == 0 {
		return nil
	}

	im, _, err := image.Decode(bytes.NewReader(f.Content))
	if err != nil {
		return err
	}

	if angle != 0 {
		im = exifutil.Rotate(im, angle)
	}

	if flipMode != 0 {
		im = exifutil.Flip(im, flipMode)
	}

	if switchDimensions {
		f.Width, f.Height = f.Height, f.Width
	}

	buf := new(bytes.Buffer)
	err = jpeg.Encode(buf, im, &jpeg.Options{Quality: 90})
	if err != nil {
		return err
	}
	f.Content = buf.Bytes()

	return nil
}
