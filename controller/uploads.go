package controller

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/golang/glog"

	"github.com/lumenblog/lumen/audit"
	h "github.com/lumenblog/lumen/helpers"
	"github.com/lumenblog/lumen/models"
	"github.com/lumenblog/lumen/storage"
)

const uploadFormName = "file"

// UploadsHandler is a web handler
func UploadsHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := UploadsController{}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "POST"})
		return
	case "POST":
		ctl.Create(c)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// UploadsController is a web controller
type UploadsController struct{}

// Create handles POST of a multipart form with a single image in "file"
func (ctl *UploadsController) Create(c *models.Context) {
	status, err := c.RequireAdmin()
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	mr, err := c.Request.MultipartReader()
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("Only multipart forms can be posted: %v", err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	part, err := mr.NextPart()
	for err == nil {
		if part.FormName() == uploadFormName && part.FileName() != "" {
			break
		}
		part, err = mr.NextPart()
	}
	if err != nil {
		c.RespondWithErrorMessage(
			fmt.Sprintf("No file was posted in '%s'", uploadFormName),
			http.StatusBadRequest,
		)
		return
	}

	// Read one byte past the limit so that oversized files are detected
	// without buffering all of them
	content, err := io.ReadAll(io.LimitReader(part, models.MaxFileSize+1))
	if err != nil {
		glog.Errorf("io.ReadAll(part) %+v", err)
		c.RespondWithErrorMessage(
			fmt.Sprintf("Could not read form part: %v", err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	m, status, err := models.SaveUpload(
		c.Request.Context(), c.Env, part.FileName(), content,
	)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Create(
		c.Env.DB,
		h.ItemTypes[h.ItemTypeUpload],
		0,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithData(m)
}

// UploadFileHandler serves a stored upload
func UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	c := models.MakeEmptyContext(r, w)

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "HEAD", "GET"})
		return
	case "HEAD", "GET":
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}

	if c.Env == nil || c.Env.Storage == nil {
		c.RespondWithNotFound()
		return
	}

	key, err := storage.CleanKey(c.RouteVars["path"])
	if err != nil {
		c.RespondWithNotFound()
		return
	}

	rc, obj, err := c.Env.Storage.Get(r.Context(), key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			glog.Errorf("Storage.Get(%s) %+v", key, err)
			c.RespondWithError(http.StatusInternalServerError)
			return
		}
		c.RespondWithNotFound()
		return
	}
	defer rc.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(key))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// Keys are content addressed so a stored file never changes
	oneYear := time.Hour * 24 * 365
	nextYear := time.Now().Add(oneYear)
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, immutable", oneYear/time.Second))
	w.Header().Set("Expires", nextYear.Format(time.RFC1123))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}

	// SVGs can carry script
	if contentType == models.ImageSvgMimeType {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")
	}

	w.WriteHeader(http.StatusOK)
	if r.Method == "HEAD" {
		return
	}

	_, err = io.Copy(w, rc)
	if err != nil {
		glog.Warningf("io.Copy(%s) %+v", key, err)
	}
}
