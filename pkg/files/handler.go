package files

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/observability/metrics"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// Response messages.
const (
	MsgUploaded  = "File has been successfully uploaded"
	MsgNotFound  = "File not found!"
	MsgNoFile    = "Multipart field \"file\" is required"
	MsgTooLarge  = "File too large"
	FormField    = "file"
	DefaultLimit = 32 << 20
)

// multipart framing allowance on top of the file size limit.
const formOverhead = 1 << 20

// UploadResponse is the body returned after a successful upload.
type UploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// Handler exposes POST /file and GET /file/:filename.
type Handler struct {
	storage Storage
	baseURL string
	limit   int64
	log     logger.Logger
}

// NewHandler serves uploads from storage. baseURL prefixes the download url
// returned after an upload; limit caps the file size (DefaultLimit when <= 0).
func NewHandler(storage Storage, baseURL string, limit int64, log logger.Logger) *Handler {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Handler{storage: storage, baseURL: strings.TrimRight(baseURL, "/"), limit: limit, log: log}
}

// Register mounts the file routes on r behind mw.
func (h *Handler) Register(r router.Router, mw ...router.MiddlewareFunc) {
	r.POST("/file", h.upload, mw...)
	r.GET("/file/:filename", h.download, mw...)
}

// URL returns the public download url of name.
func (h *Handler) URL(name string) string {
	return h.baseURL + "/file/" + url.PathEscape(name)
}

func (h *Handler) tooLarge() error {
	return controller.NewValidationError(MsgTooLarge, map[string]interface{}{"max_size": h.limit})
}

func (h *Handler) upload(c router.Context) error {
	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, h.limit+formOverhead)
	if err := req.ParseMultipartForm(h.limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			return controller.Error(c, h.tooLarge())
		}
		return controller.Error(c, controller.NewValidationError(MsgNoFile, map[string]interface{}{"field": FormField}))
	}
	defer func() { _ = req.MultipartForm.RemoveAll() }()

	file, header, err := req.FormFile(FormField)
	if err != nil {
		return controller.Error(c, controller.NewValidationError(MsgNoFile, map[string]interface{}{"field": FormField}))
	}
	defer file.Close()

	if header.Size > h.limit {
		return controller.Error(c, h.tooLarge())
	}
	name, err := CleanName(header.Filename)
	if err != nil {
		return controller.Error(c, controller.NewValidationError("File name is not valid", map[string]interface{}{"filename": header.Filename}))
	}

	ctx := req.Context()
	if err := h.storage.Save(ctx, name, io.LimitReader(file, h.limit)); err != nil {
		return controller.Error(c, controller.NewInternalError("Something went wrong", fmt.Errorf("save upload: %w", err)))
	}

	metrics.RecordFileUpload(header.Size)
	h.log.WithContext(ctx).Info("file uploaded", "filename", name, "size", header.Size)

	return controller.Success(c, UploadResponse{Message: MsgUploaded, Filename: name, URL: h.URL(name)})
}

func (h *Handler) download(c router.Context) error {
	name := c.Param("filename")
	rc, err := h.storage.Open(c.Request().Context(), name)
	if errors.Is(err, ErrNotFound) {
		return controller.Error(c, controller.NewNotFoundError(MsgNotFound))
	}
	if err != nil {
		return controller.Error(c, err)
	}
	defer rc.Close()

	contentType, body := sniff(rc)
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	if err := c.Stream(http.StatusOK, contentType, body); err != nil {
		h.log.WithContext(c.Request().Context()).Warn("file download interrupted", "filename", name, "error", err)
	}
	return nil
}
