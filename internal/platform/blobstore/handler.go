package blobstore

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicd/clinicd/internal/platform/metrics"
)

// createUploadRequest asks for a pre-signed upload URL for one attachment.
type createUploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

// attachmentItem is a stored blob plus the pre-signed URL to download it.
type attachmentItem struct {
	Blob
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"url_expires_at"`
}

// listResponse is the JSON envelope returned by the list endpoint.
type listResponse struct {
	Items []attachmentItem `json:"items"`
	Total int              `json:"total"`
}

// Handler provides Echo HTTP handlers for attachment operations. Issuance
// routes sit behind authentication; the /blobs/* routes are public and accept
// only requests carrying a valid signature.
type Handler struct {
	store  Store
	signer *Signer
}

// NewHandler creates a new Handler.
func NewHandler(store Store, signer *Signer) *Handler {
	return &Handler{store: store, signer: signer}
}

// RegisterRoutes mounts the attachment issuance routes on the supplied group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/appointments/:id/attachments", h.handleCreateUploadURL)
	api.GET("/appointments/:id/attachments", h.handleList)
	api.DELETE("/appointments/:id/attachments/:name", h.handleDelete)
}

// RegisterBlobRoutes mounts the signature-verified transfer routes on the
// server root, outside the authenticated API group.
func (h *Handler) RegisterBlobRoutes(e *echo.Echo) {
	e.PUT("/blobs/*", h.handlePut)
	e.GET("/blobs/*", h.handleGet)
}

func (h *Handler) handleCreateUploadURL(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid appointment id"})
	}

	var req createUploadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.FileName == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file_name is required"})
	}
	if !fileNameValid(req.FileName) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file_name is invalid"})
	}
	if req.ContentType == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "content_type is required"})
	}
	if !AllowedContentTypes[req.ContentType] {
		return c.JSON(http.StatusUnsupportedMediaType, map[string]string{"error": ErrContentTypeNotAllowed.Error()})
	}

	path := fmt.Sprintf("appointments/%s/%s", id, req.FileName)
	signed := h.signer.Sign(http.MethodPut, path)
	metrics.AttachmentURLsIssuedTotal.WithLabelValues("upload").Inc()

	return c.JSON(http.StatusCreated, signed)
}

func (h *Handler) handleList(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid appointment id"})
	}

	prefix := fmt.Sprintf("appointments/%s/", id)
	blobs, err := h.store.List(c.Request().Context(), prefix)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	items := make([]attachmentItem, 0, len(blobs))
	for _, b := range blobs {
		signed := h.signer.Sign(http.MethodGet, b.Path)
		items = append(items, attachmentItem{
			Blob:      *b,
			URL:       signed.URL,
			ExpiresAt: signed.ExpiresAt,
		})
	}
	if len(items) > 0 {
		metrics.AttachmentURLsIssuedTotal.WithLabelValues("download").Add(float64(len(items)))
	}

	return c.JSON(http.StatusOK, listResponse{Items: items, Total: len(items)})
}

func (h *Handler) handleDelete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid appointment id"})
	}
	name := c.Param("name")
	if !fileNameValid(name) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file name is invalid"})
	}

	path := fmt.Sprintf("appointments/%s/%s", id, name)
	if err := h.store.Delete(c.Request().Context(), path); err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) handlePut(c echo.Context) error {
	path := c.Param("*")

	expires, sig, err := signatureParams(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := h.signer.Verify(http.MethodPut, path, expires, sig); err != nil {
		return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
	}

	blob, err := h.store.Put(c.Request().Context(), path, c.Request().Header.Get(echo.HeaderContentType), c.Request().Body)
	if err != nil {
		switch {
		case errors.Is(err, ErrBlobTooLarge):
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrContentTypeNotAllowed):
			return c.JSON(http.StatusUnsupportedMediaType, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrInvalidPath):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}

	return c.JSON(http.StatusCreated, blob)
}

func (h *Handler) handleGet(c echo.Context) error {
	path := c.Param("*")

	expires, sig, err := signatureParams(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := h.signer.Verify(http.MethodGet, path, expires, sig); err != nil {
		return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
	}

	rc, meta, err := h.store.Get(c.Request().Context(), path)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	defer rc.Close()

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, baseName(path)))
	return c.Stream(http.StatusOK, meta.ContentType, rc)
}

func signatureParams(c echo.Context) (int64, string, error) {
	sig := c.QueryParam("sig")
	expStr := c.QueryParam("expires")
	if sig == "" || expStr == "" {
		return 0, "", errors.New("missing signature parameters")
	}
	expires, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return 0, "", errors.New("invalid expires parameter")
	}
	return expires, sig, nil
}

// fileNameValid accepts a single path segment with no traversal.
func fileNameValid(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.Contains(name, "/")
}

func baseName(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
