// Package uploads exposes the virtual file store over HTTP.
package uploads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/notedrop/service/internal/logging"
	"github.com/notedrop/service/internal/response"
	"github.com/notedrop/service/internal/store"
)

// Service is the store as seen by the handlers.
type Service interface {
	Root() string
	Backends() []store.Info
	List(ctx context.Context, opts store.ListOptions) ([]store.Entry, error)
	Upload(ctx context.Context, req store.UploadRequest) ([]store.Result, error)
	Delete(ctx context.Context, path string) error
	DeleteAll(ctx context.Context) (store.DeleteAllResult, error)
	RateLimit(ctx context.Context) (store.RateLimit, error)
}

// multipartOverhead is allowed on top of the file size limit for the other
// form fields and part headers.
const multipartOverhead = 1 << 20

// Handler holds HTTP handlers for the upload endpoints.
type Handler struct {
	svc         Service
	maxFileSize int64
	maxAge      int
	now         func() time.Time
	log         logging.Logger
}

// NewHandler creates a Handler. cacheTTL sets the max-age of list responses.
func NewHandler(svc Service, maxFileSize int64, cacheTTL time.Duration, log logging.Logger) *Handler {
	if maxFileSize <= 0 {
		maxFileSize = store.DefaultMaxFileSize
	}
	return &Handler{
		svc:         svc,
		maxFileSize: maxFileSize,
		maxAge:      int(cacheTTL.Seconds()),
		now:         time.Now,
		log:         log,
	}
}

// Mount registers the endpoints on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/uploads", h.List)
	r.Get("/content", h.Content)
	r.Post("/upload", h.Upload)
	r.Delete("/uploads", h.Delete)
	r.Delete("/uploads/all", h.DeleteAll)
	r.Get("/backends", h.Backends)
	r.Get("/rate_limit", h.RateLimit)
}

type listResponse struct {
	Downloads []store.Entry `json:"downloads"`
	FetchedAt time.Time     `json:"fetchedAt"`
	Legacy    bool          `json:"legacy,omitempty"`
}

// List godoc
//
//	@Summary		List uploads
//	@Description	Returns stored entries, newest first. Listings are cached briefly; pass refresh to bypass the cache.
//	@Tags			uploads
//	@Produce		json
//	@Param			includeContent	query		bool	false	"Inline the text of small text entries"
//	@Param			refresh			query		bool	false	"Bypass the listing cache"
//	@Param			backend			query		string	false	"Storage backend id"
//	@Success		200				{object}	listResponse
//	@Failure		500				{object}	response.ErrorBody
//	@Router			/uploads [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, store.ListOptions{
		IncludeContent: flag(r, "includeContent"),
		ForceRefresh:   flag(r, "refresh"),
	}, false)
}

// Content godoc
//
//	@Summary		List uploads (legacy)
//	@Description	Same listing as /uploads without inline content, kept for older clients.
//	@Tags			uploads
//	@Produce		json
//	@Success		200	{object}	listResponse
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/content [get]
func (h *Handler) Content(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, store.ListOptions{ForceRefresh: flag(r, "refresh")}, true)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, opts store.ListOptions, legacy bool) {
	entries, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.fail(w, r, "list failed", err)
		return
	}
	if h.maxAge > 0 {
		w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(h.maxAge))
	}
	response.OK(w, listResponse{Downloads: entries, FetchedAt: h.now().UTC(), Legacy: legacy})
}

type uploadResponse struct {
	Message string         `json:"message"`
	Results []store.Result `json:"results"`
}

// Upload godoc
//
//	@Summary		Upload a note and/or a file
//	@Description	Stores the text note and the file of one submission. At least one is required.
//	@Tags			uploads
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			message		formData	string	false	"Note text"
//	@Param			file		formData	file	false	"File to store"
//	@Param			filename	formData	string	false	"Explicit base name; fails with 409 if taken"
//	@Param			textExt		formData	string	false	"Note extension: md or txt"
//	@Success		201			{object}	uploadResponse
//	@Failure		400			{object}	response.ErrorBody
//	@Failure		409			{object}	response.ErrorBody
//	@Failure		500			{object}	response.ErrorBody
//	@Router			/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		response.BadRequest(w, "use multipart/form-data to upload")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.BadRequest(w, "file exceeds the size limit")
			return
		}
		response.BadRequest(w, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	req := store.UploadRequest{
		Message:    r.FormValue("message"),
		CustomName: r.FormValue("filename"),
		TextExt:    r.FormValue("textExt"),
	}

	f, err := h.readFile(r)
	if err != nil {
		response.StoreError(w, err)
		return
	}
	req.File = f

	results, err := h.svc.Upload(r.Context(), req)
	if err != nil {
		h.fail(w, r, "upload failed", err)
		return
	}
	response.Created(w, uploadResponse{Message: "upload complete", Results: results})
}

func (h *Handler) readFile(r *http.Request) (*store.File, error) {
	const op = "uploads.readFile"

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, store.Wrap(store.KindInvalidRequest, op, "invalid file field", err)
	}
	defer file.Close()

	if header.Size > h.maxFileSize {
		return nil, store.E(store.KindInvalidRequest, op, "file exceeds the size limit")
	}
	content, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		return nil, store.Wrap(store.KindInvalidRequest, op, "could not read file", err)
	}
	// A browser sends an empty file part when no file was chosen.
	if header.Filename == "" && len(content) == 0 {
		return nil, nil
	}

	return &store.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        int64(len(content)),
		Content:     content,
	}, nil
}

type deleteRequest struct {
	Path string `json:"path"`
}

type deleteResponse struct {
	Message string `json:"message"`
	Path    string `json:"path"`
}

// Delete godoc
//
//	@Summary		Delete one upload
//	@Tags			uploads
//	@Accept			json
//	@Produce		json
//	@Param			request	body		deleteRequest	true	"Path of the entry"
//	@Success		200		{object}	deleteResponse
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		404		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/uploads [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	p, err := store.CleanPath(h.svc.Root(), req.Path)
	if err != nil {
		response.StoreError(w, err)
		return
	}
	if err := h.svc.Delete(r.Context(), p); err != nil {
		h.fail(w, r, "delete failed", err)
		return
	}
	response.OK(w, deleteResponse{Message: "file deleted", Path: p})
}

type deleteAllResponse struct {
	Message      string `json:"message"`
	DeletedCount int    `json:"deletedCount"`
}

// DeleteAll godoc
//
//	@Summary		Delete every upload
//	@Description	Best effort: entries that fail to delete are skipped and not counted.
//	@Tags			uploads
//	@Produce		json
//	@Success		200	{object}	deleteAllResponse
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/uploads/all [delete]
func (h *Handler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DeleteAll(r.Context())
	if err != nil {
		h.fail(w, r, "delete all failed", err)
		return
	}
	response.OK(w, deleteAllResponse{
		Message:      fmt.Sprintf("deleted %d entries", res.DeletedCount),
		DeletedCount: res.DeletedCount,
	})
}

type backendsResponse struct {
	Backends []store.Info `json:"backends"`
}

// Backends godoc
//
//	@Summary	List storage backends
//	@Tags		backends
//	@Produce	json
//	@Success	200	{object}	backendsResponse
//	@Router		/backends [get]
func (h *Handler) Backends(w http.ResponseWriter, r *http.Request) {
	response.OK(w, backendsResponse{Backends: h.svc.Backends()})
}

// RateLimit godoc
//
//	@Summary		Backend API budget
//	@Description	Remaining requests of the backend credential, for backends that report one.
//	@Tags			backends
//	@Produce		json
//	@Success		200	{object}	store.RateLimit
//	@Failure		501	{object}	response.ErrorBody
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/rate_limit [get]
func (h *Handler) RateLimit(w http.ResponseWriter, r *http.Request) {
	rl, err := h.svc.RateLimit(r.Context())
	if errors.Is(err, store.ErrUnsupported) {
		response.NotImplemented(w, "backend does not report a rate limit")
		return
	}
	if err != nil {
		h.fail(w, r, "rate limit lookup failed", err)
		return
	}
	response.OK(w, rl)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if response.Status(store.KindOf(err)) >= http.StatusInternalServerError {
		h.log.Error(r.Context(), msg, "error", err)
	} else {
		h.log.Debug(r.Context(), msg, "error", err)
	}
	response.StoreError(w, err)
}

// flag reports whether a boolean query parameter is set. A bare "?name" counts
// as true.
func flag(r *http.Request, name string) bool {
	q := r.URL.Query()
	if !q.Has(name) {
		return false
	}
	switch strings.ToLower(q.Get(name)) {
	case "0", "false", "no":
		return false
	}
	return true
}
