package handler

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/vlogsite/internal/apperror"
	"github.com/sakif/vlogsite/internal/auth"
	"github.com/sakif/vlogsite/internal/model"
	"github.com/sakif/vlogsite/internal/service"
)

// multipartMemory is how much of a multipart form is held in memory; the
// rest spills to temporary files.
const multipartMemory = 8 << 20

// VlogHandler serves vlog CRUD.
type VlogHandler struct {
	vlogs          *service.VlogService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewVlogHandler creates a VlogHandler. maxUploadBytes caps a whole
// multipart request, image included.
func NewVlogHandler(vlogs *service.VlogService, maxUploadBytes int64, logger *slog.Logger) *VlogHandler {
	return &VlogHandler{
		vlogs:          vlogs,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

type vlogResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Vlog    *model.Vlog `json:"vlog"`
}

// HandleCreate stores a new vlog.
//
// HTTP: POST /upload
// BODY: multipart/form-data with username, title, description, content
// (optional) and an image file.
func (h *VlogHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	image, cleanup, err := h.parseForm(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	defer cleanup()

	vlog, err := h.vlogs.Create(r.Context(), service.CreateVlogInput{
		Username:    r.FormValue("username"),
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Content:     r.FormValue("content"),
		Image:       image,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, vlogResponse{
		Success: true,
		Message: "Vlog uploaded successfully!",
		Vlog:    vlog,
	})
}

// HandleList returns every vlog.
//
// HTTP: GET /vlogs
// RESPONSE: a bare JSON array, oldest first.
func (h *VlogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	vlogs, err := h.vlogs.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, vlogs)
}

// HandleListByUser returns the vlogs owned by a username or email.
//
// HTTP: GET /uservlogs/{username}
func (h *VlogHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	vlogs, err := h.vlogs.ListByUser(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, vlogs)
}

// HandleUpdate edits a vlog. Every form field is optional; when username is
// missing, the signed-in user's username is used.
//
// HTTP: PUT /vlogs/{id}
func (h *VlogHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	image, cleanup, err := h.parseForm(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	defer cleanup()

	who := r.FormValue("username")
	if who == "" {
		if sess, ok := auth.SessionFromContext(r.Context()); ok {
			who = sess.Username
		}
	}

	vlog, err := h.vlogs.Update(r.Context(), service.UpdateVlogInput{
		ID:          chi.URLParam(r, "id"),
		Username:    who,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Content:     r.FormValue("content"),
		Image:       image,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, vlogResponse{
		Success: true,
		Message: "Vlog updated successfully",
		Vlog:    vlog,
	})
}

// HandleDelete removes a vlog on behalf of the username in the path.
//
// HTTP: DELETE /vlogs/{id}/{username}
func (h *VlogHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.vlogs.Delete(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Vlog deleted successfully!"})
}

// parseForm reads a bounded multipart form and opens its "image" file, if
// any. The returned cleanup closes the file and removes temp files.
//
// A non-multipart body is tolerated: PUT callers may send only url-encoded
// fields.
func (h *VlogHandler) parseForm(w http.ResponseWriter, r *http.Request) (*service.Image, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	err := r.ParseMultipartForm(multipartMemory)
	switch {
	case err == nil:
	case errors.Is(err, http.ErrNotMultipart):
		if err := r.ParseForm(); err != nil {
			return nil, noop, formError(err)
		}
		return nil, noop, nil
	default:
		return nil, noop, formError(err)
	}

	cleanup := func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, cleanup, nil
	}
	if err != nil {
		return nil, cleanup, formError(err)
	}

	return &service.Image{Filename: header.Filename, Body: file}, func() {
		closeFile(file)
		cleanup()
	}, nil
}

func closeFile(f multipart.File) {
	if f != nil {
		f.Close()
	}
}

// formError keeps an oversized body recognisable and turns any other parse
// failure into a validation error.
func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return apperror.ValidationFailed("body", "request must be a valid multipart form")
}
