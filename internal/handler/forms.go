package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/foodtracker/internal/apperror"
	"github.com/sakif/foodtracker/internal/form"
	"github.com/sakif/foodtracker/internal/model"
	"github.com/sakif/foodtracker/internal/rating"
	"github.com/sakif/foodtracker/internal/service"
)

// maxPhotoBody caps uploaded photos.
const maxPhotoBody = 10 << 20

// FormHandler drives entry forms over HTTP.
//
// SESSIONS:
// The form controller is stateful (name being typed, photo, stars), so
// each open form lives server-side in a service.SessionManager and the
// client addresses it by the id returned from POST /api/forms. Every
// response carries the form's current view so the client can re-render.
type FormHandler struct {
	sessions *service.SessionManager
	logger   *slog.Logger
	pickers  func(upload []byte) form.ImagePicker
}

// FormOption customises a FormHandler.
type FormOption func(*FormHandler)

// WithUploadPicker replaces the picker built for each photo upload
// (form.UploadPicker by default).
func WithUploadPicker(fn func(upload []byte) form.ImagePicker) FormOption {
	return func(h *FormHandler) { h.pickers = fn }
}

// NewFormHandler creates a new FormHandler.
func NewFormHandler(sessions *service.SessionManager, logger *slog.Logger, opts ...FormOption) *FormHandler {
	h := &FormHandler{
		sessions: sessions,
		logger:   logger,
		pickers:  form.UploadPicker,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OpenRequest is the optional body of POST /api/forms. A nil Edit opens a
// blank form.
type OpenRequest struct {
	Edit *int `json:"edit"`
}

// FormResponse wraps a view with its session id.
type FormResponse struct {
	ID   string    `json:"id"`
	Form form.View `json:"form"`
}

// NameRequest is the body of PUT /api/forms/{id}/name.
type NameRequest struct {
	Name string `json:"name"`
	Done bool   `json:"done"`
}

// RatingRequest is the body of PUT /api/forms/{id}/rating.
type RatingRequest struct {
	Rating *int `json:"rating"`
}

// StarsRequest is the body of PUT /api/forms/{id}/stars. A zero Size keeps
// the current star size.
type StarsRequest struct {
	Count int         `json:"count"`
	Size  rating.Size `json:"size"`
}

// SaveResponse is returned by a successful save.
type SaveResponse struct {
	FormResponse
	Meal *model.Meal `json:"meal"`
}

// Routes returns the form routes, to be mounted under /api/forms.
func (h *FormHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleOpen)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.HandleView)
		r.Put("/name", h.HandleName)
		r.Get("/photo", h.HandleGetPhoto)
		r.Put("/photo", h.HandlePutPhoto)
		r.Post("/stars/{index}", h.HandleStar)
		r.Put("/stars", h.HandleStars)
		r.Put("/rating", h.HandleRating)
		r.Post("/save", h.HandleSave)
		r.Post("/cancel", h.HandleCancel)
	})
	return r
}

// HandleOpen opens a form session.
//
// HTTP: POST /api/forms
// REQUEST BODY (optional): {"edit": 2}
func (h *FormHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var (
		s   *service.Session
		err error
	)
	if req.Edit != nil {
		s, err = h.sessions.OpenEdit(*req.Edit)
	} else {
		s, err = h.sessions.OpenNew()
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	view, err := h.sessions.View(s.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, FormResponse{ID: s.ID, Form: view})
}

// HandleView returns the current view.
func (h *FormHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, func(*form.Controller) error { return nil })
}

// HandleName records an edit of the name field; "done" ends the edit and
// updates the title.
func (h *FormHandler) HandleName(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.do(w, r, func(c *form.Controller) error {
		if err := c.SetName(req.Name); err != nil {
			return err
		}
		if req.Done {
			return c.FinishEditing()
		}
		return nil
	})
}

// HandlePutPhoto picks the raw request body as the form's photo. An empty
// body is a cancelled pick and keeps the current photo.
//
// The upload goes through the same ImagePicker path as any other image
// source, so a picker that breaks its contract panics and the Recoverer
// middleware answers 500.
func (h *FormHandler) HandlePutPhoto(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPhotoBody))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, h.logger, apperror.ValidationFailed(model.KeyPhoto,
				fmt.Sprintf("photo must be at most %d bytes", tooBig.Limit)))
			return
		}
		writeError(w, h.logger, fmt.Errorf("reading photo: %w", err))
		return
	}

	picker := h.pickers(data)
	h.do(w, r, func(c *form.Controller) error {
		return c.PickPhoto(r.Context(), picker)
	})
}

// HandleGetPhoto returns the form's current photo.
func (h *FormHandler) HandleGetPhoto(w http.ResponseWriter, r *http.Request) {
	var photo []byte
	if _, err := h.sessions.Do(chi.URLParam(r, "id"), func(c *form.Controller) error {
		photo = c.Photo()
		return nil
	}); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if photo == nil {
		writeError(w, h.logger, apperror.NotFound("photo", chi.URLParam(r, "id")))
		return
	}
	writeImage(w, photo)
}

// HandleStar taps star {index} through the session's arranged toggles.
func (h *FormHandler) HandleStar(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r, "index")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	id := chi.URLParam(r, "id")
	view, err := h.sessions.Tap(id, index)
	h.respond(w, id, view, err)
}

// HandleRating sets the rating directly.
func (h *FormHandler) HandleRating(w http.ResponseWriter, r *http.Request) {
	var req RatingRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Rating == nil {
		writeError(w, h.logger, apperror.ValidationFailed(model.KeyRating, "rating is required"))
		return
	}
	h.do(w, r, func(c *form.Controller) error { return c.SetRating(*req.Rating) })
}

// HandleStars reconfigures the rating selector.
func (h *FormHandler) HandleStars(w http.ResponseWriter, r *http.Request) {
	var req StarsRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.do(w, r, func(c *form.Controller) error {
		size := req.Size
		if size == (rating.Size{}) {
			size = currentSize(c)
		}
		return c.ConfigureStars(req.Count, size)
	})
}

// HandleSave commits the form. On success the session is closed and the
// saved meal is returned.
func (h *FormHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var meal *model.Meal
	view, err := h.sessions.Do(id, func(c *form.Controller) error {
		var err error
		meal, err = c.Save(context.WithoutCancel(r.Context()))
		return err
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, SaveResponse{
		FormResponse: FormResponse{ID: id, Form: view},
		Meal:         meal,
	})
}

// HandleCancel discards the form.
func (h *FormHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, func(c *form.Controller) error {
		c.Cancel(r.Context())
		return nil
	})
}

// do runs fn on the session named by the {id} parameter and writes the
// resulting view.
func (h *FormHandler) do(w http.ResponseWriter, r *http.Request, fn func(c *form.Controller) error) {
	id := chi.URLParam(r, "id")
	view, err := h.sessions.Do(id, fn)
	h.respond(w, id, view, err)
}

func (h *FormHandler) respond(w http.ResponseWriter, id string, view form.View, err error) {
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, FormResponse{ID: id, Form: view})
}

func currentSize(c *form.Controller) rating.Size {
	stars := c.Stars()
	if len(stars) == 0 {
		return rating.DefaultSize
	}
	return rating.Size{Width: stars[0].Width, Height: stars[0].Height}
}
