package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/foodtracker/internal/apperror"
	"github.com/sakif/foodtracker/internal/model"
	"github.com/sakif/foodtracker/internal/service"
)

// MealHandler serves the archived meal list, the table screen of the app.
type MealHandler struct {
	book   *service.MealBook
	logger *slog.Logger
}

// NewMealHandler creates a new MealHandler.
func NewMealHandler(book *service.MealBook, logger *slog.Logger) *MealHandler {
	return &MealHandler{book: book, logger: logger}
}

// MealSummary is one row of the meal list. Photo bytes are served
// separately from /api/meals/{index}/photo.
type MealSummary struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Rating   int    `json:"rating"`
	HasPhoto bool   `json:"hasPhoto"`
}

// Routes returns the meal routes, to be mounted under /api/meals.
//
//	GET    /                → list
//	GET    /{index}         → one meal, photo inlined as base64
//	GET    /{index}/photo   → raw photo bytes
//	DELETE /{index}         → delete (swipe-to-delete)
func (h *MealHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleList)
	r.Get("/{index}", h.HandleGet)
	r.Get("/{index}/photo", h.HandlePhoto)
	r.Delete("/{index}", h.HandleDelete)
	return r
}

// HandleList returns every archived meal, in archive order.
func (h *MealHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	meals := h.book.List()

	// Always send [] rather than null for an empty book.
	out := make([]MealSummary, 0, len(meals))
	for i, m := range meals {
		out = append(out, summarize(i, m))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet returns one meal in its archive encoding.
func (h *MealHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	meal, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, meal)
}

// HandlePhoto returns the meal's photo with a sniffed content type.
func (h *MealHandler) HandlePhoto(w http.ResponseWriter, r *http.Request) {
	meal, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if !meal.HasPhoto() {
		writeError(w, h.logger, apperror.NotFound("photo", meal.Name()))
		return
	}
	writeImage(w, meal.Photo())
}

// HandleDelete removes a meal and re-archives the list.
func (h *MealHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r, "index")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.book.Delete(r.Context(), index); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MealHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.Meal, bool) {
	index, err := indexParam(r, "index")
	if err != nil {
		writeError(w, h.logger, err)
		return nil, false
	}
	meal, err := h.book.Get(index)
	if err != nil {
		writeError(w, h.logger, err)
		return nil, false
	}
	return meal, true
}

func summarize(index int, m *model.Meal) MealSummary {
	return MealSummary{
		Index:    index,
		Name:     m.Name(),
		Rating:   m.Rating(),
		HasPhoto: m.HasPhoto(),
	}
}

func writeImage(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
