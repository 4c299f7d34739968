package handler

import (
	"net/http"

	"github.com/sakif/foodtracker/internal/service"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Meals    int    `json:"meals"`
	Sessions int    `json:"sessions"`
}

// HandleHealth reports liveness plus a couple of cheap counters.
func HandleHealth(book *service.MealBook, sessions *service.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Meals:    book.Len(),
			Sessions: sessions.Len(),
		})
	}
}
