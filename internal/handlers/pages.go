package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/bus-tracker/internal/db"
)

// PageHandler serves the static pages and the health check
type PageHandler struct {
	views  *Views
	buses  db.BusCollection
	logger logrus.FieldLogger
}

// NewPageHandler creates a new page handler
func NewPageHandler(views *Views, buses db.BusCollection, logger logrus.FieldLogger) *PageHandler {
	return &PageHandler{views: views, buses: buses, logger: logger}
}

// Home renders the landing page
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	render(w, h.views, h.logger, http.StatusOK, "home.html", nil)
}

// Passenger renders the passenger search page
func (h *PageHandler) Passenger(w http.ResponseWriter, r *http.Request) {
	render(w, h.views, h.logger, http.StatusOK, "passenger.html", nil)
}

// Health reports whether the bus collection is reachable
func (h *PageHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.buses.Ping(r.Context()); err != nil {
		h.logger.WithError(err).Warn("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
