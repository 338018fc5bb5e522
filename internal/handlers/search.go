package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/bus-tracker/internal/db"
	"github.com/ukydev/bus-tracker/internal/models"
	"github.com/ukydev/bus-tracker/internal/timetable"
)

// NoBusesMessage is returned when a search matches nothing.
const NoBusesMessage = "No buses found for selected time and route."

// SearchHandler handles passenger searches
type SearchHandler struct {
	buses    db.BusCollection
	validate *validator.Validate
	logger   logrus.FieldLogger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(buses db.BusCollection, logger logrus.FieldLogger) *SearchHandler {
	return &SearchHandler{buses: buses, validate: newValidator(), logger: logger}
}

// Search returns the buses on a route departing inside a time window
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := models.SearchQuery{
		Start:    q.Get("start"),
		End:      q.Get("end"),
		TimeFrom: q.Get("time_from"),
		TimeTo:   q.Get("time_to"),
	}
	if err := h.validate.Struct(query); err != nil {
		writeError(w, http.StatusBadRequest, "Missing search inputs")
		return
	}

	window, err := timetable.NewWindow(query.TimeFrom, query.TimeTo)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid time format")
		return
	}

	ctx := r.Context()
	cursor, err := h.buses.FindBusesByRoute(ctx, query.Start, query.End)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{"start": query.Start, "end": query.End}).Error("Failed to query buses")
		writeError(w, http.StatusInternalServerError, "Failed to search buses")
		return
	}
	defer cursor.Close(ctx)

	var buses []models.BusSummary
	for cursor.Next(ctx) {
		var bus models.BusSummary
		if err := cursor.Decode(&bus); err != nil {
			h.logger.WithError(err).Warn("Skipping undecodable bus document")
			continue
		}
		buses = append(buses, bus)
	}
	if err := cursor.Err(); err != nil {
		h.logger.WithError(err).Error("Failed to read bus cursor")
		writeError(w, http.StatusInternalServerError, "Failed to search buses")
		return
	}

	results := timetable.Filter(buses, window, func(bus models.BusSummary, err error) {
		h.logger.WithFields(logrus.Fields{
			"bus":  bus.BusName,
			"time": bus.Time,
		}).WithError(err).Warn("Skipping bus with malformed departure time")
	})

	if len(results) == 0 {
		writeMessage(w, http.StatusOK, NoBusesMessage)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
