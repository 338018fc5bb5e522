package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/bus-tracker/internal/db"
	"github.com/ukydev/bus-tracker/internal/models"
	"github.com/ukydev/bus-tracker/internal/timetable"
)

const maxAddBusBody = 1 << 20

// BusHandler handles administrative bus endpoints
type BusHandler struct {
	buses    db.BusCollection
	validate *validator.Validate
	logger   logrus.FieldLogger
}

// NewBusHandler creates a new bus handler
func NewBusHandler(buses db.BusCollection, logger logrus.FieldLogger) *BusHandler {
	return &BusHandler{buses: buses, validate: newValidator(), logger: logger}
}

// AddBus inserts a new bus document
func (h *BusHandler) AddBus(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAddBusBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var req models.AddBusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, "Missing field: "+verrs[0].Field())
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	bus := req.ToBus()
	logger := h.logger.WithField("bus", bus.BusName)
	if _, err := timetable.ParseDeparture(bus.Time); err != nil {
		logger.WithField("time", bus.Time).Warn("Bus added with unparseable departure time")
	}

	if err := h.buses.InsertBus(r.Context(), bus); err != nil {
		logger.WithError(err).Error("Failed to insert bus")
		writeError(w, http.StatusInternalServerError, "Failed to add bus")
		return
	}

	logger.WithFields(logrus.Fields{"start": bus.Start, "end": bus.End, "time": bus.Time}).Info("Bus added")
	writeMessage(w, http.StatusCreated, "Bus added successfully")
}
