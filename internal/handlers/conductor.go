package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/bus-tracker/internal/auth"
	"github.com/ukydev/bus-tracker/internal/db"
	"github.com/ukydev/bus-tracker/internal/middleware"
	"github.com/ukydev/bus-tracker/internal/models"
	"github.com/ukydev/bus-tracker/internal/notify"
)

// Dashboard messages
const (
	MessageUpdated   = "Status and location updated!"
	MessageNoMatch   = "No matching bus found."
	MessageNoChanges = "No changes to apply."
)

// ConductorHandler handles conductor login and status updates
type ConductorHandler struct {
	authService *auth.Service
	sessions    *auth.CookieStore
	buses       db.BusCollection
	publisher   notify.Publisher
	views       *Views
	logger      logrus.FieldLogger
	now         func() time.Time
}

// NewConductorHandler creates a new conductor handler
func NewConductorHandler(authService *auth.Service, sessions *auth.CookieStore, buses db.BusCollection, publisher notify.Publisher, views *Views, logger logrus.FieldLogger) *ConductorHandler {
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	return &ConductorHandler{
		authService: authService,
		sessions:    sessions,
		buses:       buses,
		publisher:   publisher,
		views:       views,
		logger:      logger,
		now:         time.Now,
	}
}

// LoginPage renders the login form
func (h *ConductorHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	render(w, h.views, h.logger, http.StatusOK, "login.html", LoginPage{})
}

// Login checks the derived conductor credentials and starts a session
func (h *ConductorHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		render(w, h.views, h.logger, http.StatusBadRequest, "login.html", LoginPage{Error: "Invalid form"})
		return
	}
	req := models.LoginRequest{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}

	busName, err := h.authService.Authenticate(req.Username, req.Password)
	if err != nil {
		page := LoginPage{Username: req.Username}
		status := http.StatusUnauthorized
		switch {
		case errors.Is(err, auth.ErrInvalidUsernameFormat):
			page.Error = "Invalid username format"
			status = http.StatusBadRequest
		default:
			page.Error = "Invalid password"
		}
		h.logger.WithFields(logrus.Fields{
			"username": req.Username,
			"ip":       r.RemoteAddr,
		}).WithError(err).Info("Conductor login rejected")
		render(w, h.views, h.logger, status, "login.html", page)
		return
	}

	if err := h.sessions.Set(w, busName); err != nil {
		h.logger.WithError(err).Error("Failed to issue session")
		render(w, h.views, h.logger, http.StatusInternalServerError, "login.html", LoginPage{Username: req.Username, Error: "Login failed, try again."})
		return
	}

	h.logger.WithField("bus", busName).Info("Conductor logged in")
	http.Redirect(w, r, "/conductor", http.StatusFound)
}

// Logout clears the session cookie
func (h *ConductorHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// Dashboard renders the conductor page and applies status updates on POST
func (h *ConductorHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, middleware.LoginPath, http.StatusFound)
		return
	}
	page := DashboardPage{Bus: session.Bus}

	if r.Method != http.MethodPost {
		render(w, h.views, h.logger, http.StatusOK, "conductor.html", page)
		return
	}

	if err := r.ParseForm(); err != nil {
		page.Error = "Invalid form"
		render(w, h.views, h.logger, http.StatusBadRequest, "conductor.html", page)
		return
	}

	status := strings.TrimSpace(r.PostForm.Get("status"))
	if status == "" {
		page.Error = "Status is required"
		render(w, h.views, h.logger, http.StatusBadRequest, "conductor.html", page)
		return
	}

	logger := h.logger.WithField("bus", session.Bus)
	update := models.StatusUpdate{Status: status}
	location, err := parseLocation(r.PostForm.Get("lat"), r.PostForm.Get("lng"))
	if err != nil {
		logger.WithError(err).Warn("Ignoring location")
	}
	update.Location = location

	result, err := h.buses.UpdateBusStatus(r.Context(), session.Bus, update)
	if err != nil {
		logger.WithError(err).Error("Failed to update bus status")
		page.Error = "Update failed, try again."
		render(w, h.views, h.logger, http.StatusInternalServerError, "conductor.html", page)
		return
	}

	switch {
	case result.Matched == 0:
		page.Message = MessageNoMatch
	case result.Modified == 0:
		page.Message = MessageNoChanges
	default:
		page.Message = MessageUpdated
		logger.WithField("status", status).Info("Bus status updated")
		event := models.StatusEvent{
			BusName:   session.Bus,
			Status:    status,
			Location:  location,
			UpdatedAt: h.now().UTC(),
		}
		if err := h.publisher.PublishStatus(r.Context(), event); err != nil {
			logger.WithError(err).Warn("Failed to publish status event")
		}
	}

	render(w, h.views, h.logger, http.StatusOK, "conductor.html", page)
}

var errPartialLocation = errors.New("lat and lng must be sent together")

// parseLocation returns nil with no error when neither coordinate is sent.
func parseLocation(lat, lng string) (*models.Location, error) {
	lat, lng = strings.TrimSpace(lat), strings.TrimSpace(lng)
	if lat == "" && lng == "" {
		return nil, nil
	}
	if lat == "" || lng == "" {
		return nil, errPartialLocation
	}
	latValue, err := parseCoordinate(lat)
	if err != nil {
		return nil, err
	}
	lngValue, err := parseCoordinate(lng)
	if err != nil {
		return nil, err
	}
	return &models.Location{Lat: latValue, Lng: lngValue}, nil
}

func parseCoordinate(value string) (float64, error) {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, fmt.Errorf("coordinate %q is not finite", value)
	}
	return parsed, nil
}
