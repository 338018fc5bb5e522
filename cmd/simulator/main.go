package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/bus-tracker/internal/models"
)

// Bus lifecycle as reported by the simulated conductors.
const (
	statusNotStarted = models.DefaultStatus
	statusOnRoute    = "On Route"
	statusArrived    = "Arrived"
)

// Stop is a named route endpoint.
type Stop struct {
	Name     string
	Location models.Location
}

// Stops for realistic routes
var stops = []Stop{
	{"Majestic", models.Location{Lat: 12.9767, Lng: 77.5713}},
	{"Electronic City", models.Location{Lat: 12.8452, Lng: 77.6602}},
	{"Whitefield", models.Location{Lat: 12.9698, Lng: 77.7500}},
	{"Hebbal", models.Location{Lat: 13.0358, Lng: 77.5970}},
	{"Banashankari", models.Location{Lat: 12.9255, Lng: 77.5468}},
	{"Yeshwanthpur", models.Location{Lat: 13.0285, Lng: 77.5409}},
	{"Koramangala", models.Location{Lat: 12.9352, Lng: 77.6245}},
	{"Airport", models.Location{Lat: 13.1986, Lng: 77.7066}},
}

func jitterLocation(base models.Location, meters float64) models.Location {
	latMetersPerDeg := 111320.0
	lngMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLng := (rand.Float64()*2 - 1) * (meters / lngMetersPerDeg)
	return models.Location{Lat: base.Lat + dLat, Lng: base.Lng + dLng}
}

func haversineKm(a, b models.Location) float64 {
	R := 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return R * c
}

func lerp(a, b models.Location, t float64) models.Location {
	return models.Location{Lat: a.Lat + (b.Lat-a.Lat)*t, Lng: a.Lng + (b.Lng-a.Lng)*t}
}

// departureTime formats minutes after midnight the way bus documents store it.
func departureTime(minutes int) string {
	minutes = ((minutes % (24 * 60)) + 24*60) % (24 * 60)
	t := time.Date(2000, 1, 1, minutes/60, minutes%60, 0, 0, time.UTC)
	return t.Format("03:04 PM")
}

// --- API client ---

type apiClient struct {
	baseURL  string
	adminKey string
	http     *http.Client
}

func newAPIClient(baseURL, adminKey string) *apiClient {
	return &apiClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		adminKey: adminKey,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) addBus(ctx context.Context, req models.AddBusRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal bus: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/add_bus", bytes.NewReader(data))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.adminKey != "" {
		httpReq.Header.Set("X-Admin-Key", c.adminKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to add bus: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("bus creation failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

var errSessionLost = errors.New("conductor session lost")

// conductor is a logged-in conductor session for one bus.
type conductor struct {
	api      *apiClient
	username string
	password string
	http     *http.Client
}

func (c *apiClient) newConductor(busName, usernameSuffix, passwordSuffix string) (*conductor, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &conductor{
		api:      c,
		username: busName + usernameSuffix,
		password: busName + passwordSuffix,
		http: &http.Client{
			Jar:     jar,
			Timeout: c.http.Timeout,
			// redirects are how the server reports login success and expired sessions
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

func (c *conductor) postForm(ctx context.Context, path string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.api.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.http.Do(req)
}

func (c *conductor) login(ctx context.Context) error {
	resp, err := c.postForm(ctx, "/login", url.Values{
		"username": {c.username},
		"password": {c.password},
	})
	if err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		return fmt.Errorf("login as %s failed with status %d", c.username, resp.StatusCode)
	}
	return nil
}

func (c *conductor) sendStatus(ctx context.Context, status string, loc models.Location) error {
	resp, err := c.postForm(ctx, "/conductor", url.Values{
		"status": {status},
		"lat":    {strconv.FormatFloat(loc.Lat, 'f', 6, 64)},
		"lng":    {strconv.FormatFloat(loc.Lng, 'f', 6, 64)},
	})
	if err != nil {
		return fmt.Errorf("failed to send status: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusFound:
		return errSessionLost
	default:
		return fmt.Errorf("status update failed with status %d", resp.StatusCode)
	}
}

// --- Routing & movement ---

// BusState is one simulated bus running back and forth between two stops.
type BusState struct {
	BusName   string
	From      Stop
	To        Stop
	Position  models.Location
	SpeedKmh  float64
	Status    string
	legStart  models.Location
	legEnd    models.Location
	legOffset float64 // km along current leg
}

func newBusState(busName string, from, to Stop) *BusState {
	s := &BusState{BusName: busName, From: from, To: to, SpeedKmh: 25 + rand.Float64()*20}
	s.startLeg()
	return s
}

func (s *BusState) startLeg() {
	s.legStart = jitterLocation(s.From.Location, 200)
	s.legEnd = jitterLocation(s.To.Location, 200)
	s.legOffset = 0
	s.Position = s.legStart
	s.Status = statusNotStarted
}

// step advances the bus by one tick.
func (s *BusState) step(tickSec float64) {
	switch s.Status {
	case statusArrived:
		s.From, s.To = s.To, s.From
		s.startLeg()
		return
	case statusNotStarted:
		s.Status = statusOnRoute
	}

	// small speed noise
	s.SpeedKmh += (rand.Float64()*2 - 1) * 1.5
	if s.SpeedKmh < 10 {
		s.SpeedKmh = 10
	}
	if s.SpeedKmh > 60 {
		s.SpeedKmh = 60
	}

	legLen := haversineKm(s.legStart, s.legEnd)
	s.legOffset += s.SpeedKmh * (tickSec / 3600.0)
	if legLen == 0 || s.legOffset >= legLen {
		s.Position = s.legEnd
		s.Status = statusArrived
		return
	}
	s.Position = lerp(s.legStart, s.legEnd, s.legOffset/legLen)
}

// --- Simulation ---

type settings struct {
	apiURL         string
	fleetSize      int
	interval       time.Duration
	adminKey       string
	usernameSuffix string
	passwordSuffix string
}

func loadSettings() settings {
	s := settings{
		apiURL:         "http://localhost:8080",
		fleetSize:      10,
		interval:       2 * time.Second,
		adminKey:       os.Getenv("SIM_ADMIN_KEY"),
		usernameSuffix: "-con",
		passwordSuffix: "1234",
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		s.apiURL = v
	}
	if v := os.Getenv("FLEET_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			s.fleetSize = n
		}
	}
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			s.interval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("CONDUCTOR_USERNAME_SUFFIX"); v != "" {
		s.usernameSuffix = v
	}
	if v := os.Getenv("CONDUCTOR_PASSWORD_SUFFIX"); v != "" {
		s.passwordSuffix = v
	}
	return s
}

// seedBus adds bus i and logs its conductor in.
func seedBus(ctx context.Context, api *apiClient, cfg settings, i int) (*BusState, *conductor, error) {
	from := stops[rand.Intn(len(stops))]
	to := stops[rand.Intn(len(stops))]
	for to.Name == from.Name {
		to = stops[rand.Intn(len(stops))]
	}
	busName := fmt.Sprintf("sim-%d", i+1)

	err := api.addBus(ctx, models.AddBusRequest{
		BusName: busName,
		Start:   from.Name,
		End:     to.Name,
		Time:    departureTime(6*60 + i*15),
	})
	if err != nil {
		return nil, nil, err
	}

	c, err := api.newConductor(busName, cfg.usernameSuffix, cfg.passwordSuffix)
	if err != nil {
		return nil, nil, err
	}
	if err := c.login(ctx); err != nil {
		return nil, nil, err
	}

	log.WithFields(log.Fields{
		"bus":   busName,
		"start": from.Name,
		"end":   to.Name,
	}).Info("Created bus")
	return newBusState(busName, from, to), c, nil
}

// tick moves the bus and reports it, logging the conductor back in if the session expired.
func tick(ctx context.Context, s *BusState, c *conductor, cfg settings) {
	s.step(cfg.interval.Seconds())
	err := c.sendStatus(ctx, s.Status, s.Position)
	if errors.Is(err, errSessionLost) {
		if err = c.login(ctx); err == nil {
			err = c.sendStatus(ctx, s.Status, s.Position)
		}
	}
	if err != nil {
		log.WithError(err).WithField("bus", s.BusName).Error("Failed to send status")
		return
	}
	log.WithFields(log.Fields{"bus": s.BusName, "status": s.Status}).Debug("Sent status")
}

func simulateBus(ctx context.Context, s *BusState, c *conductor, cfg settings) {
	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(ctx, s, c, cfg)
		}
	}
}

func run(ctx context.Context, cfg settings) error {
	log.WithFields(log.Fields{
		"fleet_size": cfg.fleetSize,
		"api_url":    cfg.apiURL,
		"interval":   cfg.interval,
	}).Info("Starting bus simulation")

	api := newAPIClient(cfg.apiURL, cfg.adminKey)
	var wg sync.WaitGroup
	created := 0
	for i := 0; i < cfg.fleetSize; i++ {
		state, c, err := seedBus(ctx, api, cfg, i)
		if err != nil {
			log.WithError(err).Error("Failed to create bus")
			continue
		}
		created++
		wg.Add(1)
		go func() {
			defer wg.Done()
			simulateBus(ctx, state, c, cfg)
		}()
	}

	log.WithField("created_buses", created).Info("Bus creation completed")
	if created == 0 {
		return errors.New("no buses created, check API_BASE_URL and SIM_ADMIN_KEY")
	}

	wg.Wait()
	log.Info("Simulation stopped")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, loadSettings()); err != nil {
		log.Fatal(err)
	}
}
