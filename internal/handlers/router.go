package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/bus-tracker/internal/auth"
	"github.com/ukydev/bus-tracker/internal/config"
	"github.com/ukydev/bus-tracker/internal/db"
	"github.com/ukydev/bus-tracker/internal/middleware"
	"github.com/ukydev/bus-tracker/internal/notify"
)

// RouterDeps is everything NewRouter wires together.
type RouterDeps struct {
	Config    config.Config
	Buses     db.BusCollection
	Auth      *auth.Service
	Sessions  *auth.CookieStore
	Publisher notify.Publisher
	Views     *Views
	Logger    logrus.FieldLogger
}

// NewRouter builds the HTTP handler for the service.
func NewRouter(deps RouterDeps) http.Handler {
	pages := NewPageHandler(deps.Views, deps.Buses, deps.Logger)
	search := NewSearchHandler(deps.Buses, deps.Logger)
	conductor := NewConductorHandler(deps.Auth, deps.Sessions, deps.Buses, deps.Publisher, deps.Views, deps.Logger)
	buses := NewBusHandler(deps.Buses, deps.Logger)

	sessionMiddleware := middleware.NewSessionMiddleware(deps.Sessions, deps.Logger)
	limits := deps.Config.RateLimit
	loginLimiter := middleware.NewRateLimitMiddleware(limits.LoginWindow, limits.TrustProxy).RateLimit(limits.LoginMax)

	r := mux.NewRouter()
	r.HandleFunc("/", pages.Home).Methods(http.MethodGet)
	r.HandleFunc("/passenger", pages.Passenger).Methods(http.MethodGet)
	r.HandleFunc("/health", pages.Health).Methods(http.MethodGet)
	r.HandleFunc("/search", search.Search).Methods(http.MethodGet)

	r.HandleFunc("/login", conductor.LoginPage).Methods(http.MethodGet)
	r.Handle("/login", loginLimiter(http.HandlerFunc(conductor.Login))).Methods(http.MethodPost)
	r.HandleFunc("/logout", conductor.Logout).Methods(http.MethodGet)
	r.Handle("/conductor", sessionMiddleware.RequireConductor(http.HandlerFunc(conductor.Dashboard))).
		Methods(http.MethodGet, http.MethodPost)

	r.Handle("/add_bus", middleware.RequireAdminKey(deps.Auth)(http.HandlerFunc(buses.AddBus))).
		Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins: deps.Config.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Admin-Key", middleware.RequestIDHeader},
	})

	var handler http.Handler = c.Handler(r)
	handler = middleware.Recovery(deps.Logger)(handler)
	handler = middleware.RequestLogger(deps.Logger)(handler)
	return handler
}
