package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ride-hailing/internal/cache"
	"github.com/example/ride-hailing/internal/dispatch"
	"github.com/example/ride-hailing/internal/identity"
	"github.com/example/ride-hailing/internal/lifecycle"
	"github.com/example/ride-hailing/internal/views"
)

// Deps is everything the API surface needs wired in. Cache and WSReg are
// optional; the corresponding endpoints degrade gracefully without them.
type Deps struct {
	Directory identity.Directory
	Engine    *lifecycle.Engine
	Views     *views.Builder
	Settle    lifecycle.Settler
	Cache     *cache.StatusCache
	WSReg     *dispatch.WSRegistry
	Logger    *slog.Logger
}

type Server struct {
	directory identity.Directory
	engine    *lifecycle.Engine
	views     *views.Builder
	settle    lifecycle.Settler
	cache     *cache.StatusCache
	wsreg     *dispatch.WSRegistry
	logger    *slog.Logger
	mux       *mux.Router
}

func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		directory: d.Directory,
		engine:    d.Engine,
		views:     d.Views,
		settle:    d.Settle,
		cache:     d.Cache,
		wsreg:     d.WSReg,
		logger:    logger,
		mux:       mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/rides", s.handleRequestRide).Methods("POST")
	s.mux.HandleFunc("/api/v1/rides/{id}", s.handleGetRide).Methods("GET")
	s.mux.HandleFunc("/api/v1/rides/{id}/status", s.handleRideStatus).Methods("GET")
	s.mux.HandleFunc("/api/v1/rides/{id}/accept", s.handleAcceptRide).Methods("POST")
	s.mux.HandleFunc("/api/v1/rides/{id}/cancel", s.handleCancelRide).Methods("POST")
	s.mux.HandleFunc("/api/v1/payments", s.handlePayment).Methods("POST")
	s.mux.HandleFunc("/api/v1/drivers/requests", s.handleOpenRequests).Methods("GET")
	s.mux.HandleFunc("/api/v1/drivers/history", s.handleDriverHistory).Methods("GET")
	s.mux.HandleFunc("/api/v1/riders/rides", s.handleRiderRides).Methods("GET")
	s.mux.HandleFunc("/api/v1/fare/estimate", s.handleFareEstimate).Methods("GET")
	s.mux.HandleFunc("/ws/drivers/{driver_id}", s.handleWS)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func newID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
