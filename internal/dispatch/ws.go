// Package dispatch pushes newly opened ride requests to drivers: over a
// websocket session when the driver is connected, and optionally to an HTTP
// webhook for driver-app backends.
package dispatch

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/ride-hailing/internal/models"
)

// RideAlert is the payload a driver client receives for a new open request.
type RideAlert struct {
	RideID  string `json:"ride_id"`
	RiderID string `json:"rider_id"`
	Pickup  string `json:"pickup"`
	Dropoff string `json:"dropoff"`
	Fare    int64  `json:"fare"`
}

func alertFor(r *models.Ride) RideAlert {
	return RideAlert{RideID: r.ID, RiderID: r.RiderID, Pickup: r.Pickup, Dropoff: r.Dropoff, Fare: r.Fare}
}

// Notifier is anything that can fan an open request out to drivers.
type Notifier interface {
	OpenRequest(r *models.Ride)
}

// alertConn is the slice of the websocket connection the registry writes to.
type alertConn interface {
	WriteJSON(v interface{}) error
}

// WSSession represents a connected driver session. The mutex serializes
// writes; gorilla connections allow only one concurrent writer.
type WSSession struct {
	conn alertConn
	mu   sync.Mutex
}

func (s *WSSession) Send(alert RideAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(alert)
}

// WSRegistry holds driver sessions keyed by driver id.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
}

func NewWSRegistry() *WSRegistry {
	return &WSRegistry{sessions: make(map[string]*WSSession)}
}

func (r *WSRegistry) Add(driverID string, conn *websocket.Conn) {
	r.attach(driverID, conn)
}

func (r *WSRegistry) attach(driverID string, conn alertConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[driverID] = &WSSession{conn: conn}
}

func (r *WSRegistry) Remove(driverID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, driverID)
}

// OpenRequest broadcasts the alert to every connected driver except one whose
// identity matches the requesting rider: a driver who also rides must never
// be offered their own request.
func (r *WSRegistry) OpenRequest(ride *models.Ride) {
	alert := alertFor(ride)

	r.mu.RLock()
	targets := make(map[string]*WSSession, len(r.sessions))
	for id, s := range r.sessions {
		if id == ride.RiderID {
			continue
		}
		targets[id] = s
	}
	r.mu.RUnlock()

	for id, s := range targets {
		if err := s.Send(alert); err != nil {
			slog.Warn("ws send failed", "driver_id", id, "ride_id", ride.ID, "error", err)
		}
	}
}

// Multi fans one alert out to several notifiers.
type Multi []Notifier

func (m Multi) OpenRequest(r *models.Ride) {
	for _, n := range m {
		n.OpenRequest(r)
	}
}
