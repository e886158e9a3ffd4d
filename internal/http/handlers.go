package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/example/ride-hailing/internal/cache"
	"github.com/example/ride-hailing/internal/fare"
	"github.com/example/ride-hailing/internal/fault"
	"github.com/example/ride-hailing/internal/lifecycle"
	"github.com/example/ride-hailing/internal/models"
)

// actor resolves the caller's external identity (X-User-ID header) through
// the directory. Everything past this point works with internal ids only.
func (s *Server) actor(r *http.Request) (*models.User, error) {
	ext := r.Header.Get("X-User-ID")
	if ext == "" {
		return nil, fault.Validation("missing X-User-ID header")
	}
	return s.directory.Resolve(r.Context(), ext)
}

type rideRequestBody struct {
	Pickup     string   `json:"pickup"`
	Dropoff    string   `json:"dropoff"`
	PickupLat  *float64 `json:"pickup_lat"`
	PickupLng  *float64 `json:"pickup_lng"`
	DropoffLat *float64 `json:"dropoff_lat"`
	DropoffLng *float64 `json:"dropoff_lng"`
	RideType   string   `json:"ride_type"`
}

func (b rideRequestBody) toInput() lifecycle.RideInput {
	in := lifecycle.RideInput{PickupAddr: b.Pickup, DropoffAddr: b.Dropoff, RideType: b.RideType}
	if b.PickupLat != nil && b.PickupLng != nil {
		in.Pickup = &models.Coord{Lat: *b.PickupLat, Lng: *b.PickupLng}
	}
	if b.DropoffLat != nil && b.DropoffLng != nil {
		in.Dropoff = &models.Coord{Lat: *b.DropoffLat, Lng: *b.DropoffLng}
	}
	return in
}

func (s *Server) handleRequestRide(w http.ResponseWriter, r *http.Request) {
	user, err := s.actor(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	acts, err := lifecycle.NewRiderActions(user, s.engine, s.views, s.settle)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var body rideRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, fault.Validation("bad request body: %v", err))
		return
	}
	ride, err := acts.Request(r.Context(), body.toInput())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, ride)
}

func (s *Server) handleGetRide(w http.ResponseWriter, r *http.Request) {
	if _, err := s.actor(r); err != nil {
		s.writeError(w, err)
		return
	}
	ride, err := s.engine.Ride(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ride)
}

// handleRideStatus is the polling fast path: Redis first, store on miss.
func (s *Server) handleRideStatus(w http.ResponseWriter, r *http.Request) {
	if _, err := s.actor(r); err != nil {
		s.writeError(w, err)
		return
	}
	id := mux.Vars(r)["id"]

	if s.cache != nil {
		if e, ok, err := s.cache.Get(r.Context(), id); err == nil && ok {
			s.writeJSON(w, http.StatusOK, statusResponse{RideID: id, Status: e.Status, DriverID: e.DriverID, UpdatedAt: e.UpdatedAt})
			return
		}
	}

	ride, err := s.engine.Ride(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if s.cache != nil {
		if err := s.cache.Set(r.Context(), id, cache.StatusEntry{Status: ride.Status, DriverID: ride.DriverID, UpdatedAt: ride.UpdatedAt}); err != nil {
			s.logger.Warn("status cache refresh failed", "ride_id", id, "error", err)
		}
	}
	s.writeJSON(w, http.StatusOK, statusResponse{RideID: id, Status: ride.Status, DriverID: ride.DriverID, UpdatedAt: ride.UpdatedAt})
}

type statusResponse struct {
	RideID    string            `json:"ride_id"`
	Status    models.RideStatus `json:"status"`
	DriverID  string            `json:"driver_id,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (s *Server) handleAcceptRide(w http.ResponseWriter, r *http.Request) {
	user, err := s.actor(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	acts, err := lifecycle.NewDriverActions(user, s.engine, s.views)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ride, err := acts.Accept(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleCancelRide(w http.ResponseWriter, r *http.Request) {
	user, err := s.actor(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id := mux.Vars(r)["id"]

	var ride *models.Ride
	switch user.Role {
	case models.RoleRider:
		acts, aerr := lifecycle.NewRiderActions(user, s.engine, s.views, s.settle)
		if aerr != nil {
			s.writeError(w, aerr)
			return
		}
		ride, err = acts.Cancel(r.Context(), id)
	case models.RoleDriver:
		acts, aerr := lifecycle.NewDriverActions(user, s.engine, s.views)
		if aerr != nil {
			s.writeError(w, aerr)
			return
		}
		ride, err = acts.Cancel(r.Context(), id)
	default:
		err = fault.Forbidden("user %s has no role", user.ID)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ride)
}

type paymentBody struct {
	RideID             string `json:"ride_id"`
	Amount             int64  `json:"amount"`
	PaymentMode        string `json:"payment_mode"`
	DestinationAccount string `json:"destination_account"`
}

func (s *Server) handlePayment(w http.ResponseWriter, r *http.Request) {
	user, err := s.actor(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	acts, err := lifecycle.NewRiderActions(user, s.engine, s.views, s.settle)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var body paymentBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, fault.Validation("bad request body: %v", err))
		return
	}
	if body.RideID == "" {
		s.writeError(w, fault.Validation("ride_id required"))
		return
	}

	var ride *models.Ride
	switch body.PaymentMode {
	case "", "card":
		ride, err = acts.PayByCard(r.Context(), body.RideID, body.DestinationAccount)
	case "cash":
		ride, err = acts.PayCash(r.Context(), body.RideID, body.Amount)
	default:
		err = fault.Validation("unknown payment_mode %q", body.PaymentMode)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleOpenRequests(w http.ResponseWriter, r *http.Request) {
	user, err := s.actor(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	acts, err := lifecycle.NewDriverActions(user, s.engine, s.views)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rides, err := acts.OpenRequests(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"rides": rides})
}

func (s *Server) handleDriverHistory(w http.ResponseWriter, r *http.Request) {
	user, err := s.actor(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	acts, err := lifecycle.NewDriverActions(user, s.engine, s.views)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rides, earnings, err := acts.Earnings(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"rides": rides, "total_earnings": earnings})
}

func (s *Server) handleRiderRides(w http.ResponseWriter, r *http.Request) {
	user, err := s.actor(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	acts, err := lifecycle.NewRiderActions(user, s.engine, s.views, s.settle)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rides, err := acts.Rides(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"rides": rides})
}

func (s *Server) handleFareEstimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pickup, err := coordFromQuery(q.Get("pickup_lat"), q.Get("pickup_lng"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	dropoff, err := coordFromQuery(q.Get("dropoff_lat"), q.Get("dropoff_lng"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"fare": fare.Estimate(pickup, dropoff)})
}

func coordFromQuery(latStr, lngStr string) (*models.Coord, error) {
	if latStr == "" || lngStr == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, fault.Validation("bad latitude %q", latStr)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, fault.Validation("bad longitude %q", lngStr)
	}
	return &models.Coord{Lat: lat, Lng: lng}, nil
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.wsreg == nil {
		http.Error(w, "websocket dispatch disabled", http.StatusNotImplemented)
		return
	}
	id := mux.Vars(r)["driver_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	s.wsreg.Add(id, conn)
	go func() {
		defer func() {
			s.wsreg.Remove(id)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the fault taxonomy onto HTTP statuses. Conflicts keep their
// specific reason so the client can show "ride no longer available" instead
// of a generic failure.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, fault.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, fault.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, fault.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, fault.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, fault.ErrPayment):
		status = http.StatusPaymentRequired
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("internal error", "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
