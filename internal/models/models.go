package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RideStatus is the lifecycle state of a ride. Transitions are enforced by the
// lifecycle engine; completed and cancelled are terminal.
type RideStatus string

const (
	StatusRequested  RideStatus = "requested"
	StatusAccepted   RideStatus = "accepted"
	StatusInProgress RideStatus = "in_progress"
	StatusCompleted  RideStatus = "completed"
	StatusCancelled  RideStatus = "cancelled"
)

func (s RideStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s RideStatus) Valid() bool {
	switch s {
	case StatusRequested, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
)

// User is the directory record an external identity resolves to. Profile
// fields ride along for display; the core only reads ID and Role.
type User struct {
	ID           string `json:"id"`
	ExternalID   string `json:"external_id"`
	Role         Role   `json:"role"`
	Name         string `json:"name,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// Ride is the central trip record. DriverID is empty exactly while the ride is
// still in requested state. Coordinates are optional because geocoding of the
// typed-in addresses can fail; the fare is computed once at creation from
// whatever coordinates were present and never recomputed.
type Ride struct {
	ID          string     `json:"id"`
	RiderID     string     `json:"rider_id"`
	DriverID    string     `json:"driver_id,omitempty"`
	Pickup      string     `json:"pickup"`
	Dropoff     string     `json:"dropoff"`
	PickupLat   *float64   `json:"pickup_lat"`
	PickupLng   *float64   `json:"pickup_lng"`
	DropoffLat  *float64   `json:"dropoff_lat"`
	DropoffLng  *float64   `json:"dropoff_lng"`
	RideType    string     `json:"ride_type"`
	Fare        int64      `json:"fare"`
	Status      RideStatus `json:"status"`
	CancelledBy Role       `json:"cancelled_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PickupCoord returns the pickup point, or nil when either component is missing.
func (r *Ride) PickupCoord() *Coord {
	if r.PickupLat == nil || r.PickupLng == nil {
		return nil
	}
	return &Coord{Lat: *r.PickupLat, Lng: *r.PickupLng}
}

func (r *Ride) DropoffCoord() *Coord {
	if r.DropoffLat == nil || r.DropoffLng == nil {
		return nil
	}
	return &Coord{Lat: *r.DropoffLat, Lng: *r.DropoffLng}
}

// Clone returns a deep copy so store internals never alias caller-held rides.
func (r *Ride) Clone() *Ride {
	if r == nil {
		return nil
	}
	cp := *r
	cp.PickupLat = clonePtr(r.PickupLat)
	cp.PickupLng = clonePtr(r.PickupLng)
	cp.DropoffLat = clonePtr(r.DropoffLat)
	cp.DropoffLng = clonePtr(r.DropoffLng)
	return &cp
}

func clonePtr(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
