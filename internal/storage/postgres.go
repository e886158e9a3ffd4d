package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/example/ride-hailing/internal/fault"
	"github.com/example/ride-hailing/internal/models"
)

// PostgresStore persists rides in a rides table. Conditional updates compile
// the precondition into the UPDATE's WHERE clause so acceptance races are
// settled by the database, never by a read-then-write in Go.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const rideColumns = `id, rider_id, driver_id, pickup, dropoff, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, ride_type, fare, status, cancelled_by, created_at, updated_at`

func (p *PostgresStore) Insert(ctx context.Context, r *models.Ride) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO rides(`+rideColumns+`) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		r.ID, r.RiderID, nullStr(r.DriverID), r.Pickup, r.Dropoff,
		nullFloat(r.PickupLat), nullFloat(r.PickupLng), nullFloat(r.DropoffLat), nullFloat(r.DropoffLng),
		r.RideType, r.Fare, string(r.Status), nullStr(string(r.CancelledBy)), r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fault.Store(err)
	}
	return nil
}

func (p *PostgresStore) FindByID(ctx context.Context, id string) (*models.Ride, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+rideColumns+` FROM rides WHERE id=$1`, id)
	r, err := scanRide(row)
	if err == sql.ErrNoRows {
		return nil, fault.NotFound("ride %s", id)
	}
	if err != nil {
		return nil, fault.Store(err)
	}
	return r, nil
}

func (p *PostgresStore) Filter(ctx context.Context, q RideQuery) ([]*models.Ride, error) {
	where := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Status != "" {
		where = append(where, "status = "+arg(string(q.Status)))
	}
	if len(q.StatusIn) > 0 {
		where = append(where, "status = ANY("+arg(pq.Array(statusStrings(q.StatusIn)))+")")
	}
	if q.RiderID != "" {
		where = append(where, "rider_id = "+arg(q.RiderID))
	}
	if q.NotRiderID != "" {
		where = append(where, "rider_id <> "+arg(q.NotRiderID))
	}
	if q.DriverID != "" {
		where = append(where, "driver_id = "+arg(q.DriverID))
	}

	query := `SELECT ` + rideColumns + ` FROM rides`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	switch q.OrderBy {
	case OrderCreatedDesc:
		query += " ORDER BY created_at DESC"
	case OrderUpdatedDesc:
		query += " ORDER BY updated_at DESC"
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fault.Store(err)
	}
	defer rows.Close()

	var out []*models.Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, fault.Store(err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Store(err)
	}
	return out, nil
}

func (p *PostgresStore) UpdateWithPrecondition(ctx context.Context, id string, pre Precondition, patch RidePatch) (*models.Ride, error) {
	set := []string{"updated_at = now()"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if patch.Status != "" {
		set = append(set, "status = "+arg(string(patch.Status)))
	}
	if patch.DriverID != nil {
		set = append(set, "driver_id = "+arg(*patch.DriverID))
	}
	if patch.CancelledBy != nil {
		set = append(set, "cancelled_by = "+arg(string(*patch.CancelledBy)))
	}

	where := []string{"id = " + arg(id)}
	if len(pre.StatusIn) > 0 {
		where = append(where, "status = ANY("+arg(pq.Array(statusStrings(pre.StatusIn)))+")")
	}
	if pre.NoDriver {
		where = append(where, "driver_id IS NULL")
	}

	query := "UPDATE rides SET " + strings.Join(set, ", ") +
		" WHERE " + strings.Join(where, " AND ") +
		" RETURNING " + rideColumns

	row := p.db.QueryRowContext(ctx, query, args...)
	r, err := scanRide(row)
	if err == sql.ErrNoRows {
		// Zero rows means the ride is gone or the precondition lost the race;
		// tell the two apart so the caller can report "no longer available".
		var exists bool
		if err := p.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM rides WHERE id=$1)`, id).Scan(&exists); err != nil {
			return nil, fault.Store(err)
		}
		if !exists {
			return nil, fault.NotFound("ride %s", id)
		}
		return nil, fault.Conflict("ride %s failed precondition", id)
	}
	if err != nil {
		return nil, fault.Store(err)
	}
	return r, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*models.Ride, error) {
	var r models.Ride
	var driverID, cancelledBy sql.NullString
	var pLat, pLng, dLat, dLng sql.NullFloat64
	var status string
	err := row.Scan(&r.ID, &r.RiderID, &driverID, &r.Pickup, &r.Dropoff,
		&pLat, &pLng, &dLat, &dLng,
		&r.RideType, &r.Fare, &status, &cancelledBy, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.DriverID = driverID.String
	r.Status = models.RideStatus(status)
	r.CancelledBy = models.Role(cancelledBy.String)
	r.PickupLat = floatPtr(pLat)
	r.PickupLng = floatPtr(pLng)
	r.DropoffLat = floatPtr(dLat)
	r.DropoffLng = floatPtr(dLng)
	return &r, nil
}

func statusStrings(in []models.RideStatus) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
