// Package payments settles rides. Card charges go through an external
// processor; cash is recorded directly. Either path converges on the
// lifecycle engine's settlement, and a processor failure leaves the ride in
// its prior state with nothing persisted.
package payments

import (
	"context"
	"log/slog"

	"github.com/example/ride-hailing/internal/fault"
	"github.com/example/ride-hailing/internal/lifecycle"
	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/observability"
)

// Processor charges a fixed amount against a destination account and returns
// a provider reference.
type Processor interface {
	Charge(ctx context.Context, amount int64, currency, destination string) (reference string, err error)
}

type Settlement struct {
	Engine    *lifecycle.Engine
	Processor Processor
	Currency  string
	Logger    *slog.Logger
}

// ChargeCard charges the ride's stored fare, never a recomputed one, and
// completes the ride on success. The processor is only reached for a ride in
// a payable state; a requested ride must not cost anyone money.
func (s *Settlement) ChargeCard(ctx context.Context, rideID, destination string) (*models.Ride, error) {
	r, err := s.Engine.Ride(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.Status != models.StatusAccepted && r.Status != models.StatusInProgress {
		return nil, fault.Conflict("ride %s is not in a payable state", rideID)
	}

	ref, err := s.Processor.Charge(ctx, r.Fare, s.Currency, destination)
	if err != nil {
		observability.PaymentFailuresTotal.Inc()
		return nil, fault.Payment("charge for ride %s declined: %v", rideID, err)
	}
	s.logger().Info("card charge succeeded", "ride_id", rideID, "amount", r.Fare, "reference", ref)

	settled, err := s.Engine.SettlePayment(ctx, rideID, r.Fare)
	if err != nil {
		// The charge went through but the ride moved under us. Surface the
		// error; reconciliation against the processor reference is manual.
		s.logger().Error("charged but not settled", "ride_id", rideID, "reference", ref, "error", err)
		return nil, err
	}
	observability.PaymentsSettledTotal.WithLabelValues("card").Inc()
	return settled, nil
}

// RecordCashPayment records an out-of-band cash payment and completes the
// ride. The processor is never involved.
func (s *Settlement) RecordCashPayment(ctx context.Context, rideID string, amount int64) (*models.Ride, error) {
	settled, err := s.Engine.SettlePayment(ctx, rideID, amount)
	if err != nil {
		return nil, err
	}
	observability.PaymentsSettledTotal.WithLabelValues("cash").Inc()
	s.logger().Info("cash payment recorded", "ride_id", rideID, "amount", amount)
	return settled, nil
}

func (s *Settlement) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
