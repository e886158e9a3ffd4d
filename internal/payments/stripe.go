package payments

import (
	"context"
	"os"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// StripeProcessor charges via confirmed PaymentIntents.
type StripeProcessor struct{}

// NewStripeProcessor initializes the stripe client with the STRIPE_API_KEY env var.
func NewStripeProcessor() *StripeProcessor {
	stripe.Key = os.Getenv("STRIPE_API_KEY")
	return &StripeProcessor{}
}

func (s *StripeProcessor) Charge(ctx context.Context, amount int64, currency, destination string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		Confirm:  stripe.Bool(true),
	}
	if destination != "" {
		params.TransferData = &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(destination),
		}
	}
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}
