// Package payment wraps the payment provider behind a narrow interface so
// the unlock flow does not depend on the Stripe SDK directly.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
)

// ErrSessionNotFound is returned when the provider has no such checkout
// session.
var ErrSessionNotFound = errors.New("checkout session not found")

// CheckoutSession is the slice of a provider checkout session the unlock
// flow needs.
type CheckoutSession struct {
	ID       string
	Email    string
	Paid     bool
	Metadata map[string]string
}

// SessionVerifier retrieves checkout sessions from the payment provider.
type SessionVerifier interface {
	Session(ctx context.Context, sessionID string) (*CheckoutSession, error)
}

// StripeVerifier retrieves checkout sessions via the Stripe API.
type StripeVerifier struct {
	sc *client.API
}

// NewStripeVerifier creates a StripeVerifier with the given secret key.
func NewStripeVerifier(secretKey string) *StripeVerifier {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeVerifier{sc: sc}
}

// Session fetches a checkout session and maps it to the domain shape.
func (v *StripeVerifier) Session(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	}
	sess, err := v.sc.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get checkout session %s: %w", sessionID, err)
	}

	email := sess.CustomerEmail
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		email = sess.CustomerDetails.Email
	}

	return &CheckoutSession{
		ID:       sess.ID,
		Email:    email,
		Paid:     sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Metadata: sess.Metadata,
	}, nil
}
