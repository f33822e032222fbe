package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/srgjo27/wellness_booking/internal/core/domain"
	"github.com/srgjo27/wellness_booking/internal/core/ports"
)

type StripeConfig struct {
	SecretKey string
	// BaseURL overrides the Stripe API endpoint (stripe-mock, tests).
	BaseURL    string
	MaxRetries int64
}

// StripeGateway charges through confirmed PaymentIntents.
type StripeGateway struct {
	sc *client.API
}

func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	backendCfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(cfg.MaxRetries),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if url := strings.TrimSpace(cfg.BaseURL); url != "" {
		backendCfg.URL = stripe.String(url)
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	sc := &client.API{}
	sc.Init(strings.TrimSpace(cfg.SecretKey), &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})

	return &StripeGateway{sc: sc}
}

func (g *StripeGateway) Charge(ctx context.Context, req ports.ChargeRequest) (*ports.ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		Confirm:       stripe.Bool(true),
		Description:   stripe.String(req.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.AddMetadata("customer_ref", req.CustomerRef)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return &ports.ChargeResult{ProviderRef: pi.ID, Status: domain.PaymentSucceeded}, nil
	case stripe.PaymentIntentStatusProcessing, stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusRequiresCapture:
		return &ports.ChargeResult{ProviderRef: pi.ID, Status: domain.PaymentPending}, nil
	case stripe.PaymentIntentStatusCanceled:
		return nil, fmt.Errorf("%w: payment intent %s was canceled", domain.ErrPaymentCancelled, pi.ID)
	default:
		return nil, fmt.Errorf("%w: payment intent %s ended in status %s", domain.ErrPaymentFailed, pi.ID, pi.Status)
	}
}

func (g *StripeGateway) Refund(ctx context.Context, providerRef string, idempotencyKey string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(providerRef),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	if _, err := g.sc.Refunds.New(params); err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeChargeAlreadyRefunded {
			return nil
		}
		return fmt.Errorf("stripe refund %s: %w", providerRef, err)
	}

	return nil
}

// Cancel voids a PaymentIntent that has not settled. Stripe refuses to cancel a
// succeeded intent; that case is reported as domain.ErrPaymentSettled so the caller refunds.
func (g *StripeGateway) Cancel(ctx context.Context, providerRef string) error {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx

	pi, err := g.sc.PaymentIntents.Cancel(providerRef, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodePaymentIntentUnexpectedState && stripeErr.PaymentIntent != nil {
			switch stripeErr.PaymentIntent.Status {
			case stripe.PaymentIntentStatusCanceled:
				return nil
			case stripe.PaymentIntentStatusSucceeded:
				return fmt.Errorf("%w: payment intent %s", domain.ErrPaymentSettled, providerRef)
			}
		}
		return fmt.Errorf("stripe cancel %s: %w", providerRef, err)
	}

	if pi.Status != stripe.PaymentIntentStatusCanceled {
		return fmt.Errorf("stripe cancel %s: intent left in status %s", providerRef, pi.Status)
	}
	return nil
}

func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return err
	}

	if stripeErr.Code == stripe.ErrorCodePaymentIntentUnexpectedState && stripeErr.PaymentIntent != nil &&
		stripeErr.PaymentIntent.Status == stripe.PaymentIntentStatusCanceled {
		return fmt.Errorf("%w: %s", domain.ErrPaymentCancelled, stripeErr.Msg)
	}

	switch stripeErr.Type {
	case stripe.ErrorTypeCard, stripe.ErrorTypeInvalidRequest:
		return fmt.Errorf("%w: %s", domain.ErrPaymentFailed, stripeErr.Msg)
	}

	return fmt.Errorf("stripe: %w", err)
}

// DisabledGateway is wired when no Stripe key is configured. Free services still book.
type DisabledGateway struct{}

func (DisabledGateway) Charge(context.Context, ports.ChargeRequest) (*ports.ChargeResult, error) {
	return nil, fmt.Errorf("%w: payments are not configured", domain.ErrPaymentFailed)
}

func (DisabledGateway) Refund(context.Context, string, string) error {
	return errors.New("payments are not configured")
}

func (DisabledGateway) Cancel(context.Context, string) error {
	return errors.New("payments are not configured")
}
