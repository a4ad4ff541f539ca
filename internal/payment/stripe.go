package payment

import (
	"context"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
)

// StripeProcessor crée les PaymentIntents chez Stripe
type StripeProcessor struct{}

// NewStripeProcessor initialise la clé Stripe et coupe les relances réseau du SDK :
// une création d'intent ne doit jamais être rejouée automatiquement.
func NewStripeProcessor(secretKey string, timeout time.Duration) *StripeProcessor {
	stripe.Key = secretKey
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
	}))
	return &StripeProcessor{}
}

func (p *StripeProcessor) CreateIntent(ctx context.Context, req ProcessorRequest) (ProcessorIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinorUnits),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: req.Metadata,
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		return ProcessorIntent{}, err
	}
	return ProcessorIntent{IntentID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}
