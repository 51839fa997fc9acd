package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"bazaar/internal/config"

	"github.com/go-resty/resty/v2"
)

var (
	ErrPaymentNotConfigured = errors.New("payment gateway is not configured")
	ErrPaymentGateway       = errors.New("payment gateway request failed")
)

// PaymentIntent is the client-usable payment authorization returned by the
// gateway. The client secret is handed to the browser to complete the card
// flow; the id later comes back as the order's payment reference.
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// PaymentService is a thin pass-through to the external card-payment API. It
// holds no state and never verifies payment status on behalf of the order
// flow.
type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, amountMinorUnits int64) (*PaymentIntent, error)
}

type paymentService struct {
	client   *resty.Client
	currency string
}

// NewPaymentService creates a gateway adapter from the payment configuration
func NewPaymentService(cfg config.PaymentConfig) PaymentService {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.SecretKey).
		SetHeader("Content-Type", "application/x-www-form-urlencoded")

	return &paymentService{
		client:   client,
		currency: cfg.Currency,
	}
}

// CreatePaymentIntent asks the gateway to authorize a card payment for the
// given amount in minor units (cents)
func (s *paymentService) CreatePaymentIntent(ctx context.Context, amountMinorUnits int64) (*PaymentIntent, error) {
	if s.client.Token == "" {
		return nil, ErrPaymentNotConfigured
	}

	var intent PaymentIntent
	resp, err := s.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"amount":                 strconv.FormatInt(amountMinorUnits, 10),
			"currency":               s.currency,
			"payment_method_types[]": "card",
		}).
		SetResult(&intent).
		Post("/payment_intents")

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d: %s", ErrPaymentGateway, resp.StatusCode(), resp.String())
	}

	return &intent, nil
}
