package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/staybooking/config"
)

// StripeCardGateway talks to a Stripe-compatible card API over HTTP. Payment
// intents are created with capture_method=manual so funds stay authorized
// until the host confirms.
type StripeCardGateway struct {
	baseURL       string
	secretKey     string
	webhookSecret string
	client        *http.Client
}

func NewStripeCardGateway(cfg config.PaymentConfig) *StripeCardGateway {
	return &StripeCardGateway{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		client:        &http.Client{Timeout: 15 * time.Second},
	}
}

type paymentIntent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Status       string            `json:"status"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *StripeCardGateway) Authorize(ctx context.Context, req AuthorizeRequest) (*Authorization, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountCents, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("capture_method", "manual")
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var intent paymentIntent
	if err := g.do(ctx, http.MethodPost, "/v1/payment_intents", form, &intent); err != nil {
		return nil, err
	}
	return &Authorization{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func (g *StripeCardGateway) Capture(ctx context.Context, ref string) error {
	return g.do(ctx, http.MethodPost, "/v1/payment_intents/"+ref+"/capture", url.Values{}, nil)
}

func (g *StripeCardGateway) Cancel(ctx context.Context, ref string) error {
	err := g.do(ctx, http.MethodPost, "/v1/payment_intents/"+ref+"/cancel", url.Values{}, nil)
	return err
}

func (g *StripeCardGateway) Retrieve(ctx context.Context, ref string) (AuthorizationStatus, error) {
	var intent paymentIntent
	if err := g.do(ctx, http.MethodGet, "/v1/payment_intents/"+ref, nil, &intent); err != nil {
		return "", err
	}
	return AuthorizationStatus(intent.Status), nil
}

func (g *StripeCardGateway) Refund(ctx context.Context, ref string, amountCents int64) error {
	form := url.Values{}
	form.Set("payment_intent", ref)
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	return g.do(ctx, http.MethodPost, "/v1/refunds", form, nil)
}

type webhookEnvelope struct {
	Type string `json:"type"`
	Data struct {
		Object paymentIntent `json:"object"`
	} `json:"data"`
}

// ParseWebhook verifies the HMAC-SHA256 signature before trusting anything
// in the payload, then maps the provider event to the typed lifecycle event.
func (g *StripeCardGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrInvalidSignature
	}

	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}

	var eventType WebhookEventType
	switch env.Type {
	case "payment_intent.succeeded":
		eventType = WebhookPaymentSucceeded
	case "payment_intent.payment_failed":
		eventType = WebhookPaymentFailed
	case "payment_intent.canceled":
		eventType = WebhookPaymentCanceled
	default:
		return nil, fmt.Errorf("unsupported webhook event type %q", env.Type)
	}

	return &WebhookEvent{
		Type:            eventType,
		AuthorizationID: env.Data.Object.ID,
		BookingID:       env.Data.Object.Metadata["booking_id"],
		AmountCents:     env.Data.Object.Amount,
		Currency:        strings.ToUpper(env.Data.Object.Currency),
	}, nil
}

func (g *StripeCardGateway) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	var body io.Reader
	if form != nil && method != http.MethodGet {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("payment gateway request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.Unmarshal(data, &apiErr); err == nil {
			if apiErr.Error.Code == "payment_intent_unexpected_state" {
				return ErrAlreadyFinalized
			}
			return fmt.Errorf("payment gateway error: %s", apiErr.Error.Message)
		}
		return fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode gateway response: %w", err)
		}
	}
	return nil
}

var _ Gateway = (*StripeCardGateway)(nil)
