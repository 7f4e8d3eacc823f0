package mercadopago

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/refund"
	"github.com/shopspring/decimal"
	appconfig "github.com/smallbiznis/eventledger/internal/config"
	paymentdomain "github.com/smallbiznis/eventledger/internal/payment/domain"
	"go.uber.org/zap"
)

const Provider = "mercadopago"

// PaymentLookup is the part of the payment API the gateway needs.
type PaymentLookup interface {
	Get(ctx context.Context, id int) (*payment.Response, error)
}

// Refunder is the part of the refund API the gateway needs.
type Refunder interface {
	Create(ctx context.Context, paymentID int) (*refund.Response, error)
	CreatePartialRefund(ctx context.Context, paymentID int, amount float64) (*refund.Response, error)
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return Provider
}

func (f *Factory) NewGateway(cfg appconfig.GatewayConfig, log *zap.Logger) (paymentdomain.Gateway, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("payment.gateway.mercadopago")

	if cfg.Mock {
		log.Info("mock mode enabled")
		return &Gateway{mockMode: true, webhookSecret: cfg.WebhookSecret, log: log}, nil
	}

	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, fmt.Errorf("%w: missing MERCADOPAGO_ACCESS_TOKEN", paymentdomain.ErrGatewayNotConfigured)
	}
	sdkCfg, err := config.New(token)
	if err != nil {
		return nil, err
	}
	log.Info("mercado pago client initialized")
	return New(payment.NewClient(sdkCfg), refund.NewClient(sdkCfg), cfg.WebhookSecret, log), nil
}

type Gateway struct {
	payments      PaymentLookup
	refunds       Refunder
	webhookSecret string
	mockMode      bool
	log           *zap.Logger
}

func New(payments PaymentLookup, refunds Refunder, webhookSecret string, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		payments:      payments,
		refunds:       refunds,
		webhookSecret: strings.TrimSpace(webhookSecret),
		log:           log,
	}
}

func (g *Gateway) Provider() string {
	return Provider
}

// Refund issues one refund per gateway payment. Any transport error is
// returned as is: the caller treats it as an unknown outcome.
func (g *Gateway) Refund(ctx context.Context, req paymentdomain.RefundRequest) (paymentdomain.RefundResult, error) {
	if g.mockMode {
		id := strconv.FormatInt(time.Now().UTC().UnixNano(), 10)
		g.log.Info("mock refund", zap.String("external_reference", req.ExternalReference), zap.String("refund_id", id))
		return paymentdomain.RefundResult{Success: true, RefundID: id}, nil
	}
	if g.refunds == nil {
		return paymentdomain.RefundResult{}, paymentdomain.ErrGatewayNotConfigured
	}

	paymentID, err := strconv.Atoi(strings.TrimSpace(req.ExternalReference))
	if err != nil {
		return paymentdomain.RefundResult{Success: false, ErrorCode: "invalid_external_reference"}, nil
	}

	var resp *refund.Response
	if req.Full {
		resp, err = g.refunds.Create(ctx, paymentID)
	} else {
		amount, _ := req.Amount.Float64()
		resp, err = g.refunds.CreatePartialRefund(ctx, paymentID, amount)
	}
	if err != nil {
		return paymentdomain.RefundResult{}, err
	}
	if resp == nil {
		return paymentdomain.RefundResult{Success: false, ErrorCode: "empty_response"}, nil
	}

	switch strings.ToLower(resp.Status) {
	case "approved", "":
		return paymentdomain.RefundResult{Success: true, RefundID: strconv.Itoa(resp.ID)}, nil
	default:
		return paymentdomain.RefundResult{
			Success:   false,
			RefundID:  strconv.Itoa(resp.ID),
			ErrorCode: resp.Status,
		}, nil
	}
}

// Verify checks the x-signature header against the notification manifest.
func (g *Gateway) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if g.mockMode {
		return nil
	}
	if g.webhookSecret == "" {
		return paymentdomain.ErrInvalidSignature
	}

	ts, signature, err := parseSignature(headers.Get("x-signature"))
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return paymentdomain.ErrInvalidPayload
	}

	expected := Sign(g.webhookSecret, n.dataID(), headers.Get("x-request-id"), ts)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

// Sign builds the v1 signature for a notification.
func Sign(secret, dataID, requestID, ts string) string {
	var manifest strings.Builder
	if dataID != "" {
		manifest.WriteString("id:" + strings.ToLower(dataID) + ";")
	}
	if requestID != "" {
		manifest.WriteString("request-id:" + requestID + ";")
	}
	manifest.WriteString("ts:" + ts + ";")

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(manifest.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// ParseCallback resolves a notification into the payment's current state.
// Notifications carry only an id, so the payment is looked up.
func (g *Gateway) ParseCallback(ctx context.Context, payload []byte, headers http.Header) (*paymentdomain.Callback, error) {
	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if !n.isPayment() {
		return nil, paymentdomain.ErrEventIgnored
	}
	dataID := n.dataID()
	if dataID == "" {
		return nil, paymentdomain.ErrInvalidPayload
	}

	var resp *payment.Response
	if g.mockMode {
		resp = n.Data.mockResponse()
	} else {
		if g.payments == nil {
			return nil, paymentdomain.ErrGatewayNotConfigured
		}
		id, err := strconv.Atoi(dataID)
		if err != nil {
			return nil, paymentdomain.ErrInvalidPayload
		}
		resp, err = g.payments.Get(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	if resp == nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	st, ok := mapStatus(resp.Status)
	if !ok {
		g.log.Debug("payment status ignored", zap.String("status", resp.Status))
		return nil, paymentdomain.ErrEventIgnored
	}

	method, brand := mapMethod(resp.PaymentTypeID, resp.PaymentMethodID)
	installments := resp.Installments
	if installments < 1 {
		installments = 1
	}

	externalRef := strconv.Itoa(resp.ID)
	if g.mockMode {
		externalRef = dataID
	}

	return &paymentdomain.Callback{
		Provider:          Provider,
		ProviderEventID:   n.eventID(),
		ExternalReference: externalRef,
		OrderReference:    strings.TrimSpace(resp.ExternalReference),
		Status:            st,
		Method:            method,
		Amount:            decimal.NewFromFloat(resp.TransactionAmount).Round(2),
		Installments:      installments,
		CardBrand:         brand,
	}, nil
}

func mapStatus(status string) (paymentdomain.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "approved":
		return paymentdomain.StatusConfirmed, true
	case "pending", "in_process", "authorized", "in_mediation":
		return paymentdomain.StatusPending, true
	case "rejected", "cancelled":
		return paymentdomain.StatusDenied, true
	case "refunded", "charged_back":
		return paymentdomain.StatusRefunded, true
	default:
		return "", false
	}
}

func mapMethod(paymentType, paymentMethod string) (paymentdomain.Method, string) {
	paymentType = strings.ToLower(strings.TrimSpace(paymentType))
	paymentMethod = strings.ToLower(strings.TrimSpace(paymentMethod))
	switch {
	case paymentMethod == "pix":
		return paymentdomain.MethodPix, ""
	case paymentType == "credit_card":
		return paymentdomain.MethodCreditCard, paymentMethod
	case paymentType == "debit_card":
		return paymentdomain.MethodDebitCard, paymentMethod
	case paymentType == "ticket" || paymentMethod == "bolbradesco":
		return paymentdomain.MethodBoleto, ""
	case paymentType == "bank_transfer":
		return paymentdomain.MethodTransfer, ""
	default:
		return paymentdomain.MethodManual, ""
	}
}

func parseSignature(header string) (string, string, error) {
	var ts, v1 string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			v1 = strings.TrimSpace(value)
		}
	}
	if ts == "" || v1 == "" {
		return "", "", paymentdomain.ErrInvalidSignature
	}
	return ts, v1, nil
}
