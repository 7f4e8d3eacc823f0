package mercadopago

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mercadopago/sdk-go/pkg/payment"
)

type notification struct {
	ID     flexibleString   `json:"id"`
	Type   string           `json:"type"`
	Topic  string           `json:"topic"`
	Action string           `json:"action"`
	Data   notificationData `json:"data"`
}

// notificationData carries the payment id. The remaining fields are only
// read in mock mode, where there is no API to look the payment up.
type notificationData struct {
	ID                flexibleString `json:"id"`
	Status            string         `json:"status,omitempty"`
	ExternalReference string         `json:"external_reference,omitempty"`
	TransactionAmount float64        `json:"transaction_amount,omitempty"`
	PaymentMethodID   string         `json:"payment_method_id,omitempty"`
	PaymentTypeID     string         `json:"payment_type_id,omitempty"`
	Installments      int            `json:"installments,omitempty"`
}

func (n notification) isPayment() bool {
	kind := strings.ToLower(strings.TrimSpace(n.Type))
	if kind == "" {
		kind = strings.ToLower(strings.TrimSpace(n.Topic))
	}
	return kind == "payment"
}

func (n notification) dataID() string {
	return strings.TrimSpace(string(n.Data.ID))
}

// eventID identifies the delivery for dedupe. Retries of the same
// notification reuse the top-level id.
func (n notification) eventID() string {
	if id := strings.TrimSpace(string(n.ID)); id != "" {
		return id
	}
	return strings.TrimSpace(n.Action) + ":" + n.dataID()
}

func (d notificationData) mockResponse() *payment.Response {
	id, _ := strconv.Atoi(strings.TrimSpace(string(d.ID)))
	status := d.Status
	if status == "" {
		status = "approved"
	}
	return &payment.Response{
		ID:                id,
		Status:            status,
		ExternalReference: d.ExternalReference,
		TransactionAmount: d.TransactionAmount,
		PaymentMethodID:   d.PaymentMethodID,
		PaymentTypeID:     d.PaymentTypeID,
		Installments:      d.Installments,
	}
}

// flexibleString accepts both "123" and 123.
type flexibleString string

func (f *flexibleString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexibleString(n.String())
	return nil
}
