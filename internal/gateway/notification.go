// Package gateway talks to the Mercado Pago payment API and decodes its webhooks.
package gateway

import (
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// Notification is an inbound webhook notification. The concrete type is one of
// PaymentNotification or UnrecognizedNotification.
type Notification interface {
	notification()
}

// PaymentNotification references a payment whose status may have changed.
type PaymentNotification struct {
	PaymentID string
	Action    string
}

// UnrecognizedNotification is any notification that does not reference a payment.
type UnrecognizedNotification struct {
	Type string
}

func (PaymentNotification) notification()      {}
func (UnrecognizedNotification) notification() {}

const typePayment = "payment"

// maxPaymentIDLen bounds payment IDs; Mercado Pago issues int64 IDs.
const maxPaymentIDLen = 19

// ValidPaymentID reports whether id looks like a Mercado Pago payment ID: a
// non-empty run of ASCII digits.
func ValidPaymentID(id string) bool {
	if id == "" || len(id) > maxPaymentIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// ParseNotification decodes a webhook from its JSON body and query string. Body
// fields take precedence; query parameters cover the legacy IPN shape
// (?topic=payment&id=123) and the data.id parameter Mercado Pago appends.
func ParseNotification(body []byte, query url.Values) Notification {
	var kind, action, id string

	if len(body) > 0 && gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		kind = parsed.Get("type").String()
		if kind == "" {
			kind = parsed.Get("topic").String()
		}
		action = parsed.Get("action").String()
		id = parsed.Get("data.id").String()
	}

	if kind == "" {
		kind = query.Get("type")
	}
	if kind == "" {
		kind = query.Get("topic")
	}
	if id == "" {
		id = query.Get("data.id")
	}
	if id == "" {
		id = query.Get("id")
	}

	kind = strings.ToLower(strings.TrimSpace(kind))
	id = strings.TrimSpace(id)

	if kind == typePayment && ValidPaymentID(id) {
		return PaymentNotification{PaymentID: id, Action: action}
	}
	return UnrecognizedNotification{Type: kind}
}

// SignedDataID returns the identifier covered by the webhook signature: the
// data.id or id query parameter, else the body's data.id.
func SignedDataID(body []byte, query url.Values) string {
	if id := query.Get("data.id"); id != "" {
		return id
	}
	if id := query.Get("id"); id != "" {
		return id
	}
	if len(body) > 0 && gjson.ValidBytes(body) {
		return gjson.GetBytes(body, "data.id").String()
	}
	return ""
}
