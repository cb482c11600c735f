package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Metadata item names read from a successful callback.
const (
	ItemReceiptNumber = "MpesaReceiptNumber"
	ItemAmount        = "Amount"
	ItemPhoneNumber   = "PhoneNumber"
)

// STKCallback is the decoded result of an STK push, as delivered to the callback URL.
type STKCallback struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Metadata          CallbackMetadata
}

// Succeeded reports whether the payer approved the prompt.
func (c *STKCallback) Succeeded() bool { return c.ResultCode == 0 }

// CallbackMetadata holds the items the reconciler stores. A nil or invalid field was
// absent or unreadable in the payload.
type CallbackMetadata struct {
	ReceiptNumber *string
	Amount        decimal.NullDecimal
	PhoneNumber   *string
}

type callbackEnvelope struct {
	Body *struct {
		StkCallback *struct {
			MerchantRequestID string          `json:"MerchantRequestID"`
			CheckoutRequestID string          `json:"CheckoutRequestID"`
			ResultCode        json.RawMessage `json:"ResultCode"`
			ResultDesc        string          `json:"ResultDesc"`
			CallbackMetadata  *struct {
				Item []metadataItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

type metadataItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

// ParseSTKCallback decodes a raw callback body. It fails with ErrMalformedPayload when the
// body is not JSON or lacks Body.stkCallback.CheckoutRequestID or Body.stkCallback.ResultCode.
func ParseSTKCallback(raw []byte) (*STKCallback, error) {
	var env callbackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if env.Body == nil || env.Body.StkCallback == nil {
		return nil, fmt.Errorf("%w: missing Body.stkCallback", ErrMalformedPayload)
	}
	cb := env.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: missing CheckoutRequestID", ErrMalformedPayload)
	}
	code, ok := parseResultCode(cb.ResultCode)
	if !ok {
		return nil, fmt.Errorf("%w: missing or non-numeric ResultCode", ErrMalformedPayload)
	}

	out := &STKCallback{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        code,
		ResultDesc:        cb.ResultDesc,
	}
	if cb.CallbackMetadata != nil {
		out.Metadata = extractMetadata(cb.CallbackMetadata.Item)
	}
	return out, nil
}

// parseResultCode accepts 0 as well as "0"; some gateways forward the code as a string.
func parseResultCode(raw json.RawMessage) (int, bool) {
	lit, _, ok := literal(raw)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(lit)
	if err != nil {
		return 0, false
	}
	return n, true
}

func extractMetadata(items []metadataItem) CallbackMetadata {
	var md CallbackMetadata
	for _, it := range items {
		lit, quoted, ok := literal(it.Value)
		if !ok {
			continue
		}
		switch it.Name {
		case ItemReceiptNumber:
			md.ReceiptNumber = &lit
		case ItemAmount:
			if d, err := decimal.NewFromString(lit); err == nil {
				md.Amount = decimal.NewNullDecimal(d)
			}
		case ItemPhoneNumber:
			// a numeric phone may arrive in exponent form; strings are kept verbatim
			if d, err := decimal.NewFromString(lit); err == nil && !quoted {
				phone := d.String()
				md.PhoneNumber = &phone
			} else {
				md.PhoneNumber = &lit
			}
		}
	}
	return md
}

// literal returns the scalar text of a JSON string or number and whether it was quoted.
// Null, booleans, objects and arrays count as absent.
func literal(raw json.RawMessage) (text string, quoted, ok bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false, false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", true, false
		}
		s = strings.TrimSpace(s)
		return s, true, s != ""
	case '{', '[', 't', 'f':
		return "", false, false
	}
	return string(raw), false, true
}
