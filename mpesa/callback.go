package mpesa

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMalformedCallback is returned for callback bodies that cannot be reconciled.
var ErrMalformedCallback = errors.New("mpesa: malformed callback")

// Code is a gateway status code. The gateway sends some codes as JSON numbers
// and others as strings; both decode to the same text.
type Code string

func (c *Code) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Code(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("mpesa: code %s is neither string nor number", b)
	}
	*c = Code(n.String())
	return nil
}

func (c Code) String() string {
	return string(c)
}

// CallbackEnvelope is the body the gateway posts to the callback URL.
type CallbackEnvelope struct {
	Body struct {
		STKCallback STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

type STKCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        Code              `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

type MetadataItem struct {
	Name  string          `json:"Name,omitempty"`
	Value json.RawMessage `json:"Value,omitempty"`
}

// PaymentDetails are the fields of a successful callback's metadata.
type PaymentDetails struct {
	Amount          decimal.Decimal
	ReceiptNumber   string
	TransactionDate int64
	PhoneNumber     string
}

// Metadata item names, and their positions when the gateway sends no names.
const (
	ItemAmount          = "Amount"
	ItemReceiptNumber   = "MpesaReceiptNumber"
	ItemTransactionDate = "TransactionDate"
	ItemPhoneNumber     = "PhoneNumber"
)

var positionalItems = []string{ItemAmount, ItemReceiptNumber, ItemTransactionDate, ItemPhoneNumber}

// ParseCallback decodes a callback body. Only CheckoutRequestID is required; a
// missing ResultCode decodes as "" and counts as a failed payment.
func ParseCallback(raw []byte) (*STKCallback, error) {
	var env CallbackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	cb := env.Body.STKCallback
	if cb.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: CheckoutRequestID missing", ErrMalformedCallback)
	}
	return &cb, nil
}

// Succeeded reports whether the gateway sent result code 0. Any other code,
// or none at all, is a failure.
func (cb *STKCallback) Succeeded() bool {
	return cb.ResultCode == "0"
}

// Details extracts the payment fields of a successful callback. Items are looked
// up by Name; when the gateway sends no names the fixed order Amount,
// MpesaReceiptNumber, TransactionDate, PhoneNumber is used instead.
func (cb *STKCallback) Details() (*PaymentDetails, error) {
	if cb.CallbackMetadata == nil || len(cb.CallbackMetadata.Item) == 0 {
		return nil, fmt.Errorf("%w: CallbackMetadata missing", ErrMalformedCallback)
	}
	items := cb.CallbackMetadata.Item

	values := make(map[string]json.RawMessage, len(positionalItems))
	named := false
	for _, it := range items {
		if it.Name != "" {
			named = true
			values[it.Name] = it.Value
		}
	}
	if !named {
		if len(items) < len(positionalItems) {
			return nil, fmt.Errorf("%w: expected %d metadata items, got %d", ErrMalformedCallback, len(positionalItems), len(items))
		}
		for i, name := range positionalItems {
			values[name] = items[i].Value
		}
	}

	amountText := rawText(values[ItemAmount])
	if amountText == "" {
		return nil, fmt.Errorf("%w: Amount missing", ErrMalformedCallback)
	}
	amount, err := decimal.NewFromString(amountText)
	if err != nil {
		return nil, fmt.Errorf("%w: Amount %q: %v", ErrMalformedCallback, amountText, err)
	}

	receipt := rawText(values[ItemReceiptNumber])
	if receipt == "" {
		return nil, fmt.Errorf("%w: MpesaReceiptNumber missing", ErrMalformedCallback)
	}

	var txDate int64
	if s := rawText(values[ItemTransactionDate]); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: TransactionDate %q: %v", ErrMalformedCallback, s, err)
		}
		txDate = d.IntPart()
	}

	phone := rawText(values[ItemPhoneNumber])
	if phone != "" {
		if d, err := decimal.NewFromString(phone); err == nil {
			phone = d.String()
		}
	}

	return &PaymentDetails{
		Amount:          amount,
		ReceiptNumber:   receipt,
		TransactionDate: txDate,
		PhoneNumber:     phone,
	}, nil
}

// rawText returns a JSON scalar as text: strings unquoted, numbers verbatim
// (so 254712345678 keeps every digit), null and absent as "".
func rawText(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return ""
	}
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return string(v)
}
