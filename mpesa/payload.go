package mpesa

import (
	"encoding/base64"
	"time"
)

// TransactionTypePayBill is the only transaction type this service pushes.
const TransactionTypePayBill = "CustomerPayBillOnline"

const timestampLayout = "20060102150405"

// STKPushRequest is the body of a processrequest call.
type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// PayloadParams are the per-request and per-merchant inputs of a push.
// Amount and PhoneNumber are expected to be validated by the caller.
type PayloadParams struct {
	OrderRef    string
	PhoneNumber string
	Amount      int64
	ShortCode   string
	Passkey     string
	CallbackURL string
	Description string
}

// Timestamp formats t the way the gateway expects, in local wall clock time.
func Timestamp(t time.Time) string {
	return t.Local().Format(timestampLayout)
}

// Password is base64(shortcode + passkey + timestamp) with no separators.
func Password(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

// BuildPayload assembles a signed push request. The same timestamp is used for
// the Timestamp field and inside the password.
func BuildPayload(p PayloadParams, now time.Time) STKPushRequest {
	ts := Timestamp(now)
	desc := p.Description
	if desc == "" {
		desc = "Paying for items in farmart"
	}
	return STKPushRequest{
		BusinessShortCode: p.ShortCode,
		Password:          Password(p.ShortCode, p.Passkey, ts),
		Timestamp:         ts,
		TransactionType:   TransactionTypePayBill,
		Amount:            p.Amount,
		PartyA:            p.PhoneNumber,
		PartyB:            p.ShortCode,
		PhoneNumber:       p.PhoneNumber,
		CallBackURL:       p.CallbackURL,
		AccountReference:  p.OrderRef,
		TransactionDesc:   desc,
	}
}
