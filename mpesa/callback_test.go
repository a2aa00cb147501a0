package mpesa

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallbackPositionalMetadata(t *testing.T) {
	body := `{"Body":{"stkCallback":{"MerchantRequestID":"M1","CheckoutRequestID":"C1","ResultCode":0,"ResultDesc":"Success",
		"CallbackMetadata":{"Item":[{"Value":500},{"Value":"REC123"},{"Value":20240101120000},{"Value":254712345678}]}}}}`

	cb, err := ParseCallback([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "C1", cb.CheckoutRequestID)
	assert.Equal(t, "M1", cb.MerchantRequestID)
	assert.True(t, cb.Succeeded())

	d, err := cb.Details()
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(500).Equal(d.Amount))
	assert.Equal(t, "REC123", d.ReceiptNumber)
	assert.Equal(t, int64(20240101120000), d.TransactionDate)
	assert.Equal(t, "254712345678", d.PhoneNumber)
}

func TestParseCallbackNamedMetadataIgnoresExtraItems(t *testing.T) {
	body := `{"Body":{"stkCallback":{"MerchantRequestID":"M1","CheckoutRequestID":"C1","ResultCode":0,"ResultDesc":"ok",
		"CallbackMetadata":{"Item":[
			{"Name":"Amount","Value":1.00},
			{"Name":"MpesaReceiptNumber","Value":"NLJ7RT61SV"},
			{"Name":"Balance"},
			{"Name":"TransactionDate","Value":20191219102115},
			{"Name":"PhoneNumber","Value":254708374149}]}}}}`

	cb, err := ParseCallback([]byte(body))
	require.NoError(t, err)
	d, err := cb.Details()
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("1.00").Equal(d.Amount))
	assert.Equal(t, "NLJ7RT61SV", d.ReceiptNumber)
	assert.Equal(t, int64(20191219102115), d.TransactionDate)
	assert.Equal(t, "254708374149", d.PhoneNumber)
}

func TestParseCallbackFailureHasNoMetadata(t *testing.T) {
	body := `{"Body":{"stkCallback":{"MerchantRequestID":"M1","CheckoutRequestID":"C1","ResultCode":1,"ResultDesc":"Insufficient funds"}}}`

	cb, err := ParseCallback([]byte(body))
	require.NoError(t, err)
	assert.False(t, cb.Succeeded())
	assert.Equal(t, Code("1"), cb.ResultCode)

	_, err = cb.Details()
	assert.ErrorIs(t, err, ErrMalformedCallback)
}

func TestParseCallbackStringResultCode(t *testing.T) {
	body := `{"Body":{"stkCallback":{"CheckoutRequestID":"C1","ResultCode":"1032","ResultDesc":"Request cancelled by user"}}}`

	cb, err := ParseCallback([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, Code("1032"), cb.ResultCode)
}

func TestParseCallbackMissingResultCodeIsFailure(t *testing.T) {
	for name, body := range map[string]string{
		"absent": `{"Body":{"stkCallback":{"MerchantRequestID":"M1","CheckoutRequestID":"C1","ResultDesc":"no code"}}}`,
		"null":   `{"Body":{"stkCallback":{"CheckoutRequestID":"C1","ResultCode":null}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			cb, err := ParseCallback([]byte(body))
			require.NoError(t, err)
			assert.Equal(t, Code(""), cb.ResultCode)
			assert.False(t, cb.Succeeded())
		})
	}
}

func TestParseCallbackRejectsMalformedBodies(t *testing.T) {
	cases := map[string]string{
		"not json":            `<xml/>`,
		"missing checkout id": `{"Body":{"stkCallback":{"ResultCode":0}}}`,
		"wrong shape":         `{"Body":"nope"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCallback([]byte(body))
			assert.ErrorIs(t, err, ErrMalformedCallback)
		})
	}
}

func TestDetailsRejectsShortPositionalList(t *testing.T) {
	body := `{"Body":{"stkCallback":{"CheckoutRequestID":"C1","ResultCode":0,"CallbackMetadata":{"Item":[{"Value":500},{"Value":"REC123"}]}}}}`

	cb, err := ParseCallback([]byte(body))
	require.NoError(t, err)
	_, err = cb.Details()
	assert.ErrorIs(t, err, ErrMalformedCallback)
}
