package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusLabel(t *testing.T) {
	cases := map[string]string{
		"payment_success":  "Payment Success",
		"FARMER_CONFIRMED": "Farmer Confirmed",
		"cancelled":        "Cancelled",
		"__accepted  now_": "Accepted Now",
		"":                 "",
	}
	for in, want := range cases {
		assert.Equal(t, want, StatusLabel(in), in)
	}
}
