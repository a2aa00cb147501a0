package utils

import (
	"strings"
	"unicode"
)

// StatusLabel turns a stored status such as "payment_success" into "Payment Success".
func StatusLabel(status string) string {
	words := strings.FieldsFunc(status, func(r rune) bool {
		return r == '_' || unicode.IsSpace(r)
	})
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
