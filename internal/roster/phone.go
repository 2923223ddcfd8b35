package roster

import (
	"strings"

	"github.com/amuthap/wedding-automation/internal/models"
)

// localDigits is the length of a national mobile number.
const localDigits = 10

// DigitsOnly drops every non-digit and keeps at most the trailing ten
// digits.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	if len(d) > localDigits {
		d = d[len(d)-localDigits:]
	}
	return d
}

// ContactNumber prefers the WhatsApp column and falls back to Phone. It
// returns "" when neither holds any digits.
func ContactNumber(row models.RosterRow) string {
	if d := DigitsOnly(row.WhatsApp); d != "" {
		return d
	}
	return DigitsOnly(row.Phone)
}
