package model

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var nairaPrinter = message.NewPrinter(language.English)

// Naira formats an amount with thousands separators, e.g. ₦75,000.
func Naira(amount int) string {
	return nairaPrinter.Sprintf("₦%d", amount)
}
