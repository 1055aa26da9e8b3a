package catalog

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// NairaSign prefixes every displayed price.
const NairaSign = "₦"

var pricePrinter = message.NewPrinter(language.English)

// FormatNaira renders an amount with grouped thousands and at most two
// fraction digits, e.g. ₦150,000 or ₦1,234.5.
func FormatNaira(amount decimal.Decimal) string {
	f := amount.Round(2).InexactFloat64()
	return NairaSign + pricePrinter.Sprint(number.Decimal(f, number.MaxFractionDigits(2)))
}

// OrderMessage is the text pre-filled into the messaging app.
func OrderMessage(name string, price decimal.Decimal) string {
	return "Hello! I'm interested in buying *" + name + "* for " + NairaSign + price.String() + "."
}

// OrderLink builds the WhatsApp deep link that starts an order conversation
// for a product with phone.
func OrderLink(phone, name string, price decimal.Decimal) string {
	return "https://wa.me/" + digits(phone) + "?text=" + encodeComponent(OrderMessage(name, price))
}

// encodeComponent percent-encodes s with spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func digits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
