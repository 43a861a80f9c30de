package whatsapp

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// "SGD999.00", "usd 1,299.50"
	prefixedPrice = regexp.MustCompile(`^([A-Za-z]{3})\s*([0-9][0-9,]*(?:\.[0-9]+)?)$`)
	// "29.99 USD"
	suffixedPrice = regexp.MustCompile(`^([0-9][0-9,]*(?:\.[0-9]+)?)\s+([A-Za-z]{3})$`)
	bareInteger   = regexp.MustCompile(`^[0-9]+$`)
	plainDecimal  = regexp.MustCompile(`^-?(?:[0-9][0-9,]*(?:\.[0-9]+)?|\.[0-9]+)$`)
	notNumeric    = regexp.MustCompile(`[^0-9.]`)

	minorUnitThreshold = decimal.NewFromInt(100)
)

// PriceRule names the rule that produced a normalized amount.
type PriceRule string

const (
	PriceRuleCurrencyPrefix PriceRule = "currency_prefix"
	PriceRuleCurrencySuffix PriceRule = "currency_suffix"
	PriceRuleMinorUnits     PriceRule = "minor_units"
	PriceRuleDecimal        PriceRule = "decimal"
	PriceRuleStripped       PriceRule = "stripped"
	PriceRuleDefault        PriceRule = "default"
)

// NormalizedPrice is a non-negative amount in major units plus the currency
// code found inside the raw value, if any.
type NormalizedPrice struct {
	Amount       decimal.Decimal
	CurrencyHint string
	Rule         PriceRule
}

// Degraded reports whether the raw value could not be read as a price and
// the amount fell back to zero, or a negative amount was clamped.
func (p NormalizedPrice) Degraded() bool {
	return p.Rule == PriceRuleDefault
}

// NormalizePrice reads a raw upstream price. Rules apply in order:
//  1. three-letter currency prefix ("SGD999.00")
//  2. space-separated currency suffix ("29.99 USD")
//  3. bare integer above 100 is minor units ("19999" is 199.99)
//  4. plain decimal, commas ignored
//
// Anything else degrades to 0. It never fails.
func NormalizePrice(raw RawPrice) NormalizedPrice {
	if !raw.Set {
		return defaultPrice()
	}
	s := strings.TrimSpace(raw.Value)
	if s == "" {
		return defaultPrice()
	}

	if m := prefixedPrice.FindStringSubmatch(s); m != nil {
		if amt, ok := parseAmount(m[2]); ok {
			return clamp(NormalizedPrice{Amount: amt, CurrencyHint: strings.ToUpper(m[1]), Rule: PriceRuleCurrencyPrefix})
		}
	}

	if m := suffixedPrice.FindStringSubmatch(s); m != nil {
		if amt, ok := parseAmount(m[1]); ok {
			return clamp(NormalizedPrice{Amount: amt, CurrencyHint: strings.ToUpper(m[2]), Rule: PriceRuleCurrencySuffix})
		}
	}

	if bareInteger.MatchString(s) {
		if amt, ok := parseAmount(s); ok {
			if amt.GreaterThan(minorUnitThreshold) {
				return NormalizedPrice{Amount: amt.Shift(-2), Rule: PriceRuleMinorUnits}
			}
			return NormalizedPrice{Amount: amt, Rule: PriceRuleDecimal}
		}
	}

	if plainDecimal.MatchString(s) {
		if amt, ok := parseAmount(s); ok {
			return clamp(NormalizedPrice{Amount: amt, Rule: PriceRuleDecimal})
		}
	}

	// Last resort for values like "$29.99" or "29.99€".
	if stripped := notNumeric.ReplaceAllString(s, ""); stripped != "" {
		if amt, ok := parseAmount(stripped); ok {
			return clamp(NormalizedPrice{Amount: amt, Rule: PriceRuleStripped})
		}
	}

	return defaultPrice()
}

// ParsePrice is NormalizePrice for a plain string.
func ParsePrice(s string) NormalizedPrice {
	return NormalizePrice(RawPrice{Value: s, Set: true})
}

// ToMinorUnits converts a major-unit amount to the integer minor units the
// Graph API expects on writes.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FormatAmount renders an amount for display with exactly two decimals.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSuffix(strings.ReplaceAll(s, ",", ""), ".")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func clamp(p NormalizedPrice) NormalizedPrice {
	if p.Amount.IsNegative() {
		p.Amount = decimal.Zero
		p.Rule = PriceRuleDefault
	}
	return p
}

func defaultPrice() NormalizedPrice {
	return NormalizedPrice{Amount: decimal.Zero, Rule: PriceRuleDefault}
}
