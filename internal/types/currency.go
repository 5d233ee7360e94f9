package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "usd"

// zeroDecimalCurrencies are charged in whole units by the checkout provider
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// GetCurrencyPrecision returns the number of minor unit digits for a currency
func GetCurrencyPrecision(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return 0
	}
	return 2
}

// RoundMoney rounds to two decimals, half away from zero. Amounts in this system are
// never negative, so this is round half-up.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// RoundToCurrencyPrecision rounds an amount to the precision of its currency
func RoundToCurrencyPrecision(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(GetCurrencyPrecision(currency))
}

// ToMinorUnits converts an amount to the integer unit the checkout provider charges in (cents for usd)
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	precision := GetCurrencyPrecision(currency)
	return RoundToCurrencyPrecision(amount, currency).Shift(precision).IntPart()
}
