package dexterm

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a quantity of coins (or of a divisible token) in satoshis,
// i.e. fixed-point with 8 implied decimal places. This is the same
// encoding used on the blockchain and in the trades database, so all
// engine arithmetic is exact; decimal.Decimal appears only at RPC/JSON
// boundaries where the wire format is a decimal string.
type Amount int64

const (
	// OneCoin is 1.0 in satoshis.
	OneCoin Amount = 100_000_000
	// AmountDecimals is the number of digits after the decimal place.
	AmountDecimals = 8
)

var ZeroAmount = Amount(0)

func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%08d", sign, v/int64(OneCoin), v%int64(OneCoin))
}

// Decimal converts to decimal.Decimal for the RPC/JSON boundary.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -AmountDecimals)
}

// AmountFromDecimal converts a boundary decimal to satoshis.
// Fails if the value carries more than 8 decimal places (no silent
// rounding: a truncated amount would break the exact-arithmetic
// guarantee everywhere downstream).
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	scaled := d.Shift(AmountDecimals)
	if !scaled.IsInteger() {
		return 0, NewErr(DecodeError, "amount has more than %d decimal places: %s", AmountDecimals, d)
	}
	return Amount(scaled.IntPart()), nil
}

// MustAmount parses a decimal string into an Amount. For constants and
// tests; panics on malformed input.
func MustAmount(s string) Amount {
	a, err := AmountFromDecimal(decimal.RequireFromString(s))
	if err != nil {
		panic(err)
	}
	return a
}

// MulDivCeil returns ceil(a * num / den), used for feerate math where
// rounding down could underpay the fee.
func (a Amount) MulDivCeil(num, den int64) Amount {
	v := int64(a) * num
	return Amount((v + den - 1) / den)
}

// Marshal Amounts as decimal strings to avoid floating-point rounding
// in anything that re-reads our JSON.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

func (a *Amount) UnmarshalJSON(item []byte) error {
	str := string(item)
	if len(str) >= 2 && str[0] == '"' {
		str = str[1 : len(str)-1]
	}
	d, err := decimal.NewFromString(str)
	if err != nil {
		return NewErr(DecodeError, "invalid amount: %v", err)
	}
	v, err := AmountFromDecimal(d)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
