// Package amountwords spells out monetary amounts in Polish, as printed on
// payout vouchers ("słownie").
package amountwords

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNegative        = errors.New("amountwords: negative amount")
	ErrTooLarge        = errors.New("amountwords: amount out of range")
	ErrUnknownCurrency = errors.New("amountwords: unknown currency")
)

var (
	units = []string{"zero", "jeden", "dwa", "trzy", "cztery", "pięć", "sześć", "siedem", "osiem", "dziewięć"}
	teens = []string{"dziesięć", "jedenaście", "dwanaście", "trzynaście", "czternaście", "piętnaście",
		"szesnaście", "siedemnaście", "osiemnaście", "dziewiętnaście"}
	tens = []string{"", "", "dwadzieścia", "trzydzieści", "czterdzieści", "pięćdziesiąt",
		"sześćdziesiąt", "siedemdziesiąt", "osiemdziesiąt", "dziewięćdziesiąt"}
	hundreds = []string{"", "sto", "dwieście", "trzysta", "czterysta", "pięćset",
		"sześćset", "siedemset", "osiemset", "dziewięćset"}
)

// forms holds the singular, 2-4 and "many" declensions of a noun.
type forms [3]string

var (
	thousandForms = forms{"tysiąc", "tysiące", "tysięcy"}
	millionForms  = forms{"milion", "miliony", "milionów"}
)

type currency struct {
	names    forms
	feminine bool
}

var currencies = map[string]currency{
	"PLN": {names: forms{"złoty", "złote", "złotych"}},
	"EUR": {names: forms{"euro", "euro", "euro"}},
	"USD": {names: forms{"dolar", "dolary", "dolarów"}},
	"UAH": {names: forms{"hrywna", "hrywny", "hrywien"}, feminine: true},
	"RUB": {names: forms{"rubel", "ruble", "rubli"}},
	"BYN": {names: forms{"rubel białoruski", "ruble białoruskie", "rubli białoruskich"}},
}

var limit = decimal.NewFromInt(1_000_000_000)

// Format returns e.g. "sto dwadzieścia trzy złote 45/100" for 123.45 PLN.
func Format(amount decimal.Decimal, code string) (string, error) {
	cur, ok := currencies[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	if amount.IsNegative() {
		return "", ErrNegative
	}
	amount = amount.Round(2)
	if amount.GreaterThanOrEqual(limit) {
		return "", ErrTooLarge
	}

	whole := amount.IntPart()
	cents := amount.Sub(decimal.NewFromInt(whole)).Mul(decimal.NewFromInt(100)).IntPart()

	return fmt.Sprintf("%s %s %02d/100", Spell(whole, cur.feminine), cur.names.pick(whole), cents), nil
}

// Spell writes n (0 <= n < 1e9) in words. feminine only changes the last
// group ("dwie", "jedna").
func Spell(n int64, feminine bool) string {
	if n == 0 {
		return units[0]
	}
	millions := n / 1_000_000
	thousands := (n / 1000) % 1000
	rest := n % 1000

	var parts []string
	if millions > 0 {
		parts = append(parts, group(millions, millionForms))
	}
	if thousands > 0 {
		parts = append(parts, group(thousands, thousandForms))
	}
	if rest > 0 {
		if feminine && rest == 1 {
			parts = append(parts, "jedna")
		} else {
			parts = append(parts, triple(rest, feminine))
		}
	}
	return strings.Join(parts, " ")
}

func group(n int64, f forms) string {
	if n == 1 {
		return f[0]
	}
	return triple(n, false) + " " + f.pick(n)
}

func triple(n int64, feminine bool) string {
	var words []string
	if h := n / 100; h > 0 {
		words = append(words, hundreds[h])
	}
	t := (n / 10) % 10
	u := n % 10
	switch {
	case t == 1:
		words = append(words, teens[u])
	default:
		if t > 1 {
			words = append(words, tens[t])
		}
		if u > 0 {
			if feminine && u == 2 {
				words = append(words, "dwie")
			} else {
				words = append(words, units[u])
			}
		}
	}
	return strings.Join(words, " ")
}

func (f forms) pick(n int64) string {
	if n == 1 {
		return f[0]
	}
	lastTwo := n % 100
	last := n % 10
	if last >= 2 && last <= 4 && (lastTwo < 12 || lastTwo > 14) {
		return f[1]
	}
	return f[2]
}
