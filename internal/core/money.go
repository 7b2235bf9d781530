// Package core provides money parsing and handling utilities.
//
// This file contains the amount parser used by the transaction forms and the
// display helpers for currency values and dates.
package core

import (
	"errors"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the ISO code used for display formatting.
const Currency = money.BRL

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts user input into a currency-scale decimal.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted; the
// value is rounded half-up to two decimal places. Signs are parsed so that
// callers can tell "not a number" apart from "not positive".
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("abc")    -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// FormatBRL renders an amount as Brazilian reais, e.g. "R$1.234,56".
func FormatBRL(d decimal.Decimal) string {
	cents := d.Shift(2).Round(0).IntPart()
	return money.New(cents, Currency).Display()
}

// FormatDate renders a date as dd/mm/yyyy, or "" for the zero date.
func FormatDate(d Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02/01/2006")
}
