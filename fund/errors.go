// Package fund holds the error taxonomy shared by the fund packages.
// Every specific error wraps exactly one of the category roots below, so
// callers can branch on either level with errors.Is.
package fund

import (
	"errors"
	"fmt"
)

// Category roots.
var (
	ErrInputValidation    = errors.New("input validation")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrScheduleGate       = errors.New("schedule gate")
	ErrLiquidityShortfall = errors.New("liquidity shortfall")
)

// NewError returns a sentinel error in the given category.
func NewError(category error, msg string) error {
	return &categorized{category: category, msg: msg}
}

type categorized struct {
	category error
	msg      string
}

func (e *categorized) Error() string {
	return fmt.Sprintf("%s: %s", e.category, e.msg)
}

func (e *categorized) Unwrap() error {
	return e.category
}
