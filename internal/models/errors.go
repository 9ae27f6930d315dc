package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrEmptyCase means the case has no items to walk; the preview must render
// an empty state and never start a reveal session.
var ErrEmptyCase = errors.New("case has no items")

// InsufficientFundsError carries the exact amounts so the surfaced message
// can state the shortfall. It never clears loaded preview state.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %s, available %s, short %s",
		e.Required.String(), e.Available.String(), e.Shortfall().String())
}

func (e *InsufficientFundsError) Shortfall() decimal.Decimal {
	return e.Required.Sub(e.Available)
}

// AlreadyClaimedError means a free/daily case was already claimed within its
// cooldown. The preview must close and the host be told its data is stale.
type AlreadyClaimedError struct {
	CaseID        string
	NextAvailable string
}

func (e *AlreadyClaimedError) Error() string {
	if e.NextAvailable != "" {
		return fmt.Sprintf("case %s already claimed, next available %s", e.CaseID, e.NextAvailable)
	}
	return fmt.Sprintf("case %s already claimed today", e.CaseID)
}

// PlatformError is any other failure reported by the platform API, surfaced
// as a best-effort human-readable message. The user may retry explicitly.
type PlatformError struct {
	Code    string
	Message string
}

func (e *PlatformError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("platform request failed: %s", e.Code)
}
