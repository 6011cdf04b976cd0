package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrInternalServer      = errors.New("internal server error")
	ErrConflict            = errors.New("write conflict, retry the request")
	ErrUpstreamUnavailable = errors.New("upstream capability unavailable")
)

// Gate errors
var (
	ErrWrongCredential = errors.New("wrong credential")
	ErrAccountLocked   = errors.New("account locked")
)

// OTP errors
var (
	ErrWrongOtpCode       = errors.New("otp code does not match")
	ErrOtpExpired         = errors.New("otp has expired")
	ErrOtpNotExpired      = errors.New("otp has not expired yet")
	ErrOtpAlreadyConsumed = errors.New("otp already consumed")
)

// Settlement errors
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotMatured        = errors.New("savings account has not matured")
	ErrAlreadySettled    = errors.New("target record already settled")
)

// WrongCredentialError carries the remaining-attempts count for a gate
// mismatch. errors.Is(err, ErrWrongCredential) matches it.
type WrongCredentialError struct {
	Gate      string // "PIN" or "BIOMETRIC"
	Remaining int
}

func (e *WrongCredentialError) Error() string {
	return fmt.Sprintf("wrong %s credential (%d attempts remaining)", e.Gate, e.Remaining)
}

func (e *WrongCredentialError) Is(target error) bool {
	return target == ErrWrongCredential
}
