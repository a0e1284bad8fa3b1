package contract

import "errors"

var (
	ErrContinuityUnavailable = errors.New("session store unreachable")
	ErrSessionBusy           = errors.New("session lease is busy")
	ErrUpstreamTimeout       = errors.New("generator timed out")
	ErrUpstreamError         = errors.New("generator failed")
	ErrGuardrailViolation    = errors.New("generated reply violates guardrail policy")
	ErrValidation            = errors.New("validation failed")
)
