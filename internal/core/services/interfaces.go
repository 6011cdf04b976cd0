package services

import "context"

// Notifier dispatches out-of-band messages (OTP codes) to a destination
// address. Delivery guarantees are the gateway's problem; the engine treats
// dispatch as best-effort and rolls issuance back on failure.
type Notifier interface {
	Send(ctx context.Context, destination, subject, body string) error
}

// BiometricResult is the verdict from the external sensor capability
type BiometricResult struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"` // "unavailable" when the capability is absent
	Message string `json:"message,omitempty"`
}

// BiometricCodeUnavailable marks a platform condition, not an
// authentication failure: it never increments counters or locks anything.
const BiometricCodeUnavailable = "unavailable"

// BiometricVerifier obtains a pass/fail/unavailable verdict for a stated
// reason. How the sensor hardware is invoked is out of scope.
type BiometricVerifier interface {
	Verify(ctx context.Context, reason string) (BiometricResult, error)
}

// EventPublisher emits settled-transaction events to interested consumers.
// Publishing is best-effort and happens only after the balance mutation
// committed.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
}
