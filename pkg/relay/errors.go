package relay

import "fmt"

// Stage names the point of a send that failed.
type Stage string

const (
	StageAddress  Stage = "address"
	StageDial     Stage = "dial"
	StageTransmit Stage = "transmit"
)

// AuthError is returned when the relay could not be reached, refused
// STARTTLS, or rejected the credential.
type AuthError struct {
	Address string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("relay authentication failed for %s: %v", e.Address, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// SendError is returned when any stage of a single delivery fails.
type SendError struct {
	Stage     Stage
	Recipient string
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s failed at %s: %v", e.Recipient, e.Stage, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}
