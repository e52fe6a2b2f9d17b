package push

import "context"

// Message is the provider-facing notification shape. Exactly one of Token or
// Topic must be set; Data keys are forwarded to the device unchanged.
type Message struct {
	Token string
	Topic string
	Title string
	Body  string
	Data  map[string]string
}

// Client delivers a message to a device token or a topic subscription and
// returns the provider's delivery receipt id.
type Client interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// DeliveryError wraps a provider rejection. The provider's own message is
// preserved verbatim for the caller.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string { return e.Err.Error() }

func (e *DeliveryError) Unwrap() error { return e.Err }
