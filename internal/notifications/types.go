package notifications

// Payload is a user-facing notification.
type Payload struct {
	Title   string
	Content string
}

// Sender delivers notifications using a platform-specific backend.
type Sender interface {
	Send(payload Payload)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(Payload)

func (f SenderFunc) Send(payload Payload) {
	f(payload)
}
