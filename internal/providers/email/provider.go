package email

import "context"

// Meta is the renderable body of a transactional email: a short
// description plus an optional call-to-action link.
type Meta struct {
	Description string
	Link        string
	LinkText    string
}

type Message struct {
	To      string
	Subject string
	Meta    Meta
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
}

// NoOpProvider is used when SMTP is not configured.
type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, msg Message) error {
	return nil
}
