package email

import "context"

// Message is one outbound transactional email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers transactional email. Implementations must be safe for
// concurrent use; callers fire-and-forget from request flows.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
