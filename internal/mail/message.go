// Package mail delivers user notifications (welcome and password-reset)
// through the message broker. The web process only publishes; a background
// consumer owns the actual transport.
package mail

// Templates a Message can reference.
const (
	TemplateWelcome       = "welcome"
	TemplatePasswordReset = "password_reset"
)

const queueName = "mail.outbound"

// Message is the payload published to the mail.outbound queue. It carries
// everything a downstream transport needs without querying the database. URL
// holds the reset link for password_reset and the account link for welcome.
type Message struct {
	To       string `json:"to"`
	Name     string `json:"name"`
	Subject  string `json:"subject"`
	Template string `json:"template"`
	URL      string `json:"url"`
	QueuedAt string `json:"queued_at"`
}
