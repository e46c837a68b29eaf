package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdmail "net/mail"
	"strings"
	"time"

	"outreach/pkg/config"

	gomail "gopkg.in/mail.v2"
)

const (
	TestSubject = "Test Email From Job Application Assistant"
	TestBody    = "This is a test email to verify the email sending functionality works."
)

// Credential authenticates against the relay. It is supplied per call and
// never stored by the transport.
type Credential struct {
	Address string
	Secret  string
}

// String never includes the secret.
func (c Credential) String() string {
	if c.Secret == "" {
		return c.Address
	}
	return c.Address + " (secret set)"
}

// Validate reports whether both fields are present.
func (c Credential) Validate() error {
	if strings.TrimSpace(c.Address) == "" {
		return errors.New("credential address is required")
	}
	if c.Secret == "" {
		return errors.New("credential secret is required")
	}
	return nil
}

type dialFunc func(ctx context.Context, cred Credential) (gomail.SendCloser, error)

// Transport opens one relay session per call: connect, STARTTLS,
// authenticate, optionally send, close. Sessions are never pooled and a
// failed handshake never leaves the connection open.
type Transport struct {
	host     string
	port     int
	fromName string
	timeout  time.Duration
	dial     dialFunc
}

func New(cfg config.RelayConfig) *Transport {
	t := &Transport{
		host:     strings.TrimSpace(cfg.Host),
		port:     cfg.Port,
		fromName: strings.TrimSpace(cfg.FromName),
		timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
	if t.host == "" {
		t.host = config.DefaultRelayHost
	}
	if t.port <= 0 {
		t.port = config.DefaultRelayPort
	}
	if t.timeout <= 0 {
		t.timeout = config.DefaultRelayTimeout * time.Second
	}
	t.dial = t.openSession
	return t
}

// Endpoint returns host:port of the relay.
func (t *Transport) Endpoint() string {
	return fmt.Sprintf("%s:%d", t.host, t.port)
}

// VerifyCredentials authenticates and closes without sending anything.
func (t *Transport) VerifyCredentials(ctx context.Context, cred Credential) error {
	log := t.logger().With("operation", "verify", "address", cred.Address)
	startedAt := time.Now()

	if err := ctx.Err(); err != nil {
		return &AuthError{Address: cred.Address, Err: err}
	}
	if err := cred.Validate(); err != nil {
		return &AuthError{Address: cred.Address, Err: err}
	}

	log.Debug("relay session started")
	sc, err := t.dial(ctx, cred)
	if err != nil {
		log.Debug("relay session failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return &AuthError{Address: cred.Address, Err: err}
	}
	if err := sc.Close(); err != nil {
		log.Warn("relay session close failed", "error", err)
	}
	log.Debug("relay session completed", "duration_ms", time.Since(startedAt).Milliseconds())

	return nil
}

// SendMessage delivers one plain-text message. The session is closed on
// every return path.
func (t *Transport) SendMessage(ctx context.Context, cred Credential, recipient string, subject string, body string) error {
	recipient = strings.TrimSpace(recipient)
	log := t.logger().With("operation", "send", "recipient", recipient)
	startedAt := time.Now()

	if err := ctx.Err(); err != nil {
		return &SendError{Stage: StageDial, Recipient: recipient, Err: err}
	}
	if err := cred.Validate(); err != nil {
		return &SendError{Stage: StageDial, Recipient: recipient, Err: err}
	}
	if _, err := stdmail.ParseAddress(recipient); err != nil {
		return &SendError{Stage: StageAddress, Recipient: recipient, Err: err}
	}

	msg := t.newMessage(cred, recipient, subject, body)

	log.Debug("relay session started")
	sc, err := t.dial(ctx, cred)
	if err != nil {
		log.Debug("relay session failed", "stage", StageDial, "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return &SendError{Stage: StageDial, Recipient: recipient, Err: err}
	}
	defer func() {
		if closeErr := sc.Close(); closeErr != nil {
			// The message is already accepted once Send returns nil.
			log.Warn("relay session close failed", "error", closeErr)
		}
	}()

	if err := gomail.Send(sc, msg); err != nil {
		log.Debug("relay session failed", "stage", StageTransmit, "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return &SendError{Stage: StageTransmit, Recipient: recipient, Err: unwrapSendError(err)}
	}
	log.Debug("relay session completed", "duration_ms", time.Since(startedAt).Milliseconds())

	return nil
}

// SendTestMessage sends the fixed connectivity test message.
func (t *Transport) SendTestMessage(ctx context.Context, cred Credential, recipient string) error {
	return t.SendMessage(ctx, cred, recipient, TestSubject, TestBody)
}

func (t *Transport) newMessage(cred Credential, recipient string, subject string, body string) *gomail.Message {
	msg := gomail.NewMessage()
	if t.fromName != "" {
		msg.SetAddressHeader("From", cred.Address, t.fromName)
	} else {
		msg.SetHeader("From", cred.Address)
	}
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return msg
}

func (t *Transport) logger() *slog.Logger {
	return slog.Default().With("component", "relay", "endpoint", t.Endpoint())
}

// unwrapSendError drops gomail's batch index wrapper; messages are sent one at a time.
func unwrapSendError(err error) error {
	var batchErr *gomail.SendError
	if errors.As(err, &batchErr) && batchErr.Cause != nil {
		return batchErr.Cause
	}
	return err
}
