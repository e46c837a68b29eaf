package relay

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/smtp"
	"time"

	gomail "gopkg.in/mail.v2"
)

// session is one authenticated relay connection. It owns the TCP connection
// so a failure at any point of the handshake closes it.
type session struct {
	conn    net.Conn
	client  *smtp.Client
	timeout time.Duration
}

var _ gomail.SendCloser = (*session)(nil)

// openSession connects, requires STARTTLS and authenticates. The connection
// is closed before any error is returned.
func (t *Transport) openSession(ctx context.Context, cred Credential) (_ gomail.SendCloser, err error) {
	dialer := net.Dialer{Timeout: t.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.Endpoint())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = conn.Close()
		}
	}()

	if t.timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(t.timeout)); err != nil {
			return nil, err
		}
	}

	client, err := smtp.NewClient(conn, t.host)
	if err != nil {
		return nil, err
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		return nil, gomail.StartTLSUnsupportedError{Policy: gomail.MandatoryStartTLS}
	}
	if err := client.StartTLS(&tls.Config{ServerName: t.host}); err != nil {
		return nil, err
	}

	if ok, _ := client.Extension("AUTH"); !ok {
		return nil, errors.New("relay does not offer authentication")
	}
	if err := client.Auth(smtp.PlainAuth("", cred.Address, cred.Secret, t.host)); err != nil {
		return nil, err
	}

	return &session{conn: conn, client: client, timeout: t.timeout}, nil
}

func (s *session) Send(from string, to []string, msg io.WriterTo) error {
	if s.timeout > 0 {
		if err := s.conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
			return err
		}
	}

	if err := s.client.Mail(from); err != nil {
		return err
	}
	for _, addr := range to {
		if err := s.client.Rcpt(addr); err != nil {
			return err
		}
	}

	w, err := s.client.Data()
	if err != nil {
		return err
	}
	if _, err := msg.WriteTo(w); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// Close sends QUIT and always releases the connection.
func (s *session) Close() error {
	if err := s.client.Quit(); err != nil {
		_ = s.conn.Close()
		return err
	}
	return nil
}
