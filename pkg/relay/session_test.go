package relay

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"outreach/pkg/config"
)

// loopbackRelay accepts one connection, plays a scripted SMTP handshake and
// reports when the client closes its side.
type loopbackRelay struct {
	listener net.Listener
	closed   chan struct{}
}

func startLoopbackRelay(t *testing.T, greeting string, ehloReply string) *loopbackRelay {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = listener.Close() })

	r := &loopbackRelay{listener: listener, closed: make(chan struct{})}
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

		reader := bufio.NewReader(conn)
		_, _ = io.WriteString(conn, greeting)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if errors.Is(err, io.EOF) {
					close(r.closed)
				}
				return
			}
			switch {
			case strings.HasPrefix(strings.ToUpper(line), "EHLO"):
				_, _ = io.WriteString(conn, ehloReply)
			case strings.HasPrefix(strings.ToUpper(line), "QUIT"):
				_, _ = io.WriteString(conn, "221 bye\r\n")
			default:
				_, _ = io.WriteString(conn, "502 not implemented\r\n")
			}
		}
	}()

	return r
}

func (r *loopbackRelay) transport(t *testing.T) *Transport {
	t.Helper()
	addr := r.listener.Addr().(*net.TCPAddr)
	return New(config.RelayConfig{Host: "127.0.0.1", Port: addr.Port, TimeoutSeconds: 2})
}

func (r *loopbackRelay) requireClosed(t *testing.T, operation string) {
	t.Helper()
	select {
	case <-r.closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s: relay connection left open after the call returned", operation)
	}
}

const noStartTLSReply = "250-relay.test\r\n250 AUTH PLAIN\r\n"

func TestVerifyClosesConnectionWhenStartTLSMissing(t *testing.T) {
	relay := startLoopbackRelay(t, "220 relay.test ESMTP\r\n", noStartTLSReply)

	err := relay.transport(t).VerifyCredentials(context.Background(), goodCred)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("verify error = %v, want *AuthError", err)
	}
	if !strings.Contains(err.Error(), "STARTTLS") {
		t.Fatalf("verify error = %v, want STARTTLS reason", err)
	}
	relay.requireClosed(t, "verify")
}

func TestSendClosesConnectionWhenStartTLSMissing(t *testing.T) {
	relay := startLoopbackRelay(t, "220 relay.test ESMTP\r\n", noStartTLSReply)

	err := relay.transport(t).SendMessage(context.Background(), goodCred, "them@example.com", "Hi", "Body")
	var sendErr *SendError
	if !errors.As(err, &sendErr) || sendErr.Stage != StageDial {
		t.Fatalf("send error = %v, want dial-stage *SendError", err)
	}
	relay.requireClosed(t, "send")
}

func TestSendClosesConnectionWhenGreetingRejected(t *testing.T) {
	relay := startLoopbackRelay(t, "554 relay.test service unavailable\r\n", noStartTLSReply)

	err := relay.transport(t).SendMessage(context.Background(), goodCred, "them@example.com", "Hi", "Body")
	var sendErr *SendError
	if !errors.As(err, &sendErr) || sendErr.Stage != StageDial {
		t.Fatalf("send error = %v, want dial-stage *SendError", err)
	}
	relay.requireClosed(t, "send")
}
