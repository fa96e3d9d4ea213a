package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
)

// SMTP delivers through a relay with PLAIN auth over STARTTLS.
type SMTP struct {
	host     string
	port     int
	username string
	password string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTP(host string, port int, username, password string) *SMTP {
	return &SMTP{host: host, port: port, username: username, password: password, send: smtp.SendMail}
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	raw, err := rawEmail(msg)
	if err != nil {
		return err
	}
	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))

	done := make(chan error, 1)
	go func() {
		done <- s.send(addr, auth, msg.FromEmail, []string{msg.ToEmail}, raw)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("smtp: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp: send to %s: %w", msg.ToEmail, err)
		}
		return nil
	}
}

var _ Sender = (*SMTP)(nil)
