// Package notify delivers e-mail to console users.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Message is one outgoing e-mail. Body is HTML; a plain text part is derived from it.
type Message struct {
	ToName    string
	ToEmail   string
	FromName  string
	FromEmail string
	Subject   string
	Body      string
}

// Sender delivers a message through one transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

func addressWithName(name, address string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}

// Dispatcher sends messages in the background. Delivery failures are logged
// and never reach the caller.
type Dispatcher struct {
	sender    Sender
	fromName  string
	fromEmail string
	timeout   time.Duration
	log       *zap.Logger
	wg        sync.WaitGroup
}

func NewDispatcher(sender Sender, fromName, fromEmail string, timeout time.Duration, log *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		sender:    sender,
		fromName:  fromName,
		fromEmail: fromEmail,
		timeout:   timeout,
		log:       log.Named("notify"),
	}
}

// Dispatch queues msg for delivery and returns immediately.
func (d *Dispatcher) Dispatch(msg Message) {
	if msg.ToEmail == "" {
		d.log.Warn("dropping message without recipient", zap.String("subject", msg.Subject))
		return
	}
	if msg.FromEmail == "" {
		msg.FromName, msg.FromEmail = d.fromName, d.fromEmail
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sender.Send(ctx, msg); err != nil {
			d.log.Error("failed to send email",
				zap.String("to", msg.ToEmail),
				zap.String("subject", msg.Subject),
				zap.Error(err),
			)
			return
		}
		d.log.Info("email sent", zap.String("to", msg.ToEmail), zap.String("subject", msg.Subject))
	}()
}

// SendNow delivers msg synchronously. Used where the caller must know the outcome.
func (d *Dispatcher) SendNow(ctx context.Context, msg Message) error {
	if msg.FromEmail == "" {
		msg.FromName, msg.FromEmail = d.fromName, d.fromEmail
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.sender.Send(ctx, msg)
}

// Wait blocks until every dispatched message has been handled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.Log.Info("email (log transport)",
		zap.String("to", msg.ToEmail),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.Body)),
	)
	return nil
}

// Recorder keeps sent messages in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
	Err  error
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.sent))
	copy(out, r.sent)
	return out
}

var (
	_ Sender = LogSender{}
	_ Sender = (*Recorder)(nil)
)
