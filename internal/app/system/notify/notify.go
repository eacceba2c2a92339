// Package notify delivers out-of-band notices about room lifecycle changes.
// Delivery is fire-and-forget: callers never see a failure.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/therapyrooms/internal/app/system/mailer"
	"go.uber.org/zap"
)

// Message is one notice for one recipient.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Notifier accepts messages for delivery.
type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

// LogNotifier writes messages to the log instead of sending them.
type LogNotifier struct {
	Log *zap.Logger
}

func (n LogNotifier) Notify(_ context.Context, msg Message) {
	n.Log.Info("notification",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
}

// Sender is the part of mailer.Mailer the notifier uses.
type Sender interface {
	Send(ctx context.Context, e mailer.Email) error
}

// MailNotifier sends each message on its own goroutine, bounded by timeout.
type MailNotifier struct {
	sender  Sender
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewMailNotifier creates a MailNotifier. A zero timeout means 30s.
func NewMailNotifier(sender Sender, logger *zap.Logger, timeout time.Duration) *MailNotifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MailNotifier{sender: sender, log: logger, timeout: timeout}
}

// Notify queues msg and returns at once. Delivery outlives the caller's
// context but not the notifier's timeout.
func (n *MailNotifier) Notify(ctx context.Context, msg Message) {
	if msg.To == "" {
		n.log.Warn("notification dropped: no recipient", zap.String("subject", msg.Subject))
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- n.sender.Send(sendCtx, mailer.Email{
				To:       msg.To,
				Subject:  msg.Subject,
				TextBody: msg.Text,
				HTMLBody: msg.HTML,
			})
		}()

		select {
		case err := <-done:
			if err != nil {
				n.log.Error("notification failed",
					zap.String("to", msg.To),
					zap.String("subject", msg.Subject),
					zap.Error(err))
			}
		case <-sendCtx.Done():
			n.log.Error("notification timed out",
				zap.String("to", msg.To),
				zap.Duration("timeout", n.timeout))
		}
	}()
}

// Wait blocks until every in-flight message has finished or timed out.
func (n *MailNotifier) Wait() {
	n.wg.Wait()
}

// Recorder keeps messages in memory. Tests use it to assert on notices.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *Recorder) Notify(_ context.Context, msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}
