package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sandeepkv93/attendance-session-service/internal/observability"
)

// LogNotifier only logs; it stands in when no mail transport is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	n.logger.InfoContext(ctx, "notification", "to", msg.To, "subject", msg.Subject)
	return nil
}

// AsyncNotifier hands each message to a goroutine and returns immediately.
// Delivery errors are logged and counted, never returned.
type AsyncNotifier struct {
	next    Notifier
	channel string
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewAsyncNotifier(next Notifier, channel string, timeout time.Duration, logger *slog.Logger) *AsyncNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AsyncNotifier{next: next, channel: channel, timeout: timeout, logger: logger}
}

func (n *AsyncNotifier) Notify(ctx context.Context, msg Message) error {
	// Detach from the caller so request cancellation does not drop the message.
	base := context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		sendCtx, cancel := context.WithTimeout(base, n.timeout)
		defer cancel()
		if err := n.next.Notify(sendCtx, msg); err != nil {
			observability.RecordNotification(sendCtx, n.channel, "error")
			n.logger.WarnContext(sendCtx, "notification delivery failed", "channel", n.channel, "to", msg.To, "subject", msg.Subject, "error", err)
			return
		}
		observability.RecordNotification(sendCtx, n.channel, "success")
	}()
	return nil
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (n *AsyncNotifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
