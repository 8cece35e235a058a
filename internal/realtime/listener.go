package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// Channel is the NOTIFY channel written by the notify_change trigger.
const Channel = "table_changes"

const defaultRetry = 5 * time.Second

type Publisher interface {
	Publish(c Change)
}

// Listener holds a dedicated connection LISTENing on Channel and publishes
// every notification it receives. A dropped connection is re-established
// after a fixed delay.
type Listener struct {
	connString string
	pub        Publisher
	logger     *slog.Logger
	retry      time.Duration
}

func NewListener(connString string, pub Publisher, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}

	return &Listener{connString: connString, pub: pub, logger: logger, retry: defaultRetry}
}

// Run listens until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}

		l.logger.Warn("realtime.listen.lost", "error", err, "retry_in", l.retry.String())

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.retry):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	l.logger.Info("realtime.listen.ok", "channel", Channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("waiting for notification: %w", err)
		}

		c, err := Decode(n.Payload)
		if err != nil {
			l.logger.Warn("realtime.decode.failed", "payload", n.Payload, "error", err)
			continue
		}

		l.pub.Publish(c)
	}
}

var errEmptyTable = errors.New("missing table")

// Decode parses a notify_change payload.
func Decode(payload string) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Change{}, fmt.Errorf("decoding change: %w", err)
	}

	if c.Table == "" {
		return Change{}, errEmptyTable
	}

	return c, nil
}
