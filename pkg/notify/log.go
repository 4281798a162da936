package notify

import (
	"context"
	"log/slog"
)

// LogNotifier only logs what would have been sent.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Name() string { return "log" }

func (l *LogNotifier) Send(_ context.Context, msg Message) error {
	l.logger.Info("would send notification",
		"kind", msg.Kind,
		"user", msg.UserID,
		"to", msg.To,
		"subject", msg.Subject,
		"budget", msg.BudgetID,
	)
	return nil
}
