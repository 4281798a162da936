// Package notify delivers alert and summary messages to external channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
)

// Kind identifies what a message is about.
type Kind string

const (
	KindAlert   Kind = "budget_alert"
	KindSummary Kind = "weekly_summary"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	Kind       Kind             `json:"kind"`
	UserID     string           `json:"user_id"`
	To         string           `json:"to,omitempty"`
	Subject    string           `json:"subject"`
	HTMLBody   string           `json:"html_body"`
	Level      model.AlertLevel `json:"level,omitempty"`
	BudgetID   string           `json:"budget_id,omitempty"`
	Category   string           `json:"category,omitempty"`
	Percentage float64          `json:"percentage,omitempty"`
}

// Notifier sends messages to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers a message. Implementations must be safe for concurrent use.
	Send(ctx context.Context, msg Message) error
}

// Multi fans a message out to several notifiers. A failing notifier is
// logged and does not stop the others.
type Multi struct {
	notifiers []Notifier
	logger    *slog.Logger
}

// NewMulti combines notifiers. With none it falls back to a LogNotifier.
func NewMulti(logger *slog.Logger, notifiers ...Notifier) *Multi {
	if len(notifiers) == 0 {
		notifiers = []Notifier{NewLogNotifier(logger)}
	}
	return &Multi{notifiers: notifiers, logger: logger}
}

func (m *Multi) Name() string { return "multi" }

// Names lists the wrapped notifiers.
func (m *Multi) Names() []string {
	names := make([]string, 0, len(m.notifiers))
	for _, n := range m.notifiers {
		names = append(names, n.Name())
	}
	return names
}

func (m *Multi) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Send(ctx, msg); err != nil {
			m.logger.Warn("notification delivery failed",
				"notifier", n.Name(), "kind", msg.Kind, "user", msg.UserID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
