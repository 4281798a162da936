package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
)

// SlackNotifier posts messages to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *http.Client
	now        func() time.Time
}

func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		client:     &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, msg Message) error {
	attachment := slackAttachment{
		Color:  levelColor(msg.Level),
		Title:  msg.Subject,
		Footer: "Budget Guardian",
		Ts:     s.now().Unix(),
		Fields: []slackField{{Title: "User", Value: msg.UserID, Short: true}},
	}
	if msg.Kind == KindAlert {
		attachment.Fields = append(attachment.Fields,
			slackField{Title: "Category", Value: msg.Category, Short: true},
			slackField{Title: "Level", Value: string(msg.Level), Short: true},
			slackField{Title: "Usage", Value: fmt.Sprintf("%.1f%%", msg.Percentage), Short: true},
		)
	}

	body, err := json.Marshal(slackPayload{Channel: s.channel, Attachments: []slackAttachment{attachment}})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

func levelColor(level model.AlertLevel) string {
	switch level {
	case model.AlertWarning:
		return "#ff9900"
	case model.AlertCritical:
		return "#ff0000"
	case model.AlertExceeded:
		return "#cc0000"
	default:
		return "#36a64f"
	}
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
