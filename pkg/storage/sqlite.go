package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"
)

// SQLite implements the Storage interface using an SQLite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite has a single writer; one connection keeps the conditional
	// alert insert free of busy-snapshot retries.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// WithClock replaces the clock used for default timestamps.
func (s *SQLite) WithClock(now func() time.Time) *SQLite {
	s.now = now
	return s
}

const budgetColumns = "id, user_id, category, total, spent, period, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBudget(row rowScanner) (model.Budget, error) {
	var b model.Budget
	err := row.Scan(&b.ID, &b.UserID, &b.Category, &b.Total, &b.Spent, &b.Period, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (s *SQLite) SetBudget(ctx context.Context, budget *model.Budget) error {
	if budget.ID == "" {
		var existing string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM budgets WHERE user_id = ? AND category = ? COLLATE NOCASE LIMIT 1`,
			budget.UserID, budget.Category,
		).Scan(&existing)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			budget.ID = uuid.New().String()
		case err != nil:
			return fmt.Errorf("look up budget: %w", err)
		default:
			budget.ID = existing
		}
	}
	if budget.Period == "" {
		budget.Period = model.PeriodMonthly
	}
	now := s.now()
	if budget.CreatedAt.IsZero() {
		budget.CreatedAt = now
	}
	budget.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (`+budgetColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   user_id = excluded.user_id,
		   category = excluded.category,
		   total = excluded.total,
		   spent = excluded.spent,
		   period = excluded.period,
		   updated_at = excluded.updated_at`,
		budget.ID, budget.UserID, budget.Category, budget.Total, budget.Spent,
		budget.Period, budget.CreatedAt, budget.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	return nil
}

func (s *SQLite) GetBudget(ctx context.Context, id string) (*model.Budget, error) {
	b, err := scanBudget(s.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("budget %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return &b, nil
}

func (s *SQLite) ListBudgets(ctx context.Context, filter model.BudgetFilter) ([]model.Budget, error) {
	var conditions []string
	var args []any
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ? COLLATE NOCASE")
		args = append(args, filter.Category)
	}

	query := `SELECT ` + budgetColumns + ` FROM budgets`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY user_id, category"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []model.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget row: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (s *SQLite) DeleteBudget(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return expectAffected(result, "budget", id)
}

func (s *SQLite) AddSpend(ctx context.Context, userID, category string, amount decimal.Decimal) ([]model.Budget, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add spend: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? AND category = ? COLLATE NOCASE`,
		userID, category)
	if err != nil {
		return nil, fmt.Errorf("select matching budgets: %w", err)
	}
	var matched []model.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan budget row: %w", err)
		}
		matched = append(matched, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}

	now := s.now()
	for i := range matched {
		matched[i].Spent = matched[i].Spent.Add(amount)
		matched[i].UpdatedAt = now
		if _, err := tx.ExecContext(ctx,
			`UPDATE budgets SET spent = ?, updated_at = ? WHERE id = ?`,
			matched[i].Spent, now, matched[i].ID,
		); err != nil {
			return nil, fmt.Errorf("update budget spend: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add spend: %w", err)
	}
	return matched, nil
}

func (s *SQLite) SetContact(ctx context.Context, userID, email string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, email, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET email = excluded.email, updated_at = excluded.updated_at`,
		userID, email, s.now(),
	)
	if err != nil {
		return fmt.Errorf("set contact: %w", err)
	}
	return nil
}

func (s *SQLite) ContactEmail(ctx context.Context, userID string) (string, error) {
	var email string
	err := s.db.QueryRowContext(ctx, `SELECT email FROM users WHERE user_id = ?`, userID).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("contact for user %q: %w", userID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get contact: %w", err)
	}
	return email, nil
}

const alertColumns = "id, user_id, budget_id, category, bucket, percentage_used, email_sent_to, created_at"

func (s *SQLite) AlertHistory(ctx context.Context, budgetID string) ([]model.AlertEvent, error) {
	return s.ListAlertEvents(ctx, model.AlertFilter{BudgetID: budgetID})
}

func (s *SQLite) InsertAlertEvent(ctx context.Context, event *model.AlertEvent, cooldown time.Duration) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	createdAt := event.CreatedAt.UnixMilli()
	cutoff := event.CreatedAt.Add(-cooldown).UnixMilli()
	if cooldown <= 0 {
		cutoff = math.MaxInt64
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_events (`+alertColumns+`)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ?
		 WHERE NOT EXISTS (
		   SELECT 1 FROM alert_events
		   WHERE budget_id = ? AND bucket = ? AND created_at > ?
		 )`,
		event.ID, event.UserID, event.BudgetID, event.Category, int(event.Bucket),
		event.PercentageUsed, event.EmailSentTo, createdAt,
		event.BudgetID, int(event.Bucket), cutoff,
	)
	if err != nil {
		return fmt.Errorf("insert alert event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrDuplicateAlert
	}
	return nil
}

func (s *SQLite) ListAlertEvents(ctx context.Context, filter model.AlertFilter) ([]model.AlertEvent, error) {
	var conditions []string
	var args []any
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.BudgetID != "" {
		conditions = append(conditions, "budget_id = ?")
		args = append(args, filter.BudgetID)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.Since.UnixMilli())
	}

	query := `SELECT ` + alertColumns + ` FROM alert_events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alert events: %w", err)
	}
	defer rows.Close()

	var events []model.AlertEvent
	for rows.Next() {
		var e model.AlertEvent
		var bucket int
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.UserID, &e.BudgetID, &e.Category, &bucket,
			&e.PercentageUsed, &e.EmailSentTo, &createdAt); err != nil {
			return nil, fmt.Errorf("scan alert event row: %w", err)
		}
		e.Bucket = model.Bucket(bucket)
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *SQLite) InsertNotification(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, title, message, read, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Title, n.Message, n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *SQLite) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error) {
	query := `SELECT id, user_id, title, message, read, created_at FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += " AND read = 0"
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *SQLite) MarkNotificationRead(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return expectAffected(result, "notification", id)
}

func (s *SQLite) RecordUsage(ctx context.Context, record *model.UsageRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_usage (id, provider, model, purpose, input_tokens, output_tokens, cost_usd, estimated, failed, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Provider, record.Model, record.Purpose,
		record.InputTokens, record.OutputTokens, record.CostUSD,
		record.Estimated, record.Failed, record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

func (s *SQLite) AggregateUsage(ctx context.Context, filter model.UsageFilter) (*model.UsageSummary, error) {
	where, args := usageWhereClause(filter)

	query := `SELECT
		COALESCE(SUM(cost_usd), 0),
		COALESCE(SUM(input_tokens), 0),
		COALESCE(SUM(output_tokens), 0),
		COUNT(*),
		COALESCE(SUM(failed), 0)
	FROM llm_usage`
	if where != "" {
		query += " WHERE " + where
	}

	summary := &model.UsageSummary{ByPurpose: make(map[string]float64)}
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&summary.TotalCostUSD,
		&summary.TotalInputTokens,
		&summary.TotalOutputTokens,
		&summary.CallCount,
		&summary.FailedCount,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate usage: %w", err)
	}

	byPurpose := "SELECT purpose, COALESCE(SUM(cost_usd), 0) FROM llm_usage"
	if where != "" {
		byPurpose += " WHERE " + where
	}
	byPurpose += " GROUP BY purpose"

	rows, err := s.db.QueryContext(ctx, byPurpose, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate by purpose: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var purpose string
		var total float64
		if err := rows.Scan(&purpose, &total); err != nil {
			return nil, fmt.Errorf("scan purpose aggregate: %w", err)
		}
		summary.ByPurpose[purpose] = total
	}
	return summary, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func usageWhereClause(filter model.UsageFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.Provider != "" {
		conditions = append(conditions, "provider = ?")
		args = append(args, filter.Provider)
	}
	if filter.Purpose != "" {
		conditions = append(conditions, "purpose = ?")
		args = append(args, filter.Purpose)
	}
	if !filter.StartTime.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.StartTime)
	}
	if !filter.EndTime.IsZero() {
		conditions = append(conditions, "timestamp < ?")
		args = append(args, filter.EndTime)
	}

	return strings.Join(conditions, " AND "), args
}

func expectAffected(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return nil
}
