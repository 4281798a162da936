package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Flags keep their values between executions, so every call passes the
// flags it depends on.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BG_STORAGE_PATH", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("BG_LOGGING_LEVEL", "error")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "bg version dev\n", out)
}

func TestBudgetSetAndStatus(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "budget", "set", "--id", "b-food", "-u", "u1", "-c", "Food", "-t", "500", "-s", "450", "-P", "monthly")
	require.NoError(t, err)
	assert.Contains(t, out, "b-food")
	assert.Contains(t, out, "450.00")

	out, err = run(t, "budget", "status", "-u", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "90.0% [CRITICAL]")
	assert.Contains(t, out, "50.00")

	out, err = run(t, "budget", "delete", "b-food")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	out, err = run(t, "budget", "list", "-u", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "No budgets configured")
}

func TestBudgetSet_Rejects(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "budget", "set", "--id", "", "-u", "u1", "-c", "Food", "-t", "0", "-s", "0", "-P", "monthly")
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = run(t, "budget", "set", "--id", "", "-u", "u1", "-c", "Food", "-t", "abc", "-s", "0", "-P", "monthly")
	assert.ErrorContains(t, err, "invalid amount")

	_, err = run(t, "budget", "set", "--id", "", "-u", "u1", "-c", "Food", "-t", "10", "-s", "0", "-P", "yearly")
	assert.ErrorContains(t, err, "daily, weekly or monthly")
}

func TestTransactionAdd_Alerts(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "contact", "set", "u1", "priya@example.com")
	require.NoError(t, err)
	_, err = run(t, "budget", "set", "--id", "b1", "-u", "u1", "-c", "Food", "-t", "100", "-s", "70", "-P", "monthly")
	require.NoError(t, err)

	out, err := run(t, "transaction", "add", "-u", "u1", "-c", "food", "-a", "6", "-d", "lunch")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded 6.00 against u1/food")
	assert.Contains(t, out, "76.0%")
	assert.Contains(t, out, "sent")
	assert.Contains(t, out, "priya@example.com")

	out, err = run(t, "transaction", "add", "-u", "u1", "-c", "Food", "-a", "1", "-d", "")
	require.NoError(t, err)
	assert.Contains(t, out, "skipped_cooldown")

	out, err = run(t, "alerts", "history", "-u", "u1", "-b", "", "--since", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "warning")

	out, err = run(t, "notifications", "list", "-u", "u1", "--unread=true")
	require.NoError(t, err)
	assert.Contains(t, out, "Warning: Budget Alert")

	out, err = run(t, "transaction", "add", "-u", "u2", "-c", "Food", "-a", "5", "-d", "")
	require.NoError(t, err)
	assert.Contains(t, out, "No matching budget.")
}

func TestContactSet_InvalidEmail(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "contact", "set", "u1", "not-an-email")
	assert.ErrorContains(t, err, "valid email")
}

func TestSweepAndSummary_Empty(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "No budgets configured.")

	out, err = run(t, "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "No budgets configured.")
}

func TestParseBudgetFile(t *testing.T) {
	budgets, contacts, err := ParseBudgetFile([]byte(`
budgets:
  - user_id: u1
    category: Food
    total: 500
    spent: "120.50"
  - id: rent
    user_id: u1
    category: Rent
    total: 1500.00
    period: monthly
contacts:
  u1: priya@example.com
`))
	require.NoError(t, err)
	require.Len(t, budgets, 2)
	assert.Equal(t, "500", budgets[0].Total.String())
	assert.Equal(t, "120.5", budgets[0].Spent.String())
	assert.Equal(t, "rent", budgets[1].ID)
	assert.True(t, budgets[1].Spent.IsZero())
	assert.Equal(t, "priya@example.com", contacts["u1"])
}

func TestParseBudgetFile_Invalid(t *testing.T) {
	for name, body := range map[string]string{
		"bad amount": "budgets:\n  - user_id: u1\n    category: Food\n    total: lots\n",
		"zero total": "budgets:\n  - user_id: u1\n    category: Food\n    total: 0\n",
		"bad period": "budgets:\n  - user_id: u1\n    category: Food\n    total: 5\n    period: yearly\n",
		"bad email":  "contacts:\n  u1: nope\n",
		"not yaml":   "budgets: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseBudgetFile([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestBudgetImport(t *testing.T) {
	setupEnv(t)
	path := filepath.Join(t.TempDir(), "budgets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("budgets:\n  - user_id: u1\n    category: Food\n    total: 200\n    spent: 190\ncontacts:\n  u1: a@example.com\n"), 0o644))

	out, err := run(t, "budget", "import", path)
	require.NoError(t, err)
	assert.Equal(t, "Imported 1 budgets and 1 contacts\n", out)

	out, err = run(t, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "a@example.com")
}

func TestScanRequestForFile(t *testing.T) {
	req := ScanRequestForFile("receipt.PNG", []byte{0x89, 'P', 'N', 'G'})
	assert.Empty(t, req.Text)
	assert.Equal(t, "image/png", req.ImageMIME)
	assert.Equal(t, "iVBORw==", req.ImageBase64)

	req = ScanRequestForFile("receipt.txt", []byte("TOTAL 5.00"))
	assert.Equal(t, "TOTAL 5.00", req.Text)
	assert.Empty(t, req.ImageBase64)
}

func TestReceiptScan_Text(t *testing.T) {
	setupEnv(t)
	path := filepath.Join(t.TempDir(), "receipt.txt")
	require.NoError(t, os.WriteFile(path, []byte("CORNER STORE\n04/15/2023\nTOTAL 52.11\n"), 0o644))

	out, err := run(t, "receipt", "scan", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"storeName": "CORNER STORE"`)
	assert.Contains(t, out, `"date": "2023-04-15"`)
}

func TestLLMProviders(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "llm", "providers")
	require.NoError(t, err)
	assert.Contains(t, out, "No provider selected")
	assert.Contains(t, out, "openai")
	assert.Contains(t, out, "gemini")

	out, err = run(t, "llm", "usage", "-P", "monthly", "-p", "", "--purpose", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Calls:               0 (0 failed)")
}

func TestAdvise_NoBackend(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "advise", "how", "do", "I", "save?")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
