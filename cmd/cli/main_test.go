package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dvloznov/tax-tracker/internal/app"
	"github.com/dvloznov/tax-tracker/internal/assistant"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/export"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness runs commands against one state database, a fresh process-like
// invocation each time.
type harness struct {
	t  *testing.T
	db string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, key := range []string{"TAXTRACKER_CONFIG", "GEMINI_API_KEY", "GCS_BUCKET", "GCP_PROJECT", "NOTION_TOKEN", "NOTION_DATABASE_ID"} {
		t.Setenv(key, "")
	}
	t.Setenv("TAXTRACKER_LOG_LEVEL", "error")
	return &harness{t: t, db: filepath.Join(t.TempDir(), "state.db")}
}

func (h *harness) run(stdin string, args ...string) (string, string, error) {
	h.t.Helper()
	c := &cli{}
	cmd := c.rootCmd()

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--db", h.db}, args...))

	err := cmd.Execute()
	require.NoError(h.t, c.close())
	return out.String(), errOut.String(), err
}

func (h *harness) ok(args ...string) string {
	h.t.Helper()
	out, errOut, err := h.run("", args...)
	require.NoError(h.t, err, errOut)
	return out
}

// addedID extracts the ID from "Added <id>: ...".
func addedID(t *testing.T, out string) string {
	t.Helper()
	fields := strings.Fields(out)
	require.GreaterOrEqual(t, len(fields), 2, out)
	require.Equal(t, "Added", fields[0])
	return strings.TrimSuffix(fields[1], ":")
}

func TestTransactionLifecycle(t *testing.T) {
	h := newHarness(t)

	salary := addedID(t, h.ok("tx", "add", "--date", "2024-04-30", "-d", "April salary", "-a", "95000", "-t", "Income"))
	elss := addedID(t, h.ok("tx", "add", "--date", "2024-05-10", "-d", "ELSS SIP", "-a", "12500", "-t", "Deduction", "-c", "SECTION_80C", "--receipt"))

	out := h.ok("tx", "list")
	assert.Contains(t, out, "April salary")
	assert.Contains(t, out, "ELSS SIP")
	assert.Contains(t, out, "Salary Income")
	assert.Less(t, strings.Index(out, "ELSS SIP"), strings.Index(out, "April salary"), "newest first")

	out = h.ok("tx", "list", "--type", "deduction")
	assert.Contains(t, out, "ELSS SIP")
	assert.NotContains(t, out, "April salary")

	out = h.ok("tx", "update", elss, "-a", "15000", "--notes", "stepped up")
	assert.Contains(t, out, "₹15,000")
	assert.Contains(t, h.ok("tx", "list", "--search", "stepped"), "ELSS SIP")

	assert.Contains(t, h.ok("tx", "delete", salary), "Deleted "+salary)
	out = h.ok("tx", "list")
	assert.NotContains(t, out, "April salary")
	assert.Contains(t, out, "ELSS SIP")
}

func TestTxAdd_Errors(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing flags", []string{"tx", "add", "-d", "x"}, "required flag"},
		{"bad date", []string{"tx", "add", "--date", "30/04/2024", "-d", "x", "-a", "1", "-t", "Income"}, "invalid --date"},
		{"bad amount", []string{"tx", "add", "--date", "2024-04-30", "-d", "x", "-a", "lots", "-t", "Income"}, "invalid --amount"},
		{"bad type", []string{"tx", "add", "--date", "2024-04-30", "-d", "x", "-a", "1", "-t", "Gift"}, "invalid --type"},
		{"zero amount", []string{"tx", "add", "--date", "2024-04-30", "-d", "x", "-a", "0", "-t", "Income"}, "amount"},
		{"category outside family", []string{"tx", "add", "--date", "2024-04-30", "-d", "x", "-a", "1", "-t", "Income", "-c", "HRA"}, "category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := h.run("", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.Contains(t, h.ok("tx", "list"), "No transactions.")
}

func TestTxUpdate_Errors(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("", "tx", "update", "missing", "-a", "10")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	id := addedID(t, h.ok("tx", "add", "--date", "2024-04-30", "-d", "Rent", "-a", "20000", "-t", "Deduction", "-c", "HRA"))
	_, _, err = h.run("", "tx", "update", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to update")
}

func TestTaxAndUtilization(t *testing.T) {
	h := newHarness(t)
	h.ok("tx", "add", "--date", "2024-04-30", "-d", "April salary", "-a", "95000", "-t", "Income")
	h.ok("tx", "add", "--date", "2024-05-10", "-d", "PPF", "-a", "75000", "-t", "Deduction", "-c", "80C Deduction")

	out := h.ok("tax")
	assert.Contains(t, out, "OLD REGIME")
	assert.Contains(t, out, "NEW REGIME")
	assert.Contains(t, out, "Tax liability")
	assert.Contains(t, out, "Recommended:")

	out = h.ok("utilization")
	assert.Contains(t, out, "80C")
	assert.Contains(t, out, "₹75,000")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "HRA")
}

func TestFilingAndAnalysis(t *testing.T) {
	h := newHarness(t)
	h.ok("tx", "add", "--date", "2024-04-30", "-d", "April salary", "-a", "95000", "-t", "Income", "-c", "Salary Income")

	out := h.ok("filing")
	assert.Contains(t, out, "Recommended form: ITR-1")
	assert.Contains(t, out, "Readiness: 3/6 (50%)")
	assert.Contains(t, out, "1 transactions recorded")
	assert.Contains(t, out, "0 documents uploaded")

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"default investment", nil, "Investing ₹50,000 more saves about ₹15,000 (30% bracket", false},
		{"given investment", []string{"--invest", "100000"}, "more saves about ₹30,000", false},
		{"negative investment", []string{"--invest", "-1"}, "", true},
		{"not a number", []string{"--invest", "lots"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := h.run("", append([]string{"analysis"}, tt.args...)...)
			if tt.wantErr {
				assert.ErrorContains(t, err, "invalid --invest")
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, "Salary Income")
			assert.Contains(t, out, "₹95,000")
			assert.Contains(t, out, "(none)")
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestInsights(t *testing.T) {
	h := newHarness(t)
	h.ok("tx", "add", "--date", "2024-04-30", "-d", "April salary", "-a", "95000", "-t", "Income")

	out := h.ok("insights")
	assert.Contains(t, out, "unread")

	_, _, err := h.run("", "insights", "read", "no-such-insight")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProfileAndSettings(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, h.ok("profile", "show"), "No profile yet")

	_, errOut, err := h.run(`{"name":"Asha"}`, "profile", "set", "--complete")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, errOut, "basicInfo.city")

	out, _, err := h.run(`{"userType":"salaried","basicInfo":{"age":32,"city":"Pune"}}`, "profile", "set", "--complete")
	require.NoError(t, err)
	assert.Contains(t, out, "Profile saved")

	var p domain.UserProfile
	require.NoError(t, json.Unmarshal([]byte(h.ok("profile", "show")), &p))
	assert.True(t, p.OnboardingCompleted)
	assert.Equal(t, "Pune", p.BasicInfo.City)

	file := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"name":"Asha Rao"}`), 0o600))
	h.ok("profile", "set", "-f", file)
	require.NoError(t, json.Unmarshal([]byte(h.ok("profile", "show")), &p))
	assert.Equal(t, "Asha Rao", p.Name)
	assert.Equal(t, "Pune", p.BasicInfo.City, "merged over the stored profile")

	h.ok("settings", "set", "--regime", "new", "--reminder-days", "15")
	out = h.ok("settings", "show")
	assert.Contains(t, out, "new")
	assert.Contains(t, out, "15")
	assert.Contains(t, out, "Include projections  true")

	_, errOut, err = h.run("", "settings", "set", "--reminder-days", "120")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, errOut, "reminderDays")
}

func TestExtract_WithoutModel(t *testing.T) {
	h := newHarness(t)
	file := filepath.Join(t.TempDir(), "salary_april.pdf")
	require.NoError(t, os.WriteFile(file, []byte("%PDF-1.4\n%%EOF\n"), 0o600))

	_, _, err := h.run("", "extract", file, "--type", "salary_slip")
	require.Error(t, err)
	assert.ErrorIs(t, err, app.ErrNoExtractor)
}

func TestPending_NothingStaged(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, h.ok("pending", "list"), "Nothing pending.")

	_, _, err := h.run("", "pending", "reject")
	assert.ErrorIs(t, err, domain.ErrNoPending)

	_, _, err = h.run("", "pending", "confirm")
	assert.ErrorIs(t, err, domain.ErrNoPending)

	_, _, err = h.run("", "pending", "remove", "-1")
	require.Error(t, err)

	_, _, err = h.run("", "pending", "remove", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid index")
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	h.ok("tx", "add", "--date", "2024-04-30", "-d", "April salary", "-a", "95000", "-t", "Income")

	out := h.ok("export", "csv")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(export.CSVHeader, ","), lines[0])
	assert.Equal(t, "2024-04-30,April salary,95000,Income,Salary Income,No", lines[1])

	dir := t.TempDir()
	h.ok("export", "summary", "--out", dir)
	matches, err := filepath.Glob(filepath.Join(dir, "tax_summary_*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	var summary export.Summary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.True(t, summary.TaxCalculations.OldRegime.GrossIncome.IsPositive())
}

func TestAsk_WithoutModel(t *testing.T) {
	h := newHarness(t)

	out := h.ok("ask", "How", "much", "80C", "is", "left?")
	assert.Equal(t, assistant.Apology+"\n", out)

	out = h.ok("ask", "--history")
	assert.Contains(t, out, assistant.Greeting)
	assert.Contains(t, out, "How much 80C is left?")

	_, _, err := h.run("", "ask", "  ")
	require.Error(t, err)
}

func TestSync_NotConfigured(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("", "sync", "notion", "--dry-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")

	_, _, err = h.run("", "sync", "warehouse")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
