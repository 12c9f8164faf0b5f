// Package insights turns computed tax state into advisory notices.
package insights

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/money"
	"github.com/dvloznov/tax-tracker/internal/tax"
	"github.com/shopspring/decimal"
)

// Type is the severity of an insight.
type Type string

const (
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
)

// Priority orders insights for display.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Titles of the built-in rules. Titles double as the dedup key.
const (
	Title80COptimization   = "80C Deduction Optimization"
	TitleMedicalRenewal    = "Medical Insurance Renewal"
	TitleExcellentPlanning = "Excellent Tax Planning!"
)

// RenewalAfterDays is how long after the latest 80D payment the renewal
// reminder fires.
const RenewalAfterDays = 300

var eightyPercent = decimal.NewFromInt(80)

// Insight is an advisory notice shown on the dashboard.
type Insight struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Action    string    `json:"action,omitempty"`
	Priority  Priority  `json:"priority"`
	CreatedAt time.Time `json:"createdAt"`
	IsRead    bool      `json:"isRead"`
}

// Generate evaluates the rule set in order. The result carries no IDs or
// timestamps; Merge assigns those.
func Generate(txs []domain.Transaction, util tax.Utilization, calc tax.Calculation, today civil.Date) []Insight {
	var out []Insight

	s80c := util.Section80C
	if s80c.Utilization.LessThan(decimal.NewFromInt(100)) {
		remaining := s80c.Remaining()
		saving := remaining.Mul(tax.AssumedMarginalRate())
		msg := "You have " + money.Rupees(remaining) + " remaining in your 80C limit. " +
			"Consider investing in ELSS before March to save an extra " + money.Rupees(saving) + "."
		out = append(out, Insight{
			Type:     TypeWarning,
			Title:    Title80COptimization,
			Message:  msg,
			Action:   "Show Options",
			Priority: PriorityHigh,
		})
	}

	if last, ok := latestMedical(txs); ok && today.DaysSince(last) >= RenewalAfterDays {
		msg := "Your medical insurance premium is likely due soon. Paying it before the due date " +
			"will help maintain your " + money.Rupees(util.Section80D.Used) + " deduction."
		out = append(out, Insight{
			Type:     TypeInfo,
			Title:    TitleMedicalRenewal,
			Message:  msg,
			Action:   "Set Reminder",
			Priority: PriorityMedium,
		})
	}

	if calc.Recommendation.Regime == domain.RegimeOld && s80c.Utilization.GreaterThan(eightyPercent) {
		out = append(out, Insight{
			Type:     TypeSuccess,
			Title:    TitleExcellentPlanning,
			Message:  "Great job! Your tax planning is on track. You're utilizing deductions efficiently and staying within the optimal regime.",
			Priority: PriorityLow,
		})
	}

	return out
}

func latestMedical(txs []domain.Transaction) (civil.Date, bool) {
	var (
		last  civil.Date
		found bool
	)
	for _, tx := range txs {
		if tx.Category != domain.CategorySection80D {
			continue
		}
		if !found || tx.Date.After(last) {
			last = tx.Date
			found = true
		}
	}
	return last, found
}

// Merge appends generated insights whose title is not already present.
// Appended insights get an ID from newID, CreatedAt now and IsRead false.
// existing is not modified.
func Merge(existing, generated []Insight, newID func() string, now time.Time) []Insight {
	out := make([]Insight, len(existing), len(existing)+len(generated))
	copy(out, existing)

	seen := make(map[string]struct{}, len(out))
	for _, in := range out {
		seen[in.Title] = struct{}{}
	}

	for _, in := range generated {
		if _, dup := seen[in.Title]; dup {
			continue
		}
		in.ID = newID()
		in.CreatedAt = now
		in.IsRead = false
		out = append(out, in)
		seen[in.Title] = struct{}{}
	}
	return out
}

// Carry rebuilds the list from freshly generated insights, reusing the ID,
// creation time and read flag of any previous insight with the same title.
// Previous insights that were not regenerated are dropped.
func Carry(previous, generated []Insight, newID func() string, now time.Time) []Insight {
	byTitle := make(map[string]Insight, len(previous))
	for _, in := range previous {
		byTitle[in.Title] = in
	}

	out := make([]Insight, 0, len(generated))
	for _, in := range Merge(nil, generated, newID, now) {
		if prev, ok := byTitle[in.Title]; ok {
			in.ID = prev.ID
			in.CreatedAt = prev.CreatedAt
			in.IsRead = prev.IsRead
		}
		out = append(out, in)
	}
	return out
}

// MarkRead flags the insight with id as read. It reports whether one was found.
func MarkRead(list []Insight, id string) bool {
	for i := range list {
		if list[i].ID == id {
			list[i].IsRead = true
			return true
		}
	}
	return false
}

// Unread counts insights not yet read.
func Unread(list []Insight) int {
	n := 0
	for _, in := range list {
		if !in.IsRead {
			n++
		}
	}
	return n
}
