package app

import (
	"context"
	"fmt"

	"github.com/dvloznov/tax-tracker/internal/assistant"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/filing"
	"github.com/dvloznov/tax-tracker/internal/insights"
	"github.com/dvloznov/tax-tracker/internal/tax"
	"github.com/shopspring/decimal"
)

// Profile returns a copy of the user profile, or nil before onboarding.
func (a *App) Profile() *domain.UserProfile {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.profile == nil {
		return nil
	}
	p := *a.profile
	return &p
}

// IsNewUser reports whether no profile has been saved yet.
func (a *App) IsNewUser() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isNewUser
}

// SetProfile replaces the profile and marks the user as returning.
func (a *App) SetProfile(ctx context.Context, p domain.UserProfile) error {
	if err := domain.ValidateProfile(p); err != nil {
		return fmt.Errorf("SetProfile: %w", err)
	}
	return a.storeProfile(ctx, "SetProfile", p)
}

// CompleteOnboarding saves the profile collected at onboarding. It requires
// the onboarding fields on top of the usual profile checks.
func (a *App) CompleteOnboarding(ctx context.Context, p domain.UserProfile) error {
	if err := domain.ValidateOnboarding(p); err != nil {
		return fmt.Errorf("CompleteOnboarding: %w", err)
	}
	p.OnboardingCompleted = true
	if p.CreatedAt.IsZero() {
		p.CreatedAt = a.now()
	}
	return a.storeProfile(ctx, "CompleteOnboarding", p)
}

func (a *App) storeProfile(ctx context.Context, op string, p domain.UserProfile) error {
	err := a.mutate(ctx, func() ([]Event, error) {
		a.profile = &p
		a.isNewUser = false
		return []Event{a.eventLocked(EventProfileChanged, nil)}, nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Settings returns the tax settings.
func (a *App) Settings() domain.TaxSettings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

// SetSettings replaces the tax settings and recomputes, since projections
// change the aggregates.
func (a *App) SetSettings(ctx context.Context, s domain.TaxSettings) error {
	if err := domain.ValidateSettings(s); err != nil {
		return fmt.Errorf("SetSettings: %w", err)
	}
	err := a.mutate(ctx, func() ([]Event, error) {
		a.settings = s
		a.recomputeLocked()
		return []Event{a.eventLocked(EventSettingsChanged, nil)}, nil
	})
	if err != nil {
		return fmt.Errorf("SetSettings: %w", err)
	}
	return nil
}

// Calculation returns the latest regime comparison.
func (a *App) Calculation() tax.Calculation {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calc
}

// Utilization returns the latest deduction utilization.
func (a *App) Utilization() tax.Utilization {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.util
}

// FilingReport returns the recommended return form and the readiness
// checklist.
func (a *App) FilingReport() filing.Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return filing.BuildReport(filing.Input{
		Profile:      a.profile,
		Transactions: a.txs,
		Calculation:  a.calc,
		Uploads:      a.files,
	})
}

// Analysis returns the category breakdowns and the what-if estimate for
// investment. Categories are listed in the order they were first recorded.
func (a *App) Analysis(investment decimal.Decimal) filing.Analysis {
	a.mu.Lock()
	defer a.mu.Unlock()
	return filing.Analyze(a.txs, a.calc, investment)
}

// Insights returns a copy of the current insights.
func (a *App) Insights() []insights.Insight {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]insights.Insight{}, a.insights...)
}

// MarkInsightRead flags an insight as read.
func (a *App) MarkInsightRead(ctx context.Context, id string) error {
	err := a.mutate(ctx, func() ([]Event, error) {
		if !insights.MarkRead(a.insights, id) {
			return nil, fmt.Errorf("insight %q: %w", id, domain.ErrNotFound)
		}
		return []Event{a.eventLocked(EventInsightRead, nil)}, nil
	})
	if err != nil {
		return fmt.Errorf("MarkInsightRead: %w", err)
	}
	return nil
}

// UploadedFiles returns a copy of the upload records.
func (a *App) UploadedFiles() []domain.UploadedFile {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.UploadedFile{}, a.files...)
}

// RecordUpload stores metadata for a newly uploaded document. ID, status and
// upload time are filled in when empty.
func (a *App) RecordUpload(ctx context.Context, f domain.UploadedFile) (domain.UploadedFile, error) {
	err := a.mutate(ctx, func() ([]Event, error) {
		if f.ID == "" {
			f.ID = a.newID()
		}
		if f.Status == "" {
			f.Status = domain.FileUploading
		}
		if f.UploadedAt.IsZero() {
			f.UploadedAt = a.now()
		}
		a.files = append(a.files, f)
		return []Event{a.eventLocked(EventUploadChanged, nil)}, nil
	})
	if err != nil {
		return domain.UploadedFile{}, fmt.Errorf("RecordUpload: %w", err)
	}
	return f, nil
}

// UpdateUploadStatus moves an upload to status, recording errMsg for failures.
func (a *App) UpdateUploadStatus(ctx context.Context, id string, status domain.FileStatus, errMsg string) error {
	err := a.mutate(ctx, func() ([]Event, error) {
		for i := range a.files {
			if a.files[i].ID == id {
				a.files[i].Status = status
				a.files[i].Error = errMsg
				return []Event{a.eventLocked(EventUploadChanged, nil)}, nil
			}
		}
		return nil, fmt.Errorf("upload %q: %w", id, domain.ErrNotFound)
	})
	if err != nil {
		return fmt.Errorf("UpdateUploadStatus: %w", err)
	}
	return nil
}

// RemoveUpload forgets an upload record. Transactions extracted from it stay.
func (a *App) RemoveUpload(ctx context.Context, id string) error {
	err := a.mutate(ctx, func() ([]Event, error) {
		for i := range a.files {
			if a.files[i].ID == id {
				a.files = append(a.files[:i], a.files[i+1:]...)
				return []Event{a.eventLocked(EventUploadChanged, nil)}, nil
			}
		}
		return nil, fmt.Errorf("upload %q: %w", id, domain.ErrNotFound)
	})
	if err != nil {
		return fmt.Errorf("RemoveUpload: %w", err)
	}
	return nil
}

// ChatHistory returns a copy of the conversation.
func (a *App) ChatHistory() []assistant.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]assistant.Message{}, a.chat...)
}

// Ask appends question to the conversation and asks the assistant for a
// reply. A failing or missing assistant yields the apology text; the error is
// logged, not returned.
func (a *App) Ask(ctx context.Context, question string) (assistant.Message, error) {
	a.mu.Lock()
	a.chat = append(a.chat, assistant.Message{Role: assistant.RoleUser, Text: question, At: a.now()})
	history := append([]assistant.Message(nil), a.chat...)
	snap := assistant.BuildSnapshot(a.profile, a.calc, a.util, len(a.txs))
	a.mu.Unlock()

	text := assistant.Apology
	if a.assistant == nil {
		a.log.Warn().Msg("no assistant configured")
	} else if reply, err := a.assistant.Reply(ctx, snap, history); err != nil {
		a.log.Error().Err(err).Msg("assistant reply failed")
	} else {
		text = reply
	}

	var msg assistant.Message
	err := a.mutate(ctx, func() ([]Event, error) {
		msg = assistant.Message{Role: assistant.RoleModel, Text: text, At: a.now()}
		a.chat = append(a.chat, msg)
		return []Event{a.eventLocked(EventAssistantReply, nil)}, nil
	})
	if err != nil {
		return msg, fmt.Errorf("Ask: %w", err)
	}
	return msg, nil
}
