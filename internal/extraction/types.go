// Package extraction turns documents into candidate transactions. The model
// output is treated as untrusted and always passes through NormalizeCandidate.
package extraction

import (
	"context"
	"time"

	"github.com/dvloznov/tax-tracker/internal/domain"
)

// DefaultConfidence is reported when the model omits a confidence score.
const DefaultConfidence = 0.8

// Document is an uploaded file handed to an Extractor.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Size is the byte length of the document.
func (d Document) Size() int64 {
	return int64(len(d.Data))
}

// UserContext is the profile information added to extraction prompts.
type UserContext struct {
	UserType       domain.UserType
	AssessmentYear string
	Regime         domain.Regime
}

// UserContextFor builds the prompt context from the profile and settings,
// applying the usual defaults.
func UserContextFor(p domain.UserProfile, s domain.TaxSettings) UserContext {
	regime := s.Regime
	if regime == "" {
		regime = domain.RegimeOld
	}
	return UserContext{
		UserType:       p.UserTypeOrDefault(),
		AssessmentYear: p.AssessmentYearOrDefault(),
		Regime:         regime,
	}
}

// EmployeeDetails is the employee block of a Form 16.
type EmployeeDetails struct {
	Name           string `json:"name,omitempty"`
	PAN            string `json:"pan,omitempty"`
	EmployerName   string `json:"employerName,omitempty"`
	AssessmentYear string `json:"assessmentYear,omitempty"`
}

// ExtractedData is the normalized payload of a successful extraction.
type ExtractedData struct {
	DocumentType    domain.DocumentType `json:"documentType,omitempty"`
	Transactions    []domain.Candidate  `json:"transactions"`
	EmployeeDetails *EmployeeDetails    `json:"employeeDetails,omitempty"`
	Confidence      float64             `json:"confidence"`
}

// Metadata describes the extraction run.
type Metadata struct {
	DocumentType   domain.DocumentType `json:"documentType"`
	ProcessingTime time.Time           `json:"processingTime"`
	FileName       string              `json:"fileName"`
	FileSize       int64               `json:"fileSize,omitempty"`
	Confidence     float64             `json:"confidence,omitempty"`
	Error          bool                `json:"error,omitempty"`
}

// Result is what an Extractor returns. Failures are values, not errors;
// Retryable marks failures that may succeed on another attempt.
type Result struct {
	Success       bool          `json:"success"`
	Error         string        `json:"error,omitempty"`
	Retryable     bool          `json:"retryable,omitempty"`
	ExtractedData ExtractedData `json:"extractedData"`
	Metadata      Metadata      `json:"metadata"`
}

// Failed builds a failure result with an empty transaction list.
func Failed(doc Document, docType domain.DocumentType, now time.Time, err error) Result {
	return Result{
		Success: false,
		Error:   err.Error(),
		ExtractedData: ExtractedData{
			Transactions: []domain.Candidate{},
		},
		Metadata: Metadata{
			DocumentType:   docType,
			ProcessingTime: now,
			FileName:       doc.Name,
			Error:          true,
		},
	}
}

// Extractor converts a document into candidate transactions.
type Extractor interface {
	Extract(ctx context.Context, doc Document, docType domain.DocumentType, uc UserContext) Result
}
