package domain

import "time"

// Regime is one of the two alternative tax computation modes.
type Regime string

const (
	RegimeOld Regime = "old"
	RegimeNew Regime = "new"
)

// TaxSettings are the user's calculation preferences.
type TaxSettings struct {
	Regime             Regime `json:"regime" validate:"required,oneof=old new"`
	AutoCalculate      bool   `json:"autoCalculate"`
	IncludeProjections bool   `json:"includeProjections"`
	ReminderDays       int    `json:"reminderDays" validate:"min=1,max=90"`
}

// DefaultTaxSettings mirrors the defaults of a fresh install.
func DefaultTaxSettings() TaxSettings {
	return TaxSettings{
		Regime:             RegimeOld,
		AutoCalculate:      true,
		IncludeProjections: true,
		ReminderDays:       30,
	}
}

// DocumentType is the hint passed to the extractor.
type DocumentType string

const (
	DocForm16           DocumentType = "form16"
	DocSalarySlip       DocumentType = "salary_slip"
	DocInvestmentProof  DocumentType = "investment_proof"
	DocBusinessDocument DocumentType = "business_document"
)

// DocumentTypes lists the supported hints.
var DocumentTypes = []DocumentType{DocForm16, DocSalarySlip, DocInvestmentProof, DocBusinessDocument}

// ParseDocumentType returns the matching hint, falling back to salary_slip
// for anything unknown.
func ParseDocumentType(s string) DocumentType {
	for _, d := range DocumentTypes {
		if string(d) == s {
			return d
		}
	}
	return DocSalarySlip
}

// DocumentTypesFor returns the document hints offered to a user type.
func DocumentTypesFor(u UserType) []DocumentType {
	switch u {
	case UserBusiness:
		return []DocumentType{DocBusinessDocument, DocInvestmentProof}
	case UserBoth:
		return []DocumentType{DocForm16, DocSalarySlip, DocBusinessDocument, DocInvestmentProof}
	default:
		return []DocumentType{DocForm16, DocSalarySlip, DocInvestmentProof}
	}
}

// FileStatus tracks an uploaded document through extraction.
type FileStatus string

const (
	FileUploading  FileStatus = "uploading"
	FileProcessing FileStatus = "processing"
	FileCompleted  FileStatus = "completed"
	FileFailed     FileStatus = "failed"
)

// UploadedFile is the metadata kept for every uploaded document.
type UploadedFile struct {
	ID           string       `json:"id"`
	FileName     string       `json:"fileName"`
	MIMEType     string       `json:"mimeType"`
	Size         int64        `json:"size"`
	DocumentType DocumentType `json:"documentType"`
	ArchiveURI   string       `json:"archiveUri,omitempty"`
	JobID        string       `json:"jobId,omitempty"`
	Status       FileStatus   `json:"status"`
	Error        string       `json:"error,omitempty"`
	UploadedAt   time.Time    `json:"uploadedAt"`
}
