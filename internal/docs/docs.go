// Package docs validates uploaded documents before they are archived or
// sent for extraction. File types are sniffed from content; the client's
// declared type and the file extension are not trusted.
package docs

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

const (
	MaxFileSize       = 10 << 20
	MaxFilesPerUpload = 5
	MaxNameLength     = 255
	// MaxBatchSize caps the combined size of one upload.
	MaxBatchSize      = 2 * MaxFileSize
)

// ErrInvalidFile is matched by the error of every rejected file or batch.
var ErrInvalidFile = errors.New("invalid upload")

// allowedTypes are the accepted sniffed MIME types. Aliases and child types
// are matched through mimetype.
var allowedTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/tiff",
}

var dangerousExtensions = map[string]bool{
	".exe": true, ".bat": true, ".cmd": true, ".scr": true, ".vbs": true,
	".js": true, ".jar": true, ".app": true, ".dmg": true,
}

var (
	suspiciousName  = regexp.MustCompile(`[<>:"|?*\x00-\x1f]|^\.|\.\.|__MACOSX|(?i:thumbs\.db|desktop\.ini)`)
	doubleExtension = regexp.MustCompile(`\.[a-zA-Z0-9]+\.[a-zA-Z0-9]+$`)
)

var archiveDoubleExtensions = map[string]bool{".tar.gz": true, ".tar.bz2": true, ".tar.xz": true}

// nameHints are file-name fragments expected for each document type. A
// mismatch only produces a warning.
var nameHints = map[domain.DocumentType][]string{
	domain.DocForm16:          {"form16", "form-16", "form_16"},
	domain.DocSalarySlip:      {"salary", "payslip", "pay_slip", "pay-slip"},
	domain.DocInvestmentProof: {"investment", "mutual", "sip", "elss", "ppf", "nsc"},
}

// File is one uploaded file.
type File struct {
	Name string
	Data []byte
}

// Info describes a file that was inspected.
type Info struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	MIMEType  string `json:"mimeType"`
	Extension string `json:"extension"`
	Pages     int    `json:"pages,omitempty"`
}

// Result is the outcome of validating one file.
type Result struct {
	Info     Info     `json:"fileInfo"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Valid reports whether the file may be processed.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Err returns nil for a valid file, otherwise an error wrapping ErrInvalidFile.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	return fmt.Errorf("%s: %s: %w", r.Info.Name, strings.Join(r.Errors, "; "), ErrInvalidFile)
}

// Validate checks one file. docType is optional and only affects warnings.
func Validate(f File, docType domain.DocumentType) Result {
	size := int64(len(f.Data))
	res := Result{Info: Info{Name: f.Name, Size: size, Extension: extension(f.Name)}}

	switch {
	case size == 0:
		res.Errors = append(res.Errors, "file is empty")
	case size > MaxFileSize:
		res.Errors = append(res.Errors, fmt.Sprintf("file size (%s) exceeds maximum allowed size (%s)", FormatSize(size), FormatSize(MaxFileSize)))
	}

	res.Errors = append(res.Errors, checkName(f.Name)...)

	if size > 0 {
		mt := mimetype.Detect(f.Data)
		res.Info.MIMEType = mt.String()

		canonical, ok := allowedMIME(mt)
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("file type %q is not allowed; allowed types: PDF, DOC, DOCX, XLS, XLSX, JPG, PNG, WEBP, TIFF", mt.String()))
		} else {
			res.Info.MIMEType = canonical
		}

		if canonical == "application/pdf" {
			pages, err := countPages(f.Data)
			switch {
			case err != nil:
				res.Errors = append(res.Errors, "pdf cannot be opened: "+err.Error())
			case pages < 1:
				res.Errors = append(res.Errors, "pdf has no pages")
			default:
				res.Info.Pages = pages
			}
		}
	}

	if hints, ok := nameHints[docType]; ok && !matchesHint(f.Name, hints) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("file name doesn't seem to match document type %q; please verify this is the correct document", docType))
	}

	return res
}

// BatchResult is the outcome of validating one upload.
type BatchResult struct {
	Errors    []string `json:"globalErrors,omitempty"`
	Results   []Result `json:"results"`
	TotalSize int64    `json:"totalSize"`
}

// Valid reports whether every file and the batch as a whole passed.
func (b BatchResult) Valid() bool {
	if len(b.Errors) > 0 {
		return false
	}
	for _, r := range b.Results {
		if !r.Valid() {
			return false
		}
	}
	return true
}

// Err joins every batch and file error, or returns nil.
func (b BatchResult) Err() error {
	if b.Valid() {
		return nil
	}
	var msgs []string
	msgs = append(msgs, b.Errors...)
	for _, r := range b.Results {
		if !r.Valid() {
			msgs = append(msgs, r.Info.Name+": "+strings.Join(r.Errors, "; "))
		}
	}
	return fmt.Errorf("%s: %w", strings.Join(msgs, "; "), ErrInvalidFile)
}

// ValidateBatch checks the file count, duplicates and total size, then each file.
func ValidateBatch(files []File, docType domain.DocumentType) BatchResult {
	var b BatchResult

	switch {
	case len(files) == 0:
		b.Errors = append(b.Errors, "no files selected")
	case len(files) > MaxFilesPerUpload:
		b.Errors = append(b.Errors, fmt.Sprintf("too many files selected; maximum allowed: %d", MaxFilesPerUpload))
	}

	seen := make(map[string]int)
	var dups []string
	for _, f := range files {
		seen[f.Name]++
		if seen[f.Name] == 2 {
			dups = append(dups, f.Name)
		}
		b.TotalSize += int64(len(f.Data))
		b.Results = append(b.Results, Validate(f, docType))
	}
	if len(dups) > 0 {
		b.Errors = append(b.Errors, "duplicate files detected: "+strings.Join(dups, ", "))
	}
	if b.TotalSize > MaxBatchSize {
		b.Errors = append(b.Errors, fmt.Sprintf("total file size (%s) is too large", FormatSize(b.TotalSize)))
	}

	return b
}

func allowedMIME(mt *mimetype.MIME) (string, bool) {
	for m := mt; m != nil; m = m.Parent() {
		for _, allowed := range allowedTypes {
			if m.Is(allowed) {
				return allowed, true
			}
		}
	}
	return "", false
}

// countPages opens data with the PDF reader. The reader panics on some
// malformed inputs, which is reported as an error.
func countPages(data []byte) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}

func checkName(name string) []string {
	var errs []string
	if strings.TrimSpace(name) == "" {
		return []string{"file must have a valid name"}
	}
	if len(name) > MaxNameLength {
		errs = append(errs, fmt.Sprintf("file name is too long (maximum %d characters)", MaxNameLength))
	}
	if suspiciousName.MatchString(name) {
		errs = append(errs, "file name contains invalid characters")
	}
	if ext := extension(name); dangerousExtensions[ext] {
		errs = append(errs, fmt.Sprintf("file type %q is not allowed for security reasons", ext))
	}
	if m := doubleExtension.FindString(name); m != "" && !archiveDoubleExtensions[strings.ToLower(m)] {
		errs = append(errs, "file has suspicious double extension")
	}
	return errs
}

func matchesHint(name string, hints []string) bool {
	lower := strings.ToLower(name)
	for _, h := range hints {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

func extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// FormatSize renders a byte count the way upload errors show it.
func FormatSize(n int64) string {
	if n == 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
	return s + " " + units[i]
}
