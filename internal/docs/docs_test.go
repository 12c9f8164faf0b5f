package docs

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF writes a minimal PDF with the given number of blank pages and a
// correct cross-reference table.
func buildPDF(pages int) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")

	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, b.Len())
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(offsets)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return b.Bytes()
}

var pngData = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		file      File
		docType   domain.DocumentType
		wantValid bool
		wantErr   string
		wantWarn  bool
		wantMIME  string
		wantPages int
	}{
		{
			name:      "pdf matching document type",
			file:      File{Name: "Form16_2024.pdf", Data: buildPDF(2)},
			docType:   domain.DocForm16,
			wantValid: true,
			wantMIME:  "application/pdf",
			wantPages: 2,
		},
		{
			name:      "pdf with unexpected name only warns",
			file:      File{Name: "document.pdf", Data: buildPDF(1)},
			docType:   domain.DocSalarySlip,
			wantValid: true,
			wantWarn:  true,
			wantMIME:  "application/pdf",
			wantPages: 1,
		},
		{
			name:      "png scan",
			file:      File{Name: "payslip-april.png", Data: pngData},
			docType:   domain.DocSalarySlip,
			wantValid: true,
			wantMIME:  "image/png",
		},
		{
			name:    "pdf without pages",
			file:    File{Name: "form16.pdf", Data: buildPDF(0)},
			wantErr: "pdf has no pages",
		},
		{
			name:    "truncated pdf",
			file:    File{Name: "form16.pdf", Data: []byte("%PDF-1.4\nnot really a pdf")},
			wantErr: "pdf cannot be opened",
		},
		{
			name:    "text disguised as pdf",
			file:    File{Name: "form16.pdf", Data: []byte("just some plain text in a file")},
			wantErr: "is not allowed",
		},
		{
			name:    "empty",
			file:    File{Name: "form16.pdf"},
			wantErr: "file is empty",
		},
		{
			name:    "too large",
			file:    File{Name: "scan.png", Data: append(append([]byte{}, pngData...), make([]byte, MaxFileSize)...)},
			wantErr: "exceeds maximum allowed size (10 MB)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.file, tt.docType)

			assert.Equal(t, tt.wantValid, got.Valid(), "errors: %v", got.Errors)
			if tt.wantErr != "" {
				require.Error(t, got.Err())
				assert.ErrorIs(t, got.Err(), ErrInvalidFile)
				assert.Contains(t, strings.Join(got.Errors, "; "), tt.wantErr)
			} else {
				assert.NoError(t, got.Err())
			}
			assert.Equal(t, tt.wantWarn, len(got.Warnings) > 0, "warnings: %v", got.Warnings)
			if tt.wantMIME != "" {
				assert.Equal(t, tt.wantMIME, got.Info.MIMEType)
			}
			assert.Equal(t, tt.wantPages, got.Info.Pages)
			assert.Equal(t, int64(len(tt.file.Data)), got.Info.Size)
		})
	}
}

func TestCheckName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"form16.pdf", ""},
		{"backup.tar.gz", ""},
		{"", "file must have a valid name"},
		{"../secret.pdf", "file name contains invalid characters"},
		{".hidden.pdf", "file name contains invalid characters"},
		{"Thumbs.db", "file name contains invalid characters"},
		{"what?.pdf", "file name contains invalid characters"},
		{"setup.exe", "not allowed for security reasons"},
		{"salary.pdf.exe", "file has suspicious double extension"},
		{strings.Repeat("a", 252) + ".pdf", "file name is too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.Join(checkName(tt.name), "; ")
			if tt.want == "" {
				assert.Empty(t, got)
				return
			}
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestValidateBatch(t *testing.T) {
	pdf := buildPDF(1)
	file := func(name string) File { return File{Name: name, Data: pdf} }

	t.Run("valid", func(t *testing.T) {
		b := ValidateBatch([]File{file("a.pdf"), file("b.pdf")}, "")
		assert.True(t, b.Valid())
		assert.NoError(t, b.Err())
		assert.Len(t, b.Results, 2)
		assert.Equal(t, int64(2*len(pdf)), b.TotalSize)
	})

	tests := []struct {
		name  string
		files []File
		want  string
	}{
		{"none", nil, "no files selected"},
		{"too many", []File{file("1.pdf"), file("2.pdf"), file("3.pdf"), file("4.pdf"), file("5.pdf"), file("6.pdf")}, "maximum allowed: 5"},
		{"duplicates", []File{file("a.pdf"), file("a.pdf"), file("a.pdf")}, "duplicate files detected: a.pdf"},
		{"one bad file", []File{file("a.pdf"), {Name: "b.pdf"}}, "b.pdf: file is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ValidateBatch(tt.files, "")
			assert.False(t, b.Valid())
			err := b.Err()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidFile)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("total size", func(t *testing.T) {
		big := append(append([]byte{}, pngData...), make([]byte, MaxFileSize-len(pngData))...)
		b := ValidateBatch([]File{{Name: "a.png", Data: big}, {Name: "b.png", Data: big}, {Name: "c.png", Data: big}}, "")
		assert.Contains(t, strings.Join(b.Errors, "; "), "total file size (30 MB) is too large")
		for _, r := range b.Results {
			assert.True(t, r.Valid(), r.Errors)
		}
	})
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 Bytes"},
		{500, "500 Bytes"},
		{1536, "1.5 KB"},
		{MaxFileSize, "10 MB"},
		{5 << 30, "5 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSize(tt.in))
	}
}
