package gcsuploader

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/tax-tracker/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	at := time.Date(2024, 4, 1, 23, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))

	tests := []struct {
		name string
		file string
		want string
	}{
		{"plain", "form16.pdf", "uploads/2024/04/01/abc-form16.pdf"},
		{"spaces and unicode", "Salary Slip ₹ April.pdf", "uploads/2024/04/01/abc-Salary_Slip_April.pdf"},
		{"directories dropped", "../../etc/passwd", "uploads/2024/04/01/abc-passwd"},
		{"empty", "", "uploads/2024/04/01/abc-document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectName("uploads", at, "abc", tt.file))
		})
	}
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://docs/uploads/a.pdf", "docs", "uploads/a.pdf", false},
		{"gs://docs", "", "", true},
		{"gs:///a.pdf", "", "", true},
		{"s3://docs/a.pdf", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantObject, object)
		})
	}
}

func TestFileNameFromURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"gs://bucket/folder/file.pdf", "file.pdf"},
		{"mem://uploads/2024/04/01/id-slip.png", "id-slip.png"},
		{"gs://bucket", "bucket"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileNameFromURI(tt.uri))
	}
}

func TestMemoryArchive(t *testing.T) {
	ctx := context.Background()
	a := NewMemoryArchive(clock.FixedClock{T: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)})

	data := []byte("%PDF-1.4")
	uri, err := a.Put(ctx, "form16.pdf", "application/pdf", data)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "mem://uploads/2024/05/02/"))
	assert.True(t, strings.HasSuffix(uri, "-form16.pdf"))

	data[0] = 'X'
	got, err := a.Get(ctx, uri)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(got))
	assert.Equal(t, 1, a.Len())

	_, err = a.Get(ctx, "mem://missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
