package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/dvloznov/tax-tracker/internal/api/middleware"
	"github.com/dvloznov/tax-tracker/internal/app"
	"github.com/dvloznov/tax-tracker/internal/docs"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/dvloznov/tax-tracker/internal/gcsuploader"
	"github.com/dvloznov/tax-tracker/internal/jobs"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// multipartOverhead is the slack allowed on top of the file bytes for
// boundaries and form fields.
const multipartOverhead = 1 << 20

// DocumentsHandler handles document uploads.
type DocumentsHandler struct {
	app        *app.App
	archive    gcsuploader.Archive
	publisher  jobs.Publisher
	maxRetries int
	log        zerolog.Logger
}

// NewDocumentsHandler creates a new documents handler.
func NewDocumentsHandler(a *app.App, archive gcsuploader.Archive, publisher jobs.Publisher, maxRetries int, log zerolog.Logger) *DocumentsHandler {
	return &DocumentsHandler{
		app:        a,
		archive:    archive,
		publisher:  publisher,
		maxRetries: maxRetries,
		log:        log,
	}
}

// ListDocuments handles GET /api/documents
func (h *DocumentsHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	documents := h.app.UploadedFiles()

	var userType domain.UserType
	if p := h.app.Profile(); p != nil {
		userType = p.UserType
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents":     documents,
		"count":         len(documents),
		"documentTypes": domain.DocumentTypesFor(userType),
	})
}

// uploadedJob is one accepted file in the upload response.
type uploadedJob struct {
	UploadID string   `json:"uploadId"`
	JobID    string   `json:"jobId"`
	FileName string   `json:"fileName"`
	Warnings []string `json:"warnings,omitempty"`
}

// UploadDocuments handles POST /api/documents
//
// The multipart form carries up to docs.MaxFilesPerUpload parts named
// "files" and an optional "documentType". Every file is validated before
// any is archived; each accepted file gets its own extraction job.
func (h *DocumentsHandler) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, docs.MaxBatchSize+multipartOverhead)
	if err := r.ParseMultipartForm(docs.MaxBatchSize + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Upload is too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	docType := domain.ParseDocumentType(r.FormValue("documentType"))

	files, err := readParts(r.MultipartForm.File["files"])
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read upload")
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read uploaded files")
		return
	}

	batch := docs.ValidateBatch(files, docType)
	if !batch.Valid() {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":      "Upload rejected",
			"validation": batch,
		})
		return
	}

	accepted := make([]uploadedJob, 0, len(files))
	for i, f := range files {
		res := batch.Results[i]

		uri, err := h.archive.Put(ctx, f.Name, res.Info.MIMEType, f.Data)
		if err != nil {
			h.log.Error().Err(err).Str("file", f.Name).Msg("Failed to archive document")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to archive document")
			return
		}

		jobID := uuid.New().String()
		upload, err := h.app.RecordUpload(ctx, domain.UploadedFile{
			FileName:     f.Name,
			MIMEType:     res.Info.MIMEType,
			Size:         res.Info.Size,
			DocumentType: docType,
			ArchiveURI:   uri,
			JobID:        jobID,
		})
		if err != nil {
			writeAppError(w, h.log, err, "Failed to save document metadata")
			return
		}

		job := &jobs.ExtractDocumentJob{
			JobID:        jobID,
			UploadID:     upload.ID,
			ArchiveURI:   uri,
			FileName:     f.Name,
			MIMEType:     res.Info.MIMEType,
			DocumentType: docType,
			MaxRetries:   h.maxRetries,
		}
		if err := h.publisher.PublishExtractDocument(ctx, job); err != nil {
			h.log.Error().Err(err).Str("upload_id", upload.ID).Msg("Failed to enqueue extraction job")
			if uerr := h.app.UpdateUploadStatus(ctx, upload.ID, domain.FileFailed, "could not be queued"); uerr != nil {
				h.log.Warn().Err(uerr).Str("upload_id", upload.ID).Msg("Failed to mark upload failed")
			}
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue extraction job")
			return
		}

		h.log.Info().
			Str("job_id", job.JobID).
			Str("upload_id", upload.ID).
			Str("archive_uri", uri).
			Msg("Extraction job enqueued")

		accepted = append(accepted, uploadedJob{
			UploadID: upload.ID,
			JobID:    job.JobID,
			FileName: f.Name,
			Warnings: res.Warnings,
		})
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"uploads":      accepted,
		"documentType": docType,
	})
}

// DeleteDocument handles DELETE /api/documents/{id}
func (h *DocumentsHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.app.RemoveUpload(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, h.log, err, "Failed to remove document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func readParts(headers []*multipart.FileHeader) ([]docs.File, error) {
	files := make([]docs.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		files = append(files, docs.File{Name: fh.Filename, Data: data})
	}
	return files, nil
}
