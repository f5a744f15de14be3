package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Tomlord1122/todo-service/internal/domain"
	"github.com/Tomlord1122/todo-service/internal/service"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temp file.
const multipartMemory = 8 << 20

// multipartOverhead allows for boundaries and part headers on top of the
// configured file size limit.
const multipartOverhead = 64 << 10

func (s *Server) uploadAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.cfg.Storage.MaxUploadBytes
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "Attachment is too large")
			return
		}
		respondWithError(w, http.StatusBadRequest, "Request must be multipart/form-data with a \"file\" field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondWithServiceError(w, r, domain.NewValidationError("file", "is required"), "Failed to upload attachment")
		return
	}
	defer file.Close()

	if maxBytes > 0 && header.Size > maxBytes {
		respondWithError(w, http.StatusRequestEntityTooLarge, "Attachment is too large")
		return
	}

	attachment, err := s.attachmentService.Upload(r.Context(), service.UploadRequest{
		TodoID:   chi.URLParam(r, "id"),
		FileName: header.Filename,
		Size:     header.Size,
		Content:  file,
	})
	if err != nil {
		var partialErr *domain.PartialFailureError
		if errors.As(err, &partialErr) {
			if rbErr := s.attachmentService.RollbackUpload(r.Context(), partialErr.Attachment); rbErr != nil {
				s.log.WithRequestID(middleware.GetReqID(r.Context())).WithError(rbErr).Error("upload rollback failed")
			}
		}
		s.respondWithServiceError(w, r, err, "Failed to upload attachment")
		return
	}

	respondWithJSON(w, http.StatusCreated, attachment)
}

func (s *Server) listAttachmentsHandler(w http.ResponseWriter, r *http.Request) {
	attachments, err := s.attachmentService.ListByTodo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to retrieve attachments")
		return
	}

	respondWithJSON(w, http.StatusOK, attachments)
}

func (s *Server) getAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	attachment, err := s.attachmentService.GetOne(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "attachmentId"))
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to retrieve attachment")
		return
	}

	respondWithJSON(w, http.StatusOK, attachment)
}

func (s *Server) downloadAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	attachment, content, err := s.attachmentService.OpenContent(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "attachmentId"))
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to retrieve attachment content")
		return
	}
	defer content.Close()

	contentType := mime.TypeByExtension(filepath.Ext(attachment.Name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(attachment.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": attachment.Name}))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content); err != nil {
		s.log.WithRequestID(middleware.GetReqID(r.Context())).WithError(err).Warnw("attachment download interrupted",
			"attachment_id", attachment.ID)
	}
}

func (s *Server) deleteAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	err := s.attachmentService.Delete(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "attachmentId"))
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to delete attachment")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
