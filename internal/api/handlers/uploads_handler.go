package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/court-opinions/engine/internal/api/types"
	"github.com/court-opinions/engine/internal/services"
)

// multipartOverhead is allowed on top of the file size limit for part
// headers and boundaries.
const multipartOverhead = 1 << 20

type UploadsHandler struct {
	uploads  services.UploadService
	maxBytes int64
	timeout  time.Duration
}

func NewUploadsHandler(uploads services.UploadService, maxBytes int64, timeout time.Duration) *UploadsHandler {
	return &UploadsHandler{uploads: uploads, maxBytes: maxBytes, timeout: timeout}
}

// Upload streams the multipart "file" part into the import without buffering
// it in memory.
func (h *UploadsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "multipart form with a file field is required")
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeErrorStr(w, http.StatusBadRequest, "file field is required")
			return
		}
		if err != nil {
			writeErrorStr(w, http.StatusBadRequest, "malformed multipart body")
			return
		}
		if part.FormName() != "file" || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		summary, err := h.uploads.Upload(ctx, actor, id, part.FileName(), part)
		_ = part.Close()
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, summary)
		return
	}
}

func (h *UploadsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	summary, err := h.uploads.RemoveSource(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, summary)
}

func (h *UploadsHandler) CasesCount(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	n, err := h.uploads.CountCases(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, types.CaseCountResponse{ProjectID: id, TotalCases: n})
}
