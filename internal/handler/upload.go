package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/api"
	"github.com/xenking/storefront/internal/domain/upload"
)

const (
	msgNoFile        = "No file received."
	msgUploadParse   = "Error processing file upload."
	msgUploadFailed  = "Upload failed."
	detailsNoConfig  = "Server configuration error: object storage credentials are missing or invalid."
	detailsTransfer  = "Failed to upload file to object storage."
	msgUploadTooBig  = "File is too large."
	uploadFieldName  = "file"
	allowUploadVerbs = "POST"
)

// Upload accepts a multipart form with a single "file" part, stores it and
// answers with its public URL.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, allowUploadVerbs)
		return
	}

	ctx := r.Context()
	lg := zctx.From(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	err := r.ParseMultipartForm(h.maxMemory)
	if r.MultipartForm != nil {
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				lg.Warn("Remove multipart temp files", zap.Error(err))
			}
		}()
	}
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrNotMultipart):
			writeError(w, http.StatusBadRequest, msgNoFile)
		case errors.As(err, &tooBig):
			writeError(w, http.StatusRequestEntityTooLarge, msgUploadTooBig)
		default:
			lg.Error("Parse multipart form", zap.Error(err))
			writeError(w, http.StatusInternalServerError, msgUploadParse)
		}
		return
	}

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		if !errors.Is(err, http.ErrMissingFile) {
			lg.Warn("Open uploaded file", zap.Error(err))
		}
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer func() { _ = file.Close() }()

	res, err := h.uploads.Upload(ctx, upload.File{
		Name:        header.Filename,
		ContentType: partContentType(header),
		Content:     file,
	})
	if err != nil {
		h.uploadError(w, r, err)
		return
	}

	lg.Info("File uploaded",
		zap.String("key", res.Key),
		zap.Int64("size", res.Size),
	)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { api.EncodeURL(e, res.URL) })
}

func (h *Handler) uploadError(w http.ResponseWriter, r *http.Request, err error) {
	lg := zctx.From(r.Context())

	details := detailsTransfer
	switch {
	case errors.Is(err, upload.ErrNoFile):
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	case errors.Is(err, upload.ErrStoreNotConfigured):
		details = detailsNoConfig
		lg.Error("Image store is not configured", zap.Error(err))
	default:
		lg.Error("Upload to image store", zap.Error(err))
	}

	writeJSON(w, http.StatusInternalServerError, func(e *jx.Encoder) {
		api.EncodeErrorDetails(e, msgUploadFailed, details)
	})
}

func partContentType(h *multipart.FileHeader) string {
	if h.Header == nil {
		return ""
	}
	return h.Header.Get("Content-Type")
}
