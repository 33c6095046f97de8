package server

import (
	"net/http"

	"melodex/apperr"
	"melodex/logger"
)

const maxUploadSize = 50 << 20 // 50 MiB

var uploadFolders = map[string]struct {
	folder       string
	contentTypes map[string]bool
}{
	"cover": {
		folder: "covers",
		contentTypes: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"image/webp": true,
		},
	},
	"audio": {
		folder: "audio",
		contentTypes: map[string]bool{
			"audio/mpeg": true,
			"audio/mp4":  true,
			"audio/ogg":  true,
			"audio/flac": true,
		},
	},
}

// uploadHandler stores a multipart file in blob storage under the
// given logical folder and returns its public locator.
func (h *APIHandler) uploadHandler(kind string) http.HandlerFunc {
	spec := uploadFolders[kind]
	return func(w http.ResponseWriter, r *http.Request) {
		if h.blobStore == nil {
			h.respondError(w, apperr.New(apperr.KindUpstream, "blob storage unavailable"))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			h.respondError(w, apperr.New(apperr.KindValidation, "invalid or oversized multipart body"))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			h.respondError(w, apperr.Validation("invalid upload",
				apperr.FieldError{Field: "file", Message: "file field is required"}))
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if !spec.contentTypes[contentType] {
			h.respondError(w, apperr.Validation("invalid upload",
				apperr.FieldError{Field: "file", Message: "unsupported content type " + contentType}))
			return
		}

		stored, err := h.blobStore.Store(r.Context(), file, header.Size, spec.folder, header.Filename, contentType)
		if err != nil {
			h.respondError(w, apperr.Wrap(apperr.KindUpstream, "failed to store file", err))
			return
		}

		logger.Info("[Upload] file stored", logger.String("kind", kind),
			logger.String("path", stored.Path), logger.Int64("size", header.Size))
		respondData(w, http.StatusCreated, stored)
	}
}

// UploadCoverHandler stores a cover image (admin only).
func (h *APIHandler) UploadCoverHandler() http.HandlerFunc {
	return h.uploadHandler("cover")
}

// UploadAudioHandler stores an audio file (admin only).
func (h *APIHandler) UploadAudioHandler() http.HandlerFunc {
	return h.uploadHandler("audio")
}
