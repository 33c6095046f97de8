package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"melodex/apperr"
	"melodex/logger"
	"melodex/model"
	"melodex/repository"
)

// CatalogSearchHandler proxies a search against the external catalog
// provider, consulting the Redis cache first.
func (h *APIHandler) CatalogSearchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.respondError(w, apperr.Validation("invalid search",
			apperr.FieldError{Field: "q", Message: "query is required"}))
		return
	}

	limit := 20
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 50 {
		limit = v
	}

	if h.searchCache != nil {
		if results, ok := h.searchCache.Get(r.Context(), query, limit); ok {
			respondData(w, http.StatusOK, map[string]interface{}{"results": results, "cached": true})
			return
		}
	}

	results, err := h.catalog.Search(r.Context(), query, limit)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if h.searchCache != nil {
		h.searchCache.Put(r.Context(), query, limit, results)
	}
	respondData(w, http.StatusOK, map[string]interface{}{"results": results, "cached": false})
}

// CatalogImportHandler imports an external-catalog track into the
// local catalog as an unpublished track (admin only). Re-importing the
// same external id is a conflict.
func (h *APIHandler) CatalogImportHandler(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())

	var req struct {
		ExternalID string `json:"externalId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}
	if req.ExternalID == "" {
		h.respondError(w, apperr.Validation("invalid import",
			apperr.FieldError{Field: "externalId", Message: "externalId is required"}))
		return
	}

	summaries, err := h.catalog.FetchByIDs(r.Context(), []string{req.ExternalID})
	if err != nil {
		h.respondError(w, err)
		return
	}
	if len(summaries) == 0 {
		h.respondError(w, apperr.NotFound("external track"))
		return
	}
	summary := summaries[0]

	seconds, err := model.ParseDuration(summary.Duration)
	if err != nil {
		h.respondError(w, apperr.Wrap(apperr.KindUpstream, "provider returned an invalid duration", err))
		return
	}

	track := &model.Track{
		Title:           summary.Title,
		Artist:          summary.Artist,
		Album:           summary.Album,
		CoverURL:        summary.CoverURL,
		Duration:        summary.Duration,
		DurationSeconds: seconds,
		Category:        model.CategorySong,
		Genre:           summary.Genre,
		UploaderID:      principal.UserID,
		Published:       false,
		ExternalID:      summary.ExternalID,
	}

	trackID, err := h.trackRepo.CreateTrack(r.Context(), track)
	if err != nil {
		if err == repository.ErrDuplicate {
			h.respondError(w, apperr.New(apperr.KindConflict, "track already imported"))
			return
		}
		h.respondError(w, err)
		return
	}
	track.ID = trackID

	logger.Info("[CatalogImport] track imported", logger.Int64("trackId", trackID),
		logger.String("externalId", summary.ExternalID))
	respondData(w, http.StatusCreated, map[string]interface{}{"track": track})
}
