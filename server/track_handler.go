package server

import (
	"encoding/json"
	"net/http"

	"melodex/apperr"
	"melodex/logger"
	"melodex/model"
	"melodex/repository"
)

// TrackRequest carries the editable track fields. Pointer fields
// distinguish "not provided" from zero values on partial updates.
type TrackRequest struct {
	Title      *string `json:"title"`
	Artist     *string `json:"artist"`
	Album      *string `json:"album"`
	CoverURL   *string `json:"coverUrl"`
	AudioURL   *string `json:"audioUrl"`
	Duration   *string `json:"duration"`
	Category   *string `json:"category"`
	Genre      *string `json:"genre"`
	Published  *bool   `json:"published"`
	ExternalID *string `json:"externalId"`
}

// ListTracksHandler returns a filtered, paginated track listing.
// Unpublished tracks are visible only to admins who ask for them.
func (h *APIHandler) ListTracksHandler(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())
	p := parsePagination(r)
	query := r.URL.Query()

	filter := repository.TrackFilter{
		Category: query.Get("category"),
		Genre:    query.Get("genre"),
		Query:    query.Get("q"),
		Page:     p.Page,
		Limit:    p.Limit,
		Sort:     query.Get("sort"),
	}
	if principal.IsAdmin() && query.Get("includeUnpublished") == "true" {
		filter.IncludeUnpublished = true
	}

	tracks, total, err := h.trackRepo.ListTracks(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, listPayload("tracks", tracks, total, p))
}

// GetTrackHandler returns one track, annotated with whether the
// requesting principal has liked it. Anonymous callers always see
// liked=false.
func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, err)
		return
	}

	track, err := h.trackRepo.GetTrackByID(r.Context(), trackID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if track == nil {
		h.respondError(w, apperr.NotFound("track"))
		return
	}

	liked := false
	if principal := principalFrom(r.Context()); principal != nil {
		liked, err = h.userRepo.IsTrackLiked(r.Context(), principal.UserID, trackID)
		if err != nil {
			h.respondError(w, err)
			return
		}
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"track": track,
		"liked": liked,
	})
}

func applyTrackRequest(track *model.Track, req *TrackRequest) error {
	if req.Title != nil {
		track.Title = *req.Title
	}
	if req.Artist != nil {
		track.Artist = *req.Artist
	}
	if req.Album != nil {
		track.Album = *req.Album
	}
	if req.CoverURL != nil {
		track.CoverURL = *req.CoverURL
	}
	if req.AudioURL != nil {
		track.AudioURL = *req.AudioURL
	}
	if req.Category != nil {
		if !model.ValidCategory(*req.Category) {
			return apperr.Validation("invalid track",
				apperr.FieldError{Field: "category", Message: "category must be song or podcast"})
		}
		track.Category = *req.Category
	}
	if req.Genre != nil {
		track.Genre = *req.Genre
	}
	if req.Published != nil {
		track.Published = *req.Published
	}
	if req.ExternalID != nil {
		track.ExternalID = *req.ExternalID
	}
	if req.Duration != nil {
		// Any duration write recomputes the derived seconds value.
		seconds, err := model.ParseDuration(*req.Duration)
		if err != nil {
			return apperr.Validation("invalid track",
				apperr.FieldError{Field: "duration", Message: "duration must match minutes:SS"})
		}
		track.Duration = *req.Duration
		track.DurationSeconds = seconds
	}
	if track.Title == "" {
		return apperr.Validation("invalid track",
			apperr.FieldError{Field: "title", Message: "title is required"})
	}
	return nil
}

// CreateTrackHandler adds a catalog track (admin only).
func (h *APIHandler) CreateTrackHandler(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())

	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}
	if req.Duration == nil {
		h.respondError(w, apperr.Validation("invalid track",
			apperr.FieldError{Field: "duration", Message: "duration is required"}))
		return
	}

	track := &model.Track{
		Category:   model.CategorySong,
		UploaderID: principal.UserID,
	}
	if err := applyTrackRequest(track, &req); err != nil {
		h.respondError(w, err)
		return
	}

	trackID, err := h.trackRepo.CreateTrack(r.Context(), track)
	if err != nil {
		if err == repository.ErrDuplicate {
			h.respondError(w, apperr.New(apperr.KindConflict, "a track with this external id already exists"))
			return
		}
		h.respondError(w, err)
		return
	}
	track.ID = trackID

	logger.Info("[CreateTrack] track created", logger.Int64("trackId", trackID),
		logger.String("title", track.Title))
	respondData(w, http.StatusCreated, map[string]interface{}{"track": track})
}

// UpdateTrackHandler edits track metadata (admin only).
func (h *APIHandler) UpdateTrackHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, err)
		return
	}

	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}

	track, err := h.trackRepo.GetTrackByID(r.Context(), trackID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if track == nil {
		h.respondError(w, apperr.NotFound("track"))
		return
	}

	if err := applyTrackRequest(track, &req); err != nil {
		h.respondError(w, err)
		return
	}

	if err := h.trackRepo.UpdateTrack(r.Context(), track); err != nil {
		if err == repository.ErrDuplicate {
			h.respondError(w, apperr.New(apperr.KindConflict, "a track with this external id already exists"))
			return
		}
		h.respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"track": track})
}

// DeleteTrackHandler hard-deletes a track (admin only). Playlist
// memberships are purged first so no playlist is left referencing a
// missing track; a crash between the two phases leaves only the
// harmless state of a track with no memberships.
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, err)
		return
	}

	track, err := h.trackRepo.GetTrackByID(r.Context(), trackID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if track == nil {
		h.respondError(w, apperr.NotFound("track"))
		return
	}

	if err := h.playlistRepo.PurgeTrack(r.Context(), trackID); err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.trackRepo.DeleteTrack(r.Context(), trackID); err != nil {
		h.respondError(w, err)
		return
	}

	logger.Info("[DeleteTrack] track deleted", logger.Int64("trackId", trackID))
	respondMessage(w, http.StatusOK, "track deleted")
}

// PlayTrackHandler records one play-start event: an atomic counter
// bump on the track plus the caller's listening statistics.
func (h *APIHandler) PlayTrackHandler(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())

	trackID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, err)
		return
	}

	track, err := h.trackRepo.GetTrackByID(r.Context(), trackID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if track == nil {
		h.respondError(w, apperr.NotFound("track"))
		return
	}

	if err := h.trackRepo.IncrementPlays(r.Context(), trackID); err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.userRepo.RecordListening(r.Context(), principal.UserID, track.DurationSeconds); err != nil {
		h.respondError(w, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"plays": track.Plays + 1})
}

// LikeToggleHandler flips the principal's like on a track. The
// membership primitive reports whether it changed anything, and that
// fact drives the counter update, so two concurrent toggles cannot
// move the counter without moving the membership.
func (h *APIHandler) LikeToggleHandler(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())

	trackID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, err)
		return
	}

	track, err := h.trackRepo.GetTrackByID(r.Context(), trackID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if track == nil {
		h.respondError(w, apperr.NotFound("track"))
		return
	}

	inserted, err := h.userRepo.AddLikeIfAbsent(r.Context(), principal.UserID, trackID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	liked := true
	if inserted {
		if err := h.trackRepo.AdjustLikes(r.Context(), trackID, 1); err != nil {
			h.respondError(w, err)
			return
		}
	} else {
		removed, err := h.userRepo.RemoveLikeIfPresent(r.Context(), principal.UserID, trackID)
		if err != nil {
			h.respondError(w, err)
			return
		}
		liked = false
		if removed {
			if err := h.trackRepo.AdjustLikes(r.Context(), trackID, -1); err != nil {
				h.respondError(w, err)
				return
			}
		}
	}

	updated, err := h.trackRepo.GetTrackByID(r.Context(), trackID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	likes := track.Likes
	if updated != nil {
		likes = updated.Likes
	}

	logger.Debug("[LikeToggle] toggled", logger.Int64("userId", principal.UserID),
		logger.Int64("trackId", trackID), logger.Bool("liked", liked))
	respondData(w, http.StatusOK, map[string]interface{}{
		"liked": liked,
		"likes": likes,
	})
}

// LikedTracksHandler returns the ids of the principal's liked tracks.
func (h *APIHandler) LikedTracksHandler(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())

	ids, err := h.userRepo.GetLikedTrackIDs(r.Context(), principal.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"trackIds": ids})
}
