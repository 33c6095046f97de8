package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"melodex/apperr"
	"melodex/logger"
	"melodex/model"
)

// PlaylistRequest carries the editable playlist fields.
type PlaylistRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	CoverURL    *string `json:"coverImage"`
	IsPublic    *bool   `json:"isPublic"`
}

// ListPlaylistsHandler returns playlists owned by the principal or
// flagged public, newest first.
func (h *APIHandler) ListPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())
	p := parsePagination(r)

	playlists, total, err := h.playlistRepo.ListVisible(r.Context(), principal.UserID, p.Page, p.Limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, listPayload("playlists", playlists, total, p))
}

// GetPlaylistHandler returns one playlist. Private playlists are
// visible only to their owner (or an admin).
func (h *APIHandler) GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())

	playlistID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, err)
		return
	}

	playlist, err := h.playlistRepo.GetPlaylistByID(r.Context(), playlistID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if playlist == nil {
		h.respondError(w, apperr.NotFound("playlist"))
		return
	}

	if !playlist.IsPublic {
		if err := h.authorizer.RequireOwnership(principal, playlist.OwnerID); err != nil {
			h.respondError(w, err)
			return
		}
	}

	respondData(w, http.StatusOK, map[string]interface{}{"playlist": playlist})
}

// CreatePlaylistHandler creates a playlist owned by the principal.
func (h *APIHandler) CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())

	var req PlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}
	if req.Name == nil || len(strings.TrimSpace(*req.Name)) < 1 {
		h.respondError(w, apperr.Validation("invalid playlist",
			apperr.FieldError{Field: "name", Message: "name is required"}))
		return
	}

	playlist := &model.Playlist{
		Name:    strings.TrimSpace(*req.Name),
		OwnerID: principal.UserID,
	}
	if req.Description != nil {
		playlist.Description = *req.Description
	}
	if req.CoverURL != nil {
		playlist.CoverURL = *req.CoverURL
	}
	if req.IsPublic != nil {
		playlist.IsPublic = *req.IsPublic
	}

	playlistID, err := h.playlistRepo.CreatePlaylist(r.Context(), playlist)
	if err != nil {
		h.respondError(w, err)
		return
	}
	playlist.ID = playlistID

	logger.Info("[CreatePlaylist] playlist created", logger.Int64("playlistId", playlistID),
		logger.Int64("ownerId", principal.UserID))
	respondData(w, http.StatusCreated, map[string]interface{}{"playlist": playlist})
}

// ownedPlaylist loads a playlist and checks the principal owns it.
func (h *APIHandler) ownedPlaylist(r *http.Request, playlistID int64) (*model.Playlist, error) {
	playlist, err := h.playlistRepo.GetPlaylistByID(r.Context(), playlistID)
	if err != nil {
		return nil, err
	}
	if playlist == nil {
		return nil, apperr.NotFound("playlist")
	}
	if err := h.authorizer.RequireOwnership(principalFrom(r.Context()), playlist.OwnerID); err != nil {
		return nil, err
	}
	return playlist, nil
}

// UpdatePlaylistHandler applies a partial update to an owned playlist.
func (h *APIHandler) UpdatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlistID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, err)
		return
	}

	var req PlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}

	playlist, err := h.ownedPlaylist(r, playlistID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if req.Name != nil {
		if len(strings.TrimSpace(*req.Name)) < 1 {
			h.respondError(w, apperr.Validation("invalid playlist",
				apperr.FieldError{Field: "name", Message: "name cannot be empty"}))
			return
		}
		playlist.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		playlist.Description = *req.Description
	}
	if req.CoverURL != nil {
		playlist.CoverURL = *req.CoverURL
	}
	if req.IsPublic != nil {
		playlist.IsPublic = *req.IsPublic
	}

	if err := h.playlistRepo.UpdatePlaylist(r.Context(), playlist); err != nil {
		h.respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"playlist": playlist})
}

// DeletePlaylistHandler removes an owned playlist.
func (h *APIHandler) DeletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlistID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, err)
		return
	}

	if _, err := h.ownedPlaylist(r, playlistID); err != nil {
		h.respondError(w, err)
		return
	}

	if err := h.playlistRepo.DeletePlaylist(r.Context(), playlistID); err != nil {
		h.respondError(w, err)
		return
	}

	logger.Info("[DeletePlaylist] playlist deleted", logger.Int64("playlistId", playlistID))
	respondMessage(w, http.StatusOK, "playlist deleted")
}

// AddPlaylistTrackHandler adds a track to an owned playlist. Adding a
// track that is already present is a no-op, not a duplicate.
func (h *APIHandler) AddPlaylistTrackHandler(w http.ResponseWriter, r *http.Request) {
	playlistID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, err)
		return
	}
	trackID, err := pathID(r, "trackId")
	if err != nil {
		h.respondError(w, err)
		return
	}

	if _, err := h.ownedPlaylist(r, playlistID); err != nil {
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

	added, err := h.playlistRepo.AddTrack(r.Context(), playlistID, trackID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	playlist, err := h.playlistRepo.GetPlaylistByID(r.Context(), playlistID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"added":    added,
		"playlist": playlist,
	})
}

// RemovePlaylistTrackHandler removes a track from an owned playlist.
func (h *APIHandler) RemovePlaylistTrackHandler(w http.ResponseWriter, r *http.Request) {
	playlistID, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, err)
		return
	}
	trackID, err := pathID(r, "trackId")
	if err != nil {
		h.respondError(w, err)
		return
	}

	if _, err := h.ownedPlaylist(r, playlistID); err != nil {
		h.respondError(w, err)
		return
	}

	if err := h.playlistRepo.RemoveTrack(r.Context(), playlistID, trackID); err != nil {
		h.respondError(w, err)
		return
	}

	playlist, err := h.playlistRepo.GetPlaylistByID(r.Context(), playlistID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"playlist": playlist})
}
