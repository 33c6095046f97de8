package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"melodex/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlaylistRepository defines the interface for playlist data
// operations. Membership changes recompute the playlist's aggregate
// duration inside the same transaction, so a read immediately after a
// write observes the updated total.
type PlaylistRepository interface {
	CreatePlaylist(ctx context.Context, playlist *model.Playlist) (int64, error)
	GetPlaylistByID(ctx context.Context, id int64) (*model.Playlist, error)
	ListVisible(ctx context.Context, userID int64, page, limit int) ([]*model.Playlist, int64, error)
	UpdatePlaylist(ctx context.Context, playlist *model.Playlist) error
	DeletePlaylist(ctx context.Context, id int64) error

	// AddTrack is idempotent: adding an already-present track is a
	// no-op and reports false.
	AddTrack(ctx context.Context, playlistID, trackID int64) (bool, error)
	RemoveTrack(ctx context.Context, playlistID, trackID int64) error

	// PurgeTrack removes a track from every playlist that contains it,
	// recomputing each affected aggregate. Used when a track is
	// deleted from the catalog.
	PurgeTrack(ctx context.Context, trackID int64) error
}

// gormPlaylistRepository implements PlaylistRepository on GORM.
type gormPlaylistRepository struct {
	db *gorm.DB
}

// NewGormPlaylistRepository creates a new gormPlaylistRepository.
func NewGormPlaylistRepository(db *gorm.DB) PlaylistRepository {
	return &gormPlaylistRepository{db: db}
}

// CreatePlaylist inserts a new playlist owned by playlist.OwnerID.
func (r *gormPlaylistRepository) CreatePlaylist(ctx context.Context, playlist *model.Playlist) (int64, error) {
	if playlist.TotalDuration == "" {
		playlist.TotalDuration = model.FormatTotalDuration(0)
	}
	if err := r.db.WithContext(ctx).Create(playlist).Error; err != nil {
		return 0, fmt.Errorf("failed to create playlist: %w", err)
	}
	return playlist.ID, nil
}

// GetPlaylistByID retrieves a playlist with its membership entries.
// Returns (nil, nil) when the playlist does not exist.
func (r *gormPlaylistRepository) GetPlaylistByID(ctx context.Context, id int64) (*model.Playlist, error) {
	playlist := &model.Playlist{}
	err := r.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("added_at ASC") }).
		First(playlist, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get playlist %d: %w", id, err)
	}
	return playlist, nil
}

// ListVisible returns playlists owned by userID or flagged public,
// newest first, plus the total count.
func (r *gormPlaylistRepository) ListVisible(ctx context.Context, userID int64, page, limit int) ([]*model.Playlist, int64, error) {
	base := r.db.WithContext(ctx).Model(&model.Playlist{}).
		Where("owner_id = ? OR is_public = ?", userID, true)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count playlists: %w", err)
	}

	var playlists []*model.Playlist
	err := base.Order("created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&playlists).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list playlists: %w", err)
	}
	return playlists, total, nil
}

// UpdatePlaylist saves the editable fields of a playlist.
func (r *gormPlaylistRepository) UpdatePlaylist(ctx context.Context, playlist *model.Playlist) error {
	err := r.db.WithContext(ctx).Model(playlist).
		Select("name", "description", "cover_url", "is_public").
		Updates(playlist).Error
	if err != nil {
		return fmt.Errorf("failed to update playlist %d: %w", playlist.ID, err)
	}
	return nil
}

// DeletePlaylist removes a playlist and its membership entries in one
// transaction.
func (r *gormPlaylistRepository) DeletePlaylist(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", id).Delete(&model.PlaylistTrack{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Playlist{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete playlist %d: %w", id, err)
	}
	return nil
}

// recomputeDuration refreshes the playlist's aggregate duration from
// the durations of its current members. Must run inside tx.
func recomputeDuration(tx *gorm.DB, playlistID int64) error {
	var totalSeconds int64
	err := tx.Raw(`SELECT COALESCE(SUM(t.duration_seconds), 0)
		FROM playlist_tracks pt
		JOIN tracks t ON t.id = pt.track_id
		WHERE pt.playlist_id = ?`, playlistID).Scan(&totalSeconds).Error
	if err != nil {
		return fmt.Errorf("failed to sum playlist %d durations: %w", playlistID, err)
	}

	return tx.Model(&model.Playlist{}).Where("id = ?", playlistID).
		Update("total_duration", model.FormatTotalDuration(int(totalSeconds))).Error
}

// AddTrack appends a membership entry unless the track is already
// present, then recomputes the aggregate. The unique (playlist, track)
// index makes the insert-if-absent atomic.
func (r *gormPlaylistRepository) AddTrack(ctx context.Context, playlistID, trackID int64) (bool, error) {
	inserted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := &model.PlaylistTrack{
			PlaylistID: playlistID,
			TrackID:    trackID,
			AddedAt:    time.Now(),
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected > 0
		if !inserted {
			return nil
		}
		return recomputeDuration(tx, playlistID)
	})
	if err != nil {
		return false, fmt.Errorf("failed to add track %d to playlist %d: %w", trackID, playlistID, err)
	}
	return inserted, nil
}

// RemoveTrack deletes all membership entries for the track and
// recomputes the aggregate.
func (r *gormPlaylistRepository) RemoveTrack(ctx context.Context, playlistID, trackID int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("playlist_id = ? AND track_id = ?", playlistID, trackID).
			Delete(&model.PlaylistTrack{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return recomputeDuration(tx, playlistID)
	})
	if err != nil {
		return fmt.Errorf("failed to remove track %d from playlist %d: %w", trackID, playlistID, err)
	}
	return nil
}

// PurgeTrack removes the track from all playlists and recomputes each
// affected playlist's aggregate, all in one transaction.
func (r *gormPlaylistRepository) PurgeTrack(ctx context.Context, trackID int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var playlistIDs []int64
		err := tx.Model(&model.PlaylistTrack{}).
			Where("track_id = ?", trackID).
			Distinct("playlist_id").
			Pluck("playlist_id", &playlistIDs).Error
		if err != nil {
			return err
		}
		if len(playlistIDs) == 0 {
			return nil
		}

		if err := tx.Where("track_id = ?", trackID).Delete(&model.PlaylistTrack{}).Error; err != nil {
			return err
		}
		for _, id := range playlistIDs {
			if err := recomputeDuration(tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to purge track %d from playlists: %w", trackID, err)
	}
	return nil
}
