package model

import (
	"fmt"
	"time"
)

// Playlist represents a user-curated playlist.
type Playlist struct {
	ID            int64           `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"size:100;not null" json:"name"`
	Description   string          `gorm:"size:500" json:"description"`
	CoverURL      string          `gorm:"size:512" json:"coverUrl"`
	OwnerID       int64           `gorm:"index;not null" json:"ownerId"`
	IsPublic      bool            `gorm:"not null;default:false" json:"isPublic"`
	TotalDuration string          `gorm:"size:20;not null;default:'0m'" json:"totalDuration"`
	Entries       []PlaylistTrack `gorm:"foreignKey:PlaylistID" json:"entries,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// PlaylistTrack is one membership entry of a playlist. The composite
// unique index keeps a track from appearing twice in the same playlist.
type PlaylistTrack struct {
	ID         int64     `gorm:"primaryKey" json:"-"`
	PlaylistID int64     `gorm:"uniqueIndex:uq_playlist_track;not null" json:"playlistId"`
	TrackID    int64     `gorm:"uniqueIndex:uq_playlist_track;not null" json:"trackId"`
	AddedAt    time.Time `gorm:"not null" json:"addedAt"`
}

// FormatTotalDuration renders a second count as "{h}h {m}m", or "{m}m"
// when under an hour.
func FormatTotalDuration(totalSeconds int) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
