package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Track categories.
const (
	CategorySong    = "song"
	CategoryPodcast = "podcast"
)

// Track represents a catalog track.
type Track struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Artist          string    `json:"artist"`
	Album           string    `json:"album"`
	CoverURL        string    `json:"coverUrl"`
	AudioURL        string    `json:"audioUrl"`
	Duration        string    `json:"duration"`          // display form, "M:SS"
	DurationSeconds int       `json:"durationInSeconds"` // derived from Duration
	Category        string    `json:"category"`
	Genre           string    `json:"genre"`
	Plays           int64     `json:"plays"`
	Likes           int64     `json:"likes"`
	UploaderID      int64     `json:"uploaderId"`
	Published       bool      `json:"published"`
	ExternalID      string    `json:"externalId,omitempty"` // external-catalog id, unique when set
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

var durationPattern = regexp.MustCompile(`^\d+:\d{2}$`)

// ParseDuration converts a "M:SS" display duration into whole seconds.
// Minutes may have any number of digits; seconds must be two digits
// below 60.
func ParseDuration(s string) (int, error) {
	if !durationPattern.MatchString(s) {
		return 0, fmt.Errorf("duration %q does not match minutes:SS", s)
	}
	parts := strings.SplitN(s, ":", 2)
	minutes, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in duration %q: %w", s, err)
	}
	seconds, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid seconds in duration %q: %w", s, err)
	}
	if seconds > 59 {
		return 0, fmt.Errorf("duration %q has seconds >= 60", s)
	}
	return minutes*60 + seconds, nil
}

// ValidCategory reports whether c names a known track category.
func ValidCategory(c string) bool {
	return c == CategorySong || c == CategoryPodcast
}
