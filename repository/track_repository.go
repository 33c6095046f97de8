package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"melodex/model"
)

// TrackFilter narrows and pages a track listing.
type TrackFilter struct {
	Category           string
	Genre              string
	Query              string // free-text match across title/artist/album
	IncludeUnpublished bool
	Page               int
	Limit              int
	Sort               string // field name, "-" prefix for descending
}

// TrackRepository defines the interface for track data operations.
type TrackRepository interface {
	CreateTrack(ctx context.Context, track *model.Track) (int64, error)
	GetTrackByID(ctx context.Context, id int64) (*model.Track, error)
	ListTracks(ctx context.Context, filter TrackFilter) ([]*model.Track, int64, error)
	UpdateTrack(ctx context.Context, track *model.Track) error
	DeleteTrack(ctx context.Context, id int64) error

	// Counter mutations are single-statement atomic updates, never
	// fetch-mutate-store.
	IncrementPlays(ctx context.Context, id int64) error
	AdjustLikes(ctx context.Context, id int64, delta int) error
}

// Sortable track columns, keyed by the API field name.
var trackSortColumns = map[string]string{
	"createdAt": "created_at",
	"title":     "title",
	"artist":    "artist",
	"plays":     "plays",
	"likes":     "likes",
	"duration":  "duration_seconds",
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	db *sql.DB
}

// NewMySQLTrackRepository creates a new mysqlTrackRepository.
func NewMySQLTrackRepository(db *sql.DB) TrackRepository {
	return &mysqlTrackRepository{db: db}
}

const trackColumns = "id, title, artist, album, cover_url, audio_url, duration, duration_seconds, category, genre, plays, likes, uploader_id, published, external_id, created_at, updated_at"

func scanTrack(row interface{ Scan(...interface{}) error }) (*model.Track, error) {
	track := &model.Track{}
	var externalID sql.NullString
	err := row.Scan(&track.ID, &track.Title, &track.Artist, &track.Album, &track.CoverURL, &track.AudioURL,
		&track.Duration, &track.DurationSeconds, &track.Category, &track.Genre, &track.Plays, &track.Likes,
		&track.UploaderID, &track.Published, &externalID, &track.CreatedAt, &track.UpdatedAt)
	if err != nil {
		return nil, err
	}
	track.ExternalID = externalID.String
	return track, nil
}

func nullableExternalID(id string) sql.NullString {
	if id == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: id, Valid: true}
}

// CreateTrack adds a new track to the catalog.
func (r *mysqlTrackRepository) CreateTrack(ctx context.Context, track *model.Track) (int64, error) {
	query := `INSERT INTO tracks (title, artist, album, cover_url, audio_url, duration, duration_seconds, category, genre, uploader_id, published, external_id)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		track.Title, track.Artist, track.Album, track.CoverURL, track.AudioURL,
		track.Duration, track.DurationSeconds, track.Category, track.Genre,
		track.UploaderID, track.Published, nullableExternalID(track.ExternalID))
	if err != nil {
		if isDuplicateErr(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("failed to insert track: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for track: %w", err)
	}
	return id, nil
}

// GetTrackByID retrieves a track by its ID. Returns (nil, nil) when
// the track does not exist.
func (r *mysqlTrackRepository) GetTrackByID(ctx context.Context, id int64) (*model.Track, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE id = ?"
	track, err := scanTrack(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan track by ID %d: %w", id, err)
	}
	return track, nil
}

func buildTrackWhere(filter TrackFilter) (string, []interface{}) {
	clauses := make([]string, 0, 4)
	args := make([]interface{}, 0, 6)

	if !filter.IncludeUnpublished {
		clauses = append(clauses, "published = 1")
	}
	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Genre != "" {
		clauses = append(clauses, "genre = ?")
		args = append(args, filter.Genre)
	}
	if filter.Query != "" {
		clauses = append(clauses, "(title LIKE ? OR artist LIKE ? OR album LIKE ?)")
		like := "%" + filter.Query + "%"
		args = append(args, like, like, like)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func trackOrderBy(sort string) string {
	direction := "ASC"
	if strings.HasPrefix(sort, "-") {
		direction = "DESC"
		sort = sort[1:]
	}
	column, ok := trackSortColumns[sort]
	if !ok {
		return " ORDER BY created_at DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, direction)
}

// ListTracks returns a filtered, sorted page of tracks plus the total
// count of matching rows.
func (r *mysqlTrackRepository) ListTracks(ctx context.Context, filter TrackFilter) ([]*model.Track, int64, error) {
	where, args := buildTrackWhere(filter)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tracks"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tracks: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	query := "SELECT " + trackColumns + " FROM tracks" + where + trackOrderBy(filter.Sort) + " LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan track in ListTracks: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error during rows iteration in ListTracks: %w", err)
	}
	return tracks, total, nil
}

// UpdateTrack updates the editable metadata fields of a track. Counters
// are excluded; they have their own atomic mutations.
func (r *mysqlTrackRepository) UpdateTrack(ctx context.Context, track *model.Track) error {
	query := `UPDATE tracks
	           SET title = ?, artist = ?, album = ?, cover_url = ?, audio_url = ?, duration = ?, duration_seconds = ?,
	               category = ?, genre = ?, published = ?, external_id = ?, updated_at = NOW()
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		track.Title, track.Artist, track.Album, track.CoverURL, track.AudioURL,
		track.Duration, track.DurationSeconds, track.Category, track.Genre,
		track.Published, nullableExternalID(track.ExternalID), track.ID)
	if err != nil {
		if isDuplicateErr(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update track %d: %w", track.ID, err)
	}
	return nil
}

// DeleteTrack hard-deletes a track. Like-set rows cascade at the
// storage level; playlist memberships are purged by the caller first.
func (r *mysqlTrackRepository) DeleteTrack(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM tracks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete track %d: %w", id, err)
	}
	return nil
}

// IncrementPlays bumps the play counter.
func (r *mysqlTrackRepository) IncrementPlays(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE tracks SET plays = plays + 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to increment plays for track %d: %w", id, err)
	}
	return nil
}

// AdjustLikes moves the like counter by delta, floored at zero.
func (r *mysqlTrackRepository) AdjustLikes(ctx context.Context, id int64, delta int) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE tracks SET likes = GREATEST(CAST(likes AS SIGNED) + ?, 0) WHERE id = ?", delta, id)
	if err != nil {
		return fmt.Errorf("failed to adjust likes for track %d: %w", id, err)
	}
	return nil
}
