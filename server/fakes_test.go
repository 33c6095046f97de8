package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"melodex/config"
	"melodex/core/auth"
	"melodex/core/catalog"
	"melodex/model"
	"melodex/repository"

	"github.com/gorilla/mux"
)

// In-memory repository fakes so handler tests run without MySQL.

type fakeUserRepo struct {
	mu    sync.Mutex
	seq   int64
	users map[int64]*model.User
	likes map[int64]map[int64]bool // userID -> trackID set
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users: make(map[int64]*model.User),
		likes: make(map[int64]map[int64]bool),
	}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email := strings.ToLower(user.Email)
	for _, u := range f.users {
		if u.Email == email {
			return 0, repository.ErrDuplicate
		}
	}
	f.seq++
	stored := *user
	stored.ID = f.seq
	stored.Email = email
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	f.users[stored.ID] = &stored
	return stored.ID, nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) ListUsers(_ context.Context, page, limit int) ([]*model.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]*model.User, 0, len(f.users))
	for _, u := range f.users {
		copied := *u
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []*model.User{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, userID int64, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.Name = name
	}
	return nil
}

func (f *fakeUserRepo) UpdateSettings(_ context.Context, userID int64, settings string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.Settings.String = settings
		u.Settings.Valid = true
	}
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, userID int64, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (f *fakeUserRepo) UpdateRoleAndTier(_ context.Context, userID int64, role, tier string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.Role = role
		u.Tier = tier
	}
	return nil
}

func (f *fakeUserRepo) UpgradeTier(_ context.Context, userID int64, since, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.Tier = model.TierPremium
		u.PremiumSince.Time = since
		u.PremiumSince.Valid = true
		u.PremiumUntil.Time = until
		u.PremiumUntil.Valid = true
	}
	return nil
}

func (f *fakeUserRepo) DeleteUser(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, userID)
	delete(f.likes, userID)
	return nil
}

func (f *fakeUserRepo) AddLikeIfAbsent(_ context.Context, userID, trackID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.likes[userID]
	if !ok {
		set = make(map[int64]bool)
		f.likes[userID] = set
	}
	if set[trackID] {
		return false, nil
	}
	set[trackID] = true
	return true, nil
}

func (f *fakeUserRepo) RemoveLikeIfPresent(_ context.Context, userID, trackID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.likes[userID]
	if !ok || !set[trackID] {
		return false, nil
	}
	delete(set, trackID)
	return true, nil
}

func (f *fakeUserRepo) GetLikedTrackIDs(_ context.Context, userID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0)
	for id := range f.likes[userID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeUserRepo) IsTrackLiked(_ context.Context, userID, trackID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.likes[userID][trackID], nil
}

func (f *fakeUserRepo) RecordListening(_ context.Context, userID int64, seconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.TotalPlays++
		u.TotalSeconds += int64(seconds)
	}
	return nil
}

type fakeTrackRepo struct {
	mu     sync.Mutex
	seq    int64
	tracks map[int64]*model.Track
}

func newFakeTrackRepo() *fakeTrackRepo {
	return &fakeTrackRepo{tracks: make(map[int64]*model.Track)}
}

func (f *fakeTrackRepo) CreateTrack(_ context.Context, track *model.Track) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if track.ExternalID != "" {
		for _, t := range f.tracks {
			if t.ExternalID == track.ExternalID {
				return 0, repository.ErrDuplicate
			}
		}
	}
	f.seq++
	stored := *track
	stored.ID = f.seq
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	f.tracks[stored.ID] = &stored
	return stored.ID, nil
}

func (f *fakeTrackRepo) GetTrackByID(_ context.Context, id int64) (*model.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tracks[id]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTrackRepo) ListTracks(_ context.Context, filter repository.TrackFilter) ([]*model.Track, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := make([]*model.Track, 0)
	for _, t := range f.tracks {
		if !filter.IncludeUnpublished && !t.Published {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		if filter.Genre != "" && t.Genre != filter.Genre {
			continue
		}
		if filter.Query != "" {
			q := strings.ToLower(filter.Query)
			if !strings.Contains(strings.ToLower(t.Title), q) &&
				!strings.Contains(strings.ToLower(t.Artist), q) &&
				!strings.Contains(strings.ToLower(t.Album), q) {
				continue
			}
		}
		copied := *t
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start >= len(matched) {
		return []*model.Track{}, total, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (f *fakeTrackRepo) UpdateTrack(_ context.Context, track *model.Track) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if track.ExternalID != "" {
		for id, t := range f.tracks {
			if id != track.ID && t.ExternalID == track.ExternalID {
				return repository.ErrDuplicate
			}
		}
	}
	if existing, ok := f.tracks[track.ID]; ok {
		updated := *track
		updated.Plays = existing.Plays
		updated.Likes = existing.Likes
		f.tracks[track.ID] = &updated
	}
	return nil
}

func (f *fakeTrackRepo) DeleteTrack(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tracks, id)
	return nil
}

func (f *fakeTrackRepo) IncrementPlays(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tracks[id]; ok {
		t.Plays++
	}
	return nil
}

func (f *fakeTrackRepo) AdjustLikes(_ context.Context, id int64, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tracks[id]; ok {
		t.Likes += int64(delta)
		if t.Likes < 0 {
			t.Likes = 0
		}
	}
	return nil
}

// fakePlaylistRepo recomputes aggregate durations from the track repo,
// mirroring what the SQL implementation does in its transactions.
type fakePlaylistRepo struct {
	mu        sync.Mutex
	seq       int64
	playlists map[int64]*model.Playlist
	entries   map[int64][]model.PlaylistTrack // playlistID -> entries
	tracks    *fakeTrackRepo
}

func newFakePlaylistRepo(tracks *fakeTrackRepo) *fakePlaylistRepo {
	return &fakePlaylistRepo{
		playlists: make(map[int64]*model.Playlist),
		entries:   make(map[int64][]model.PlaylistTrack),
		tracks:    tracks,
	}
}

func (f *fakePlaylistRepo) recompute(playlistID int64) {
	total := 0
	for _, e := range f.entries[playlistID] {
		if t, _ := f.tracks.GetTrackByID(context.Background(), e.TrackID); t != nil {
			total += t.DurationSeconds
		}
	}
	if p, ok := f.playlists[playlistID]; ok {
		p.TotalDuration = model.FormatTotalDuration(total)
	}
}

func (f *fakePlaylistRepo) CreatePlaylist(_ context.Context, playlist *model.Playlist) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	stored := *playlist
	stored.ID = f.seq
	if stored.TotalDuration == "" {
		stored.TotalDuration = model.FormatTotalDuration(0)
	}
	stored.CreatedAt = time.Now()
	f.playlists[stored.ID] = &stored
	playlist.TotalDuration = stored.TotalDuration
	return stored.ID, nil
}

func (f *fakePlaylistRepo) GetPlaylistByID(_ context.Context, id int64) (*model.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.playlists[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	copied.Entries = append([]model.PlaylistTrack(nil), f.entries[id]...)
	return &copied, nil
}

func (f *fakePlaylistRepo) ListVisible(_ context.Context, userID int64, page, limit int) ([]*model.Playlist, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := make([]*model.Playlist, 0)
	for _, p := range f.playlists {
		if p.OwnerID == userID || p.IsPublic {
			copied := *p
			matched = append(matched, &copied)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	total := int64(len(matched))
	start := (page - 1) * limit
	if start >= len(matched) {
		return []*model.Playlist{}, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (f *fakePlaylistRepo) UpdatePlaylist(_ context.Context, playlist *model.Playlist) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.playlists[playlist.ID]; ok {
		p.Name = playlist.Name
		p.Description = playlist.Description
		p.CoverURL = playlist.CoverURL
		p.IsPublic = playlist.IsPublic
	}
	return nil
}

func (f *fakePlaylistRepo) DeletePlaylist(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.playlists, id)
	delete(f.entries, id)
	return nil
}

func (f *fakePlaylistRepo) AddTrack(_ context.Context, playlistID, trackID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries[playlistID] {
		if e.TrackID == trackID {
			return false, nil
		}
	}
	f.entries[playlistID] = append(f.entries[playlistID], model.PlaylistTrack{
		PlaylistID: playlistID,
		TrackID:    trackID,
		AddedAt:    time.Now(),
	})
	f.recompute(playlistID)
	return true, nil
}

func (f *fakePlaylistRepo) RemoveTrack(_ context.Context, playlistID, trackID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.entries[playlistID][:0]
	for _, e := range f.entries[playlistID] {
		if e.TrackID != trackID {
			kept = append(kept, e)
		}
	}
	f.entries[playlistID] = kept
	f.recompute(playlistID)
	return nil
}

func (f *fakePlaylistRepo) PurgeTrack(_ context.Context, trackID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for playlistID := range f.entries {
		kept := f.entries[playlistID][:0]
		for _, e := range f.entries[playlistID] {
			if e.TrackID != trackID {
				kept = append(kept, e)
			}
		}
		f.entries[playlistID] = kept
		f.recompute(playlistID)
	}
	return nil
}

// fakeSearcher returns canned provider results.
type fakeSearcher struct {
	results []catalog.TrackSummary
	err     error
	calls   int
}

func (f *fakeSearcher) Search(_ context.Context, query string, limit int) ([]catalog.TrackSummary, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeSearcher) FetchByIDs(_ context.Context, ids []string) ([]catalog.TrackSummary, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	matched := make([]catalog.TrackSummary, 0)
	for _, id := range ids {
		for _, s := range f.results {
			if s.ExternalID == id {
				matched = append(matched, s)
			}
		}
	}
	return matched, nil
}

// testEnv bundles the fakes, router and seeded tokens for handler tests.
type testEnv struct {
	h         *APIHandler
	router    *mux.Router
	users     *fakeUserRepo
	tracks    *fakeTrackRepo
	playlists *fakePlaylistRepo
	provider  *fakeSearcher

	adminToken string
	userToken  string
	adminID    int64
	userID     int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newFakeUserRepo()
	tracks := newFakeTrackRepo()
	playlists := newFakePlaylistRepo(tracks)
	provider := &fakeSearcher{}

	cfg := &config.Config{
		DevMode:       false,
		JWTSecret:     "test-secret",
		JWTExpiryHour: 1,
		CookieName:    "melodex_session",
	}
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, time.Hour)

	h := NewAPIHandler(users, tracks, playlists, tokens, nil, provider, nil, cfg)

	env := &testEnv{
		h:         h,
		router:    NewRouter(h),
		users:     users,
		tracks:    tracks,
		playlists: playlists,
		provider:  provider,
	}

	env.adminID, env.adminToken = env.seedUser(t, "Admin", "admin@example.com", model.RoleAdmin)
	env.userID, env.userToken = env.seedUser(t, "Listener", "listener@example.com", model.RoleUser)
	return env
}

func (e *testEnv) seedUser(t *testing.T, name, email, role string) (int64, string) {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	id, err := e.users.CreateUser(context.Background(), &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Tier:         model.TierRegular,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	token, err := e.h.tokens.Generate(id, email, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return id, token
}

func (e *testEnv) seedTrack(t *testing.T, title, duration string, published bool) int64 {
	t.Helper()
	seconds, err := model.ParseDuration(duration)
	if err != nil {
		t.Fatalf("seed track duration: %v", err)
	}
	id, err := e.tracks.CreateTrack(context.Background(), &model.Track{
		Title:           title,
		Artist:          "Test Artist",
		Duration:        duration,
		DurationSeconds: seconds,
		Category:        model.CategorySong,
		UploaderID:      e.adminID,
		Published:       published,
	})
	if err != nil {
		t.Fatalf("seed track: %v", err)
	}
	return id
}

func (e *testEnv) seedPlaylist(t *testing.T, ownerID int64, name string, public bool) int64 {
	t.Helper()
	id, err := e.playlists.CreatePlaylist(context.Background(), &model.Playlist{
		Name:     name,
		OwnerID:  ownerID,
		IsPublic: public,
	})
	if err != nil {
		t.Fatalf("seed playlist: %v", err)
	}
	return id
}

// do runs a request through the full router and decodes the envelope.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope from %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

// dataMap asserts the envelope data is a JSON object and returns it.
func dataMap(t *testing.T, env envelope) map[string]interface{} {
	t.Helper()
	m, ok := env.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("envelope data is not an object: %#v", env.Data)
	}
	return m
}

func trackPath(id int64, suffix string) string {
	return fmt.Sprintf("/api/tracks/%d%s", id, suffix)
}

func playlistPath(id int64, suffix string) string {
	return fmt.Sprintf("/api/playlists/%d%s", id, suffix)
}
