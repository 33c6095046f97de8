package server

import (
	"melodex/cache"
	"melodex/config"
	"melodex/core/auth"
	"melodex/core/catalog"
	"melodex/repository"
	"melodex/storage"
)

// APIHandler handles all API requests.
type APIHandler struct {
	userRepo     repository.UserRepository
	trackRepo    repository.TrackRepository
	playlistRepo repository.PlaylistRepository
	authorizer   *auth.Authorizer
	tokens       *auth.TokenIssuer
	blobStore    *storage.BlobStore
	catalog      catalog.Searcher
	searchCache  *cache.SearchCache
	cfg          *config.Config
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(
	userRepo repository.UserRepository,
	trackRepo repository.TrackRepository,
	playlistRepo repository.PlaylistRepository,
	tokens *auth.TokenIssuer,
	blobStore *storage.BlobStore,
	catalogClient catalog.Searcher,
	searchCache *cache.SearchCache,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		userRepo:     userRepo,
		trackRepo:    trackRepo,
		playlistRepo: playlistRepo,
		authorizer:   auth.NewAuthorizer(),
		tokens:       tokens,
		blobStore:    blobStore,
		catalog:      catalogClient,
		searchCache:  searchCache,
		cfg:          cfg,
	}
}
