package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"melodex/cache"
	"melodex/config"
	"melodex/core/auth"
	"melodex/core/catalog"
	"melodex/db"
	"melodex/logger"
	"melodex/model"
	"melodex/repository"
	"melodex/storage"

	"github.com/gorilla/mux"
)

// Start initializes dependencies and runs the HTTP server until a
// shutdown signal arrives.
func Start() {
	cfg := config.Load()

	logger.Init(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		logger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database with GORM", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.AutoMigrateModels(&model.Playlist{}, &model.PlaylistTrack{}); err != nil {
		logger.Fatal("Failed to migrate playlist models", logger.ErrorField(err))
	}

	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer db.CloseRedis()

	blobStore, err := storage.NewBlobStore(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize blob storage", logger.ErrorField(err))
	}

	catalogClient := catalog.NewClient(cfg.CatalogAPIURL, cfg.CatalogClientID, cfg.CatalogClientSecret)
	defer catalogClient.Close()

	userRepo := repository.NewMySQLUserRepository(db.DB)
	trackRepo := repository.NewMySQLTrackRepository(db.DB)
	playlistRepo := repository.NewGormPlaylistRepository(db.GormDB)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTExpiryHour)*time.Hour)
	searchCache := cache.NewSearchCache(db.RedisClient)

	h := NewAPIHandler(userRepo, trackRepo, playlistRepo, tokens, blobStore, catalogClient, searchCache, cfg)

	router := NewRouter(h)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}
	logger.Info("Server stopped")
}

// NewRouter wires the endpoint surface.
func NewRouter(h *APIHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(CORSMiddleware)

	// Authentication
	router.HandleFunc("/api/auth/register", h.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", h.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/logout", h.LogoutHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/password", h.AuthMiddleware(h.ChangePasswordHandler)).Methods(http.MethodPut)

	// Current user
	router.HandleFunc("/api/users/me", h.AuthMiddleware(h.MeHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/users/me", h.AuthMiddleware(h.UpdateProfileHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/users/me/settings", h.AuthMiddleware(h.UpdateSettingsHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/users/me/upgrade", h.AuthMiddleware(h.UpgradeHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/users/me/likes", h.AuthMiddleware(h.LikedTracksHandler)).Methods(http.MethodGet)

	// Admin user management
	router.HandleFunc("/api/admin/users", h.AdminMiddleware(h.ListUsersHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/admin/users/{id}", h.AdminMiddleware(h.GetUserHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/admin/users/{id}", h.AdminMiddleware(h.UpdateUserHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/admin/users/{id}", h.AdminMiddleware(h.DeleteUserHandler)).Methods(http.MethodDelete)

	// Catalog
	router.HandleFunc("/api/tracks", h.OptionalAuthMiddleware(h.ListTracksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks", h.AdminMiddleware(h.CreateTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{id}", h.OptionalAuthMiddleware(h.GetTrackHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}", h.AdminMiddleware(h.UpdateTrackHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/tracks/{id}", h.AdminMiddleware(h.DeleteTrackHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/tracks/{id}/play", h.AuthMiddleware(h.PlayTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{id}/like", h.AuthMiddleware(h.LikeToggleHandler)).Methods(http.MethodPost)

	// Playlists
	router.HandleFunc("/api/playlists", h.AuthMiddleware(h.ListPlaylistsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists", h.AuthMiddleware(h.CreatePlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}", h.AuthMiddleware(h.GetPlaylistHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists/{id}", h.AuthMiddleware(h.UpdatePlaylistHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/playlists/{id}", h.AuthMiddleware(h.DeletePlaylistHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlists/{id}/tracks/{trackId}", h.AuthMiddleware(h.AddPlaylistTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}/tracks/{trackId}", h.AuthMiddleware(h.RemovePlaylistTrackHandler)).Methods(http.MethodDelete)

	// External catalog
	router.HandleFunc("/api/catalog/search", h.AuthMiddleware(h.CatalogSearchHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/catalog/import", h.AdminMiddleware(h.CatalogImportHandler)).Methods(http.MethodPost)

	// Uploads
	router.HandleFunc("/api/upload/cover", h.AdminMiddleware(h.UploadCoverHandler())).Methods(http.MethodPost)
	router.HandleFunc("/api/upload/audio", h.AdminMiddleware(h.UploadAudioHandler())).Methods(http.MethodPost)

	return router
}
