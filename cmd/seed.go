package cmd

import (
	"log"

	"melodex/config"
	"melodex/db"
	"melodex/logger"
	"melodex/model"

	"github.com/spf13/cobra"
)

var (
	seedAdminName     string
	seedAdminEmail    string
	seedAdminPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Initialize the schema and seed the admin account",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.Init(logger.Config{Level: logger.LogLevel(cfg.LogLevel)})

		if seedAdminPassword == "" {
			log.Fatal("an admin password is required (--password)")
		}

		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.DB.Close()

		if err := db.InitDB(); err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}

		if err := db.ConnectGormDB(cfg); err != nil {
			log.Fatalf("Failed to connect to database with GORM: %v", err)
		}
		defer db.CloseGormDB()

		if err := db.AutoMigrateModels(&model.Playlist{}, &model.PlaylistTrack{}); err != nil {
			log.Fatalf("Failed to migrate playlist models: %v", err)
		}

		adminID, err := db.SeedAdminUser(seedAdminName, seedAdminEmail, seedAdminPassword)
		if err != nil {
			log.Fatalf("Failed to seed admin user: %v", err)
		}
		log.Printf("Seed completed, admin user id: %d", adminID)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedAdminName, "name", "admin", "admin display name")
	seedCmd.Flags().StringVar(&seedAdminEmail, "email", "admin@melodex.local", "admin email")
	seedCmd.Flags().StringVar(&seedAdminPassword, "password", "", "admin password (required)")
}
