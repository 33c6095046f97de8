package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"melodex/config"
	"melodex/logger"
	"melodex/storage"

	"github.com/spf13/cobra"
)

var minioPrefix string

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Inspect the blob-storage bucket",
	Long:  `Connect to the configured blob-storage provider and list the objects under a prefix.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.Init(logger.Config{Level: logger.LogLevel(cfg.LogLevel)})

		store, err := storage.NewBlobStore(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to blob storage: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		names, err := store.ListObjects(ctx, minioPrefix)
		if err != nil {
			log.Fatalf("Failed to list objects: %v", err)
		}

		for _, name := range names {
			fmt.Println(name)
		}
		fmt.Printf("%d objects\n", len(names))
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "filter objects by prefix")
}
