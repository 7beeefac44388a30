package cli

import (
	"fmt"
	"log"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"shorturl/cmd"
	"shorturl/internal/config"
	"shorturl/internal/models"
)

// MigrateCmd applies the database schema for the sqlite storage driver.
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Executes database migrations to create or update tables.",
	Long: `This command connects to the configured SQLite database and executes
GORM automatic migrations to create the 'short_urls' and 'clicks' tables.
Only meaningful with storage.driver=sqlite and a file DSN; the in-memory
stores migrate themselves at startup.`,
	Run: func(cobraCmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		if cfg.Storage.Driver != "sqlite" {
			log.Fatalf("migrate requires storage.driver=sqlite (current: %q)", cfg.Storage.Driver)
		}

		db, err := gorm.Open(sqlite.Open(cfg.Storage.DSN), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			log.Fatalf("Failed to get underlying SQL database: %v", err)
		}
		defer sqlDB.Close()

		if err := db.AutoMigrate(&models.ShortURL{}, &models.Click{}); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}

		fmt.Println("Database migrations executed successfully.")
	},
}

func init() {
	cmd.RootCmd.AddCommand(MigrateCmd)
}
