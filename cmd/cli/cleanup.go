package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"shorturl/cmd"
	"shorturl/internal/config"
)

// CleanupCmd runs a single cleanup sweep over the store.
var CleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Deletes every expired short URL.",
	Long: `This command runs one cleanup sweep: every short URL past its expiry
is removed from the store, together with its click history.`,
	Run: func(cobraCmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		svc, store, err := openService(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize store: %v", err)
		}
		defer store.Close()

		deleted, err := svc.CleanupExpiredURLs(context.Background())
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}

		fmt.Printf("Cleanup removed %d expired short URL(s).\n", deleted)
	},
}

func init() {
	cmd.RootCmd.AddCommand(CleanupCmd)
}
