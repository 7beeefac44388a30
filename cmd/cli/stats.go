package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"shorturl/cmd"
	"shorturl/internal/config"
	customerrors "shorturl/internal/errors"
)

// StatsCmd prints the click statistics for a short code.
var StatsCmd = &cobra.Command{
	Use:   "stats [short-code]",
	Short: "Get statistics for a short URL",
	Long:  `Get click statistics for the provided short code.`,
	Args:  cobra.ExactArgs(1),
	Run:   runStats,
}

func init() {
	cmd.RootCmd.AddCommand(StatsCmd)
}

func runStats(cobraCmd *cobra.Command, args []string) {
	shortCode := args[0]

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	svc, store, err := openService(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer store.Close()

	stats, err := svc.GetShortURLStats(context.Background(), shortCode)
	if err != nil {
		switch customerrors.KindOf(err) {
		case customerrors.KindNotFound:
			fmt.Printf("Error: Short code '%s' not found\n", shortCode)
		case customerrors.KindExpired:
			fmt.Printf("Error: Short code '%s' has expired\n", shortCode)
		default:
			fmt.Printf("Error retrieving statistics: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("Statistics for short code: %s\n", stats.ShortCode)
	fmt.Printf("Original URL: %s\n", stats.OriginalURL)
	fmt.Printf("Total clicks: %d\n", stats.TotalClicks)
	fmt.Printf("Created at: %s\n", stats.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Expires at: %s\n", stats.ExpiresAt.Format("2006-01-02 15:04:05"))

	if len(stats.Clicks) > 0 {
		fmt.Println("Recent clicks:")
		start := len(stats.Clicks) - 5
		if start < 0 {
			start = 0
		}
		for _, click := range stats.Clicks[start:] {
			fmt.Printf("  %s  %s  %s/%s\n",
				click.Timestamp.Format(time.RFC3339), click.IPAddress,
				click.Location.Country, click.Location.City)
		}
	}
}
