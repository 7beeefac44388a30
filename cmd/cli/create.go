package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"shorturl/cmd"
	"shorturl/internal/config"
	"shorturl/internal/services"
)

var (
	longURLFlag   string
	validityFlag  int
	shortCodeFlag string
)

// CreateCmd shortens a long URL from the command line.
var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Creates a short URL from a long URL.",
	Long: `This command shortens the provided long URL and prints the generated
short code.

Example:
  shorturl create --url="https://www.google.com/search?q=go+lang" --validity=60`,
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

		u, err := svc.CreateShortURL(context.Background(), services.CreateParams{
			URL:             longURLFlag,
			ValidityMinutes: validityFlag,
			ShortCode:       shortCodeFlag,
		})
		if err != nil {
			log.Fatalf("Failed to create short URL: %v", err)
		}

		fmt.Printf("Short URL created:\n")
		fmt.Printf("Code: %s\n", u.ShortCode)
		fmt.Printf("Full URL: %s/%s\n", cfg.Server.BaseURL, u.ShortCode)
		fmt.Printf("Expires: %s\n", u.ExpiresAt.Format(time.RFC3339))
	},
}

func init() {
	CreateCmd.Flags().StringVar(&longURLFlag, "url", "", "The long URL to shorten")
	CreateCmd.Flags().IntVar(&validityFlag, "validity", 0, "Validity in minutes (0 uses the configured default)")
	CreateCmd.Flags().StringVar(&shortCodeFlag, "code", "", "Custom short code (generated when omitted)")
	CreateCmd.MarkFlagRequired("url")

	cmd.RootCmd.AddCommand(CreateCmd)
}
