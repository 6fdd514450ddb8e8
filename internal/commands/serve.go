package commands

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/open-cmuq/tapin/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the attendance HTTP API",
	Long: `Run the HTTP API consumed by RFID reader adapters and scheduled jobs.

Configuration comes from the environment (or a .env file):
  TAPIN_DB           database path (default ~/.tapin/tapin.db)
  TAPIN_ADDR         listen address (default :8080)
  TAPIN_ADMIN_KEY    key for the admin endpoints; unset disables them
  TAPIN_WEBHOOK_URL  eligibility notification endpoint; unset means log-only`,
	Run: withDB(func(cmd *cobra.Command, args []string) {
		router := api.NewRouter(newEngine(), cfg.AdminKey)
		log.Printf("tapin listening on %s", cfg.ListenAddr)
		if err := router.Run(cfg.ListenAddr); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	}),
}
