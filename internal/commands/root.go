package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/open-cmuq/tapin/internal/config"
	"github.com/open-cmuq/tapin/internal/db"
	"github.com/open-cmuq/tapin/internal/engine"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "tapin",
	Short: "RFID attendance tracking for facilities and events",
	Long: `tapin turns RFID taps into attendance sessions. One tap checks a member
in, the next checks them out; durations accumulate toward event eligibility
thresholds and facility capacity is enforced at the door.`,
}

// initAll loads config and the database, panicking on failure
func initAll() {
	c, err := config.Load()
	if err != nil {
		panic(err)
	}
	cfg = c
	if err := db.Initialize(cfg.DatabasePath); err != nil {
		panic(err) // For now, panic on DB init failure
	}
}

// withDB wraps a command function to load config and the database first
func withDB(fn func(*cobra.Command, []string)) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		initAll()
		fn(cmd, args)
	}
}

// newEngine builds the engine over the shared connection, picking the webhook
// notifier when one is configured
func newEngine() *engine.Engine {
	var notifier engine.Notifier = engine.LogNotifier{}
	if cfg.WebhookURL != "" {
		notifier = engine.NewWebhookNotifier(cfg.WebhookURL)
	}
	return engine.New(db.DB, notifier)
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tapin %s (commit %s, built %s)\n", version, commit, date)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add subcommands here
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(kioskCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(activeCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(timeoutCmd)
	rootCmd.AddCommand(versionCmd)
}
