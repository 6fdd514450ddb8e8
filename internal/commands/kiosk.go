package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/open-cmuq/tapin/internal/tui"
)

var kioskCmd = &cobra.Command{
	Use:   "kiosk [scope-slug]",
	Short: "Run the tap kiosk for a facility or event",
	Long: `Run a fullscreen kiosk for a keyboard-wedge RFID reader. The reader types
the card UID followed by Enter; each read toggles attendance for the
configured scope.

Examples:
  tapin kiosk woodshop      # door terminal for the woodshop facility
  tapin kiosk hackathon-25  # check-in desk for an event`,
	Args: cobra.ExactArgs(1),
	Run: withDB(func(cmd *cobra.Command, args []string) {
		if err := tui.RunKioskTUI(newEngine(), args[0]); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}),
}
