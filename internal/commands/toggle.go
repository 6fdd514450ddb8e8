package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/open-cmuq/tapin/internal/engine"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle [card-uid] [scope-slug]",
	Short: "Toggle attendance for a card at a facility or event",
	Args:  cobra.ExactArgs(2),
	Run: withDB(func(cmd *cobra.Command, args []string) {
		result, err := newEngine().Toggle(context.Background(), args[0], args[1])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		switch result.Action {
		case engine.ActionCheckIn:
			fmt.Printf("✅ %s checked into %s at %s\n",
				result.User.Name, result.Scope.Name, result.Session.StartedAt.Format("15:04:05"))
		case engine.ActionCheckOut:
			fmt.Printf("👋 %s checked out of %s (%dm this visit, %dm total)\n",
				result.User.Name, result.Scope.Name,
				*result.Session.DurationMinutes, result.Attendance.TotalMinutes)
		}
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status [card-uid] [scope-slug]",
	Short: "Show whether a card is currently checked in",
	Args:  cobra.ExactArgs(2),
	Run: withDB(func(cmd *cobra.Command, args []string) {
		status, err := newEngine().Status(context.Background(), args[0], args[1])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		if !status.Active {
			fmt.Println("Not checked in")
			return
		}

		elapsed := time.Since(status.Session.StartedAt)
		fmt.Printf("⏱️  Checked in since %s (%s elapsed)\n",
			status.Session.StartedAt.Format("15:04:05"), formatDuration(elapsed))
	}),
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d.Hours() >= 1 {
		return fmt.Sprintf("%.1fh", d.Hours())
	} else if d.Minutes() >= 1 {
		return fmt.Sprintf("%.0fm", d.Minutes())
	} else {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
}
