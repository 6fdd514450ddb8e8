package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var activeCmd = &cobra.Command{
	Use:   "active [scope-slug]",
	Short: "List currently active sessions",
	Args:  cobra.MaximumNArgs(1),
	Run: withDB(func(cmd *cobra.Command, args []string) {
		slug := ""
		if len(args) == 1 {
			slug = args[0]
		}

		sessions, err := newEngine().ActiveSessions(context.Background(), slug)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		if len(sessions) == 0 {
			fmt.Println("No active sessions")
			return
		}

		for _, s := range sessions {
			fmt.Printf("#%d  %s @ %s  since %s (%s)\n",
				s.ID, s.User.Name, s.Scope.Name,
				s.StartedAt.Format("15:04:05"), formatDuration(time.Since(s.StartedAt)))
		}
	}),
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Force-close orphaned facility sessions",
	Long: `Find facility sessions still marked active whose user's current-location
pointer no longer agrees with them, and force-close each one. Safe to run
repeatedly; a consistent database yields zero closures.`,
	Run: withDB(func(cmd *cobra.Command, args []string) {
		count, err := newEngine().ReconcileOrphans(context.Background())
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("Closed %d orphaned session(s)\n", count)
	}),
}

var timeoutCmd = &cobra.Command{
	Use:   "timeout",
	Short: "Force-close every active facility session",
	Long: `End-of-day sweep: check everyone out of every facility and clear their
current-location pointers. Event sessions are not touched.`,
	Run: withDB(func(cmd *cobra.Command, args []string) {
		count, err := newEngine().TimeoutAllActive(context.Background())
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("Closed %d active session(s)\n", count)
	}),
}
