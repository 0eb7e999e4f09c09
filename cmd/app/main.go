package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	var a app

	rootCmd := &cobra.Command{
		Use:     "tasks",
		Short:   "Offline-first task list synced with a remote JSON store",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("remote", "", "Remote collection URL (overrides REMOTE_BASE_URL)")
	flags.String("store", "", "Local store driver: sqlite, postgres or memory")
	flags.String("sqlite-path", "", "SQLite database file")
	flags.String("database-url", "", "Postgres connection string")
	flags.Bool("no-pull", false, "Skip the pull that precedes list")
	flags.String("config", ".", "Directory holding tasksync.yaml")

	rootCmd.AddCommand(listCmd(&a))
	rootCmd.AddCommand(addCmd(&a))
	rootCmd.AddCommand(editCmd(&a))
	rootCmd.AddCommand(pushCmd(&a))
	rootCmd.AddCommand(pullCmd(&a))
	rootCmd.AddCommand(deleteCmd(&a))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		a.close()
		os.Exit(1)
	}
}
