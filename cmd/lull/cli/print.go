package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lull-sh/lull/internal/idle"
)

var printSource string

var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the idle time in milliseconds and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := idle.New(printSource)
		if err != nil {
			return err
		}
		idleTime, err := source.IdleTime(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(idleTime.Milliseconds())
		return nil
	},
}

func init() {
	printCmd.Flags().StringVar(&printSource, "source", "", "idle source: auto, x11, or dbus (default auto)")
	rootCmd.AddCommand(printCmd)
}
