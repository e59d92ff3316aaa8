// Package cli implements the lull command-line interface using Cobra. It
// provides the daemon itself (run), an idle-time probe (print), and a
// control-socket client (ctl).
package cli

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/lull-sh/lull/internal/log"
)

var (
	verbose bool
	jsonLog bool
	logDir  string
)

var rootCmd = &cobra.Command{
	Use:   "lull",
	Short: "lull - run commands when the machine goes idle",
	Long: `lull triggers shell commands after the machine has been idle for
configured durations, and cancels or reverses them when activity resumes.
Timers form an ordered chain gated by policies such as "not while a video
is fullscreen" or "not while audio is playing", and a control socket lets
other programs toggle timers or query idle time at runtime.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Daemonized processes get JSON on stderr; terminals get text.
		jsonFormat := jsonLog || !isatty.IsTerminal(os.Stderr.Fd())
		return log.Init(log.Options{
			Verbose:    verbose,
			JSONFormat: jsonFormat,
			FileDir:    logDir,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "force JSON log format on stderr")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "directory for rotated JSON log files")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
