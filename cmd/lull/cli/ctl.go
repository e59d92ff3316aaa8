package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lull-sh/lull/internal/daemon"
	"github.com/lull-sh/lull/internal/socket"
)

const ctlTimeout = 5 * time.Second

var ctlSocketPath string

var ctlCmd = &cobra.Command{
	Use:   "ctl",
	Short: "Send commands to a running daemon",
}

var ctlDisableCmd = &cobra.Command{
	Use:   "disable INDEX",
	Short: "Disable the timer at the given index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDisabled(cmd.Context(), args[0], true)
	},
}

var ctlEnableCmd = &cobra.Command{
	Use:   "enable INDEX",
	Short: "Enable the timer at the given index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDisabled(cmd.Context(), args[0], false)
	},
}

var ctlIdleTimeCmd = &cobra.Command{
	Use:   "idle-time",
	Short: "Print the daemon's idle time in milliseconds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := ctlClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), ctlTimeout)
		defer cancel()
		idleTime, err := client.IdleTime(ctx)
		if err != nil {
			return err
		}
		fmt.Println(idleTime.Milliseconds())
		return nil
	},
}

var ctlStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List the daemon's timers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := ctlClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), ctlTimeout)
		defer cancel()
		timers, err := client.Status(ctx)
		if err != nil {
			return err
		}
		for _, t := range timers {
			state := "enabled"
			if t.Disabled {
				state = "disabled"
			}
			fmt.Printf("%d\t%s\t%s\t%s\n", t.Index,
				(time.Duration(t.DurationMS) * time.Millisecond).String(),
				state, t.Activation)
		}
		return nil
	},
}

var ctlQuitCmd = &cobra.Command{
	Use:   "quit",
	Short: "Ask the daemon to shut down",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := ctlClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), ctlTimeout)
		defer cancel()
		return client.Quit(ctx)
	},
}

func init() {
	ctlCmd.PersistentFlags().StringVar(&ctlSocketPath, "socket", "", "daemon control socket path (default: discovered from the lock file)")
	ctlCmd.AddCommand(ctlDisableCmd, ctlEnableCmd, ctlIdleTimeCmd, ctlStatusCmd, ctlQuitCmd)
	rootCmd.AddCommand(ctlCmd)
}

func setDisabled(ctx context.Context, indexArg string, disabled bool) error {
	index, err := strconv.Atoi(indexArg)
	if err != nil {
		return fmt.Errorf("timer index must be a number: %q", indexArg)
	}
	client, err := ctlClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, ctlTimeout)
	defer cancel()
	return client.SetDisabled(ctx, index, disabled)
}

// ctlClient resolves the socket path: the --socket flag, then the running
// daemon's lock file, then the default location.
func ctlClient() (*socket.Client, error) {
	path := ctlSocketPath
	if path == "" {
		if lock, err := daemon.ReadLockFile(daemon.DefaultLockPath()); err == nil && lock != nil && lock.SockPath != "" {
			path = lock.SockPath
		}
	}
	if path == "" {
		path = daemon.DefaultSocketPath()
	}
	return socket.NewClient(path), nil
}
