package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lull-sh/lull/internal/config"
	"github.com/lull-sh/lull/internal/daemon"
	"github.com/lull-sh/lull/internal/idle"
	"github.com/lull-sh/lull/internal/journal"
	"github.com/lull-sh/lull/internal/log"
	"github.com/lull-sh/lull/internal/policy"
	"github.com/lull-sh/lull/internal/timer"
)

var (
	runConfigPath        string
	runOnce              bool
	runNotWhenFullscreen bool
	runNotWhenAudio      bool
	runSocketPath        string
	runJournalPath       string
	runInterval          string
	runSource            string
)

var runCmd = &cobra.Command{
	Use:   "run [DURATION ACTIVATION ABORTION]...",
	Short: "Run the idle-hook daemon",
	Long: `Run the daemon with the given timer chain. Timers are passed as groups
of three arguments: the idle duration (seconds or a Go duration string),
the activation command, and the abortion command, both passed through
"/bin/sh -c". Pass an empty string to leave a hook out. Timers with a
deactivation hook can be declared in the config file.

Timers from the config file come first; command-line timers are appended
in the order given. Order is execution order, and the position is the
index used by the control socket and by per-timer policies.`,
	Example: `  lull run 300 'xset dpms force off' 'xset dpms force on'
  lull run --socket /run/user/1000/lull/lull.sock --not-when-fullscreen \
      120 'notify-send "locking soon"' '' 300 'loginctl lock-session' ''`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args)%3 != 0 {
			return fmt.Errorf("timers are DURATION ACTIVATION ABORTION triples, got %d trailing argument(s)", len(args)%3)
		}
		return nil
	},
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "path to lull.yaml")
	runCmd.Flags().BoolVar(&runOnce, "once", false, "exit after the whole timer chain has been invoked once")
	runCmd.Flags().BoolVar(&runNotWhenFullscreen, "not-when-fullscreen", false, "don't invoke timers while the foreground window is fullscreen")
	runCmd.Flags().BoolVar(&runNotWhenAudio, "not-when-audio", false, "don't invoke timers while audio is playing")
	runCmd.Flags().StringVar(&runSocketPath, "socket", "", "listen on a unix control socket at this path")
	runCmd.Flags().StringVar(&runJournalPath, "journal", "", "record engine events to this SQLite database")
	runCmd.Flags().StringVar(&runInterval, "interval", "", "base idle poll interval (default 1s)")
	runCmd.Flags().StringVar(&runSource, "source", "", "idle source: auto, x11, or dbus (default auto)")
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg := &config.Config{}
	if runConfigPath != "" {
		loaded, err := config.Load(runConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}

	timers, err := buildTimers(cfg, args)
	if err != nil {
		return err
	}
	if len(timers) == 0 {
		return fmt.Errorf("no timers configured; pass DURATION ACTIVATION ABORTION triples or a config file")
	}

	source, err := idle.New(cfg.Source)
	if err != nil {
		return err
	}

	module, err := buildModule(cfg, source)
	if err != nil {
		return err
	}

	d := daemon.New(source, timers, module)
	if cfg.Interval > 0 {
		d.Engine().SetInterval(time.Duration(cfg.Interval))
	}
	if cfg.Socket != "" {
		d.SetSocketPath(cfg.Socket)
	}
	d.SetLockPath(daemon.DefaultLockPath())

	if cfg.Journal != "" {
		store, err := journal.Open(cfg.Journal)
		if err != nil {
			return err
		}
		defer store.Close()
		d.Engine().SetRecorder(store)
		log.Info("journal enabled", "path", cfg.Journal, "session", store.Session())
	}

	log.Info("starting", "timers", len(timers), "socket", cfg.Socket != "")
	return d.Run(cmd.Context())
}

// applyRunFlags overlays flag values onto the config; explicitly set flags
// win over file values.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("once") {
		cfg.Once = runOnce
	}
	if flags.Changed("not-when-fullscreen") {
		cfg.NotWhenFullscreen = runNotWhenFullscreen
	}
	if flags.Changed("not-when-audio") {
		cfg.NotWhenAudio = runNotWhenAudio
	}
	if flags.Changed("socket") {
		cfg.Socket = runSocketPath
	}
	if flags.Changed("journal") {
		cfg.Journal = runJournalPath
	}
	if flags.Changed("source") {
		cfg.Source = runSource
	}
	if flags.Changed("interval") {
		interval, err := config.ParseDuration(runInterval)
		if err != nil {
			return err
		}
		cfg.Interval = config.Duration(interval)
	}
	return cfg.Validate()
}

func buildTimers(cfg *config.Config, args []string) ([]*timer.CmdTimer, error) {
	var timers []*timer.CmdTimer
	for _, tc := range cfg.Timers {
		t := timer.NewShell(time.Duration(tc.Duration), tc.Activation, tc.Abortion, tc.Deactivation)
		t.SetDisabled(tc.Disabled)
		timers = append(timers, t)
	}
	for i := 0; i+2 < len(args); i += 3 {
		duration, err := config.ParseDuration(args[i])
		if err != nil {
			return nil, err
		}
		if duration < 0 {
			return nil, fmt.Errorf("timer duration must not be negative: %s", args[i])
		}
		timers = append(timers, timer.NewShell(duration, args[i+1], args[i+2], ""))
	}
	return timers, nil
}

// buildModule composes the policy chain: the null policy (which logs and
// swallows warnings) always runs first, then any user-selected policies.
func buildModule(cfg *config.Config, source idle.Source) (policy.Module, error) {
	var modules policy.Modules
	if cfg.Once {
		modules = append(modules, policy.StopAtCompletion())
	}
	if cfg.NotWhenFullscreen {
		fs, ok := source.(idle.FullscreenSource)
		if !ok {
			return nil, fmt.Errorf("the %q idle source cannot detect fullscreen windows", cfg.Source)
		}
		modules = append(modules, policy.NewNotWhenFullscreen(fs.ActiveWindowFullscreen))
	}
	if cfg.NotWhenAudio {
		modules = append(modules, policy.NewNotWhenAudio(nil))
	}
	return policy.Chain(policy.Null{}, modules), nil
}
