package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/psantana5/evprof/internal/config"
	"github.com/psantana5/evprof/pkg/logging"
)

// version is overridden at build time with -ldflags "-X .../cmd.version=..."
var version = "dev"

// app carries state shared by all subcommands of one invocation
type app struct {
	v        *viper.Viper
	cfgFile  string
	bindings []flagBinding
	cfg      *config.Config
	logger   *logging.Logger
}

type flagBinding struct {
	key  string
	flag *pflag.Flag
}

// NewRootCmd builds the evprof command tree
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "evprof",
		Short: "Lightweight named-event profiler",
		Long: `evprof records named events (start/stop pairs), summarizes their durations
and exposes the results as tables, JSON, YAML, Prometheus metrics and an HTTP API.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}

	// Global flags
	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.evprof/config.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Bool("log-json", false, "emit logs as JSON lines")
	a.bind(flags, "log.level", "log-level")
	a.bind(flags, "log.json", "log-json")

	root.AddCommand(newRunCmd(a), newServeCmd(a), newConfigCmd(a))
	return root
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// bind ties a flag to a config key so that, when set, it overrides file and
// env values. Several commands may bind their own flag to the same key; only
// the flags of the executing command are applied.
func (a *app) bind(flags *pflag.FlagSet, key, name string) {
	f := flags.Lookup(name)
	if f == nil {
		panic("unknown flag " + name)
	}
	a.bindings = append(a.bindings, flagBinding{key: key, flag: f})
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	for _, b := range a.bindings {
		if cmd.Flags().Lookup(b.flag.Name) != b.flag {
			continue
		}
		if err := a.v.BindPFlag(b.key, b.flag); err != nil {
			return err
		}
	}

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = logging.NewLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.JSON)
	a.logger.SetOutput(cmd.ErrOrStderr())
	return nil
}
