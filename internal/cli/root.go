package cli

import (
	stdcontext "context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Paintersrp/devrun/internal/config"
	"github.com/Paintersrp/devrun/internal/logging"
	"github.com/Paintersrp/devrun/internal/metrics"
	"github.com/Paintersrp/devrun/internal/metrics/httpserver"
	"github.com/Paintersrp/devrun/internal/supervisor"
)

var (
	newLogger        = logging.NewStderr
	newMetricsServer = httpserver.NewServer
)

func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *context) {
	opts := optionsFromEnv()
	ctx := &context{options: &opts}

	root := &cobra.Command{
		Use:   "devrun",
		Short: "Run the development server and relay its output",
		Long: "devrun runs the project's dev script from the directory containing the devrun\n" +
			"binary, relays its output as it arrives and exits with the script's exit code.\n" +
			"SIGINT and SIGTERM end devrun gracefully with status 0.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.run(cmd)
		},
	}

	root.PersistentFlags().StringVar(&opts.ConfigFile, "config", opts.ConfigFile, "Path to a devrun.yaml manifest (defaults to one next to the binary, if present)")
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Diagnostics log level written to stderr (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.MetricsAddr, "metrics-addr", opts.MetricsAddr, "Serve Prometheus metrics on this address while the child runs")

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, ctx
}

// Execute runs the CLI entrypoint and exits the process with the supervised
// child's exit code.
func Execute() {
	sigCtx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)

	root, ctx := newRootCommand()
	root.SetContext(sigCtx)

	var code int
	if err := root.ExecuteContext(sigCtx); err != nil {
		fmt.Fprintf(os.Stdout, "Error: %v\n", err)
		code = 1
	} else {
		code = ctx.exitCode
	}
	stop()
	os.Exit(code)
}

type context struct {
	options  *options
	exitCode int
}

type options struct {
	ConfigFile  string
	LogLevel    string
	MetricsAddr string
}

func optionsFromEnv() options {
	return options{
		ConfigFile:  os.Getenv("DEVRUN_CONFIG"),
		LogLevel:    os.Getenv("DEVRUN_LOG_LEVEL"),
		MetricsAddr: os.Getenv("DEVRUN_METRICS_ADDR"),
	}
}

// loadConfig reads the explicit manifest when one is configured and otherwise
// looks for devrun.yaml next to the executable, falling back to defaults.
func (c *context) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if c.options.ConfigFile != "" {
		cfg, err = config.Load(c.options.ConfigFile)
	} else {
		var dir string
		dir, err = config.ExecutableDir()
		if err != nil {
			return nil, err
		}
		cfg, err = config.LoadOptional(filepath.Join(dir, config.DefaultFileName))
	}
	if err != nil {
		return nil, err
	}

	if c.options.LogLevel != "" {
		cfg.Log.Level = c.options.LogLevel
	}
	if c.options.MetricsAddr != "" {
		cfg.Metrics.Addr = c.options.MetricsAddr
	}
	return cfg, nil
}

func (c *context) run(cmd *cobra.Command) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar().With("run_id", uuid.NewString())
	log.Debugw("loaded config", "path", cfg.Source, "command", cfg.CommandLine())

	dir, err := cfg.ResolveWorkdir()
	if err != nil {
		return err
	}
	if err := config.Enter(dir); err != nil {
		return err
	}
	log.Debugw("entered workdir", "dir", dir)

	runCtx := cmd.Context()
	if cfg.Metrics.Addr != "" {
		stopMetrics, err := c.serveMetrics(runCtx, cfg.Metrics.Addr, log)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	sup := &supervisor.Supervisor{
		Spec: supervisor.Spec{
			Command: cfg.Command,
			Dir:     dir,
			Env:     cfg.Environ(),
		},
		Messages: supervisor.Messages{
			Banner:   cfg.Messages.Banner,
			Shutdown: cfg.Messages.Shutdown,
			NotFound: cfg.Messages.NotFound,
			Failure:  cfg.Messages.Failure,
		},
		Stdout: cmd.OutOrStdout(),
		Logger: log.Named("supervisor"),
	}
	c.exitCode = sup.Run(runCtx).Code()
	return nil
}

func (c *context) serveMetrics(ctx stdcontext.Context, addr string, log *zap.SugaredLogger) (func(), error) {
	server, err := newMetricsServer(httpserver.Config{Addr: addr, Gatherer: metrics.Registry()})
	if err != nil {
		return nil, err
	}
	if err := server.Listen(); err != nil {
		return nil, err
	}
	serverCtx, cancel := stdcontext.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.Run(serverCtx); err != nil {
			log.Warnw("metrics server stopped", "error", err)
		}
	}()
	log.Infow("metrics listening", "addr", server.Addr())
	return func() {
		cancel()
		<-done
	}, nil
}
