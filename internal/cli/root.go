package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/raulk/clock"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"

	"yeetbank/internal/cli/prompt"
	"yeetbank/pkg/api"
	"yeetbank/pkg/config"
	"yeetbank/pkg/logger"
	"yeetbank/pkg/metrics"
	"yeetbank/pkg/platform"
	"yeetbank/pkg/session"
	"yeetbank/pkg/store"
)

// Options are the process hooks the commands use. Zero values mean the
// real terminal, network and clock.
type Options struct {
	In      io.Reader
	Out     io.Writer
	Err     io.Writer
	Dial    func(addr string) (net.Conn, error)
	Clock   clock.Clock
	Version string
}

type cli struct {
	opts Options

	configPath  string
	apiURL      string
	stateDir    string
	metricsAddr string
	verbose     bool

	cfg     *config.Config
	kv      *store.Store
	client  *api.Client
	session *session.Store
	caps    *platform.Capabilities
	prompt  *prompt.Prompter
	out     *syncWriter
	metrics *fasthttp.Server
}

// syncWriter serialises writes from background observers and the command.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (c *cli) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// Execute runs the command line in args and returns the command error.
func Execute(ctx context.Context, opts Options, args []string) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	c := &cli{opts: opts, out: &syncWriter{w: opts.Out}}
	defer c.close()

	root := c.rootCmd()
	root.SetArgs(args)
	root.SetIn(opts.In)
	root.SetOut(c.out)
	root.SetErr(opts.Err)
	return root.ExecuteContext(ctx)
}

func (c *cli) rootCmd() *cobra.Command {
	version := c.opts.Version
	if version == "" {
		version = "dev"
	}
	root := &cobra.Command{
		Use:           "yeetbank",
		Short:         "Yeet Bank terminal client",
		Long:          "Yeet Bank terminal client: sign in, check your balance, move money and chat with support.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	f := root.PersistentFlags()
	f.StringVarP(&c.configPath, "config", "c", "", "config file path (default is "+config.DefaultConfigPath()+")")
	f.StringVar(&c.apiURL, "api-url", "", "backend API base URL")
	f.StringVar(&c.stateDir, "state-dir", "", "directory holding credentials and logs")
	f.StringVar(&c.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	f.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.profileCmd(),
		c.transferCmd(),
		c.transactionsCmd(),
		c.summaryCmd(),
		c.reportCmd(),
		c.notificationsCmd(),
		c.chatCmd(),
		c.settingsCmd(),
		c.watchCmd(),
		c.installCmd(root),
	)
	return root
}

// setup resolves the effective config (flags > env > file > defaults) and
// opens everything the commands share.
func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if c.apiURL != "" {
		cfg.API.BaseURL = c.apiURL
	}
	if c.stateDir != "" {
		cfg.State.Dir = c.stateDir
	}
	if c.metricsAddr != "" {
		cfg.Metrics.Addr = c.metricsAddr
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}
	c.cfg = cfg

	if err := os.MkdirAll(cfg.State.Dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	level := cfg.Logging.Level
	if c.verbose {
		level = "debug"
	}
	logger.InitSink(level, "file:"+filepath.Join(cfg.State.Dir, "yeetbank.log"))
	logger.Debug("effective_config_loaded", "base_url", cfg.API.BaseURL, "state_dir", cfg.State.Dir)

	kv, err := store.Open(filepath.Join(cfg.State.Dir, "kv"))
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	c.kv = kv

	c.client = api.New(api.Options{
		BaseURL:             cfg.API.BaseURL,
		Timeout:             cfg.API.Timeout.Duration(),
		MaxResponseBodySize: int(cfg.API.MaxBodySize.Int64()),
		Dial:                c.opts.Dial,
	})
	if c.session, err = session.Attach(c.client, kv); err != nil {
		return err
	}
	c.session.OnExpired(func() {
		fmt.Fprintln(c.opts.Err, "Session expired. Please log in again.")
	})

	c.prompt = prompt.New(c.opts.In, c.out)
	shell := os.Getenv("SHELL")
	c.caps, err = platform.Detect(kv, platform.Env{
		Interactive: c.prompt.Interactive(),
		Shell:       shell,
		Installed:   fileExists(c.completionPath(platform.ShellName(shell))),
	})
	if err != nil {
		return err
	}

	if cfg.Metrics.Addr != "" {
		c.startMetrics(cfg.Metrics.Addr)
	}
	return nil
}

func (c *cli) startMetrics(addr string) {
	c.metrics = &fasthttp.Server{Handler: metrics.Handler(), Name: "yeetbank-metrics"}
	go func() {
		if err := c.metrics.ListenAndServe(addr); err != nil {
			logger.Warn("metrics_server_failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("metrics_server_started", "addr", addr)
}

func (c *cli) close() {
	if c.metrics != nil {
		_ = c.metrics.Shutdown()
	}
	if c.kv != nil {
		_ = c.kv.Close()
	}
	logger.Sync()
}

// requireLogin re-validates the stored session and returns the identity.
func (c *cli) requireLogin(ctx context.Context) (api.User, error) {
	if !c.session.HasCredentials() {
		return api.User{}, fmt.Errorf("not logged in; run `yeetbank login` first")
	}
	u, ok := c.session.CurrentIdentity(ctx)
	if !ok {
		if err := ctx.Err(); err != nil {
			return api.User{}, err
		}
		return api.User{}, fmt.Errorf("session expired; run `yeetbank login` again")
	}
	return u, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
