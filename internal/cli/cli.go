package cli

import (
	"context"
	"fmt"
	"fsblock/internal/app"
	"fsblock/internal/config"
	"strings"

	"github.com/spf13/cobra"
)

// CommandPlugin is a subcommand attached to the root command.
type CommandPlugin interface {
	Meta() *cobra.Command
	Execute(cmd *cobra.Command, args []string) error
}

type options struct {
	configPath       string
	env              string
	path             string
	noRecurse        bool
	verbose          bool
	watch            bool
	noFeedback       bool
	command          string
	forwardFileName  bool
	noWaitForCommand bool
	ignore           []string
}

type CLI struct {
	rootCmd *cobra.Command
	plugins []CommandPlugin
	streams app.Streams
	opts    options
}

func NewCLI(streams app.Streams) *CLI {
	c := &CLI{
		plugins: make([]CommandPlugin, 0, 2),
		streams: streams,
	}

	c.rootCmd = &cobra.Command{
		Use:   "fsblock",
		Short: "Block until files change, or watch and run a command on change",
		Long: `fsblock watches a directory tree for created, changed, deleted and renamed
files. By default it waits for a single change, prints it and exits. With
--watch it keeps running and can launch a command for every change.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          c.run,
	}
	c.rootCmd.CompletionOptions.DisableDefaultCmd = true
	c.rootCmd.SetOut(streams.Stdout)
	c.rootCmd.SetErr(streams.Stderr)

	flags := c.rootCmd.Flags()
	flags.StringVar(&c.opts.configPath, "config", "", "path to a YAML config file (env FSBLOCK_CONFIG)")
	flags.StringVar(&c.opts.env, "env", config.EnvLocal, "log format: local, dev or prod")
	flags.StringVarP(&c.opts.path, "path", "p", "", "directory to watch (required)")
	flags.BoolVarP(&c.opts.noRecurse, "norecurse", "n", false, "do not watch subdirectories")
	flags.BoolVarP(&c.opts.verbose, "verbose", "v", false, "verbose diagnostics on stderr")
	flags.BoolVarP(&c.opts.watch, "watch", "w", false, "continuously watch for changes")
	flags.BoolVarP(&c.opts.noFeedback, "nofeedback", "f", false, "do not print changes to stdout")
	flags.StringVarP(&c.opts.command, "command", "C", "", "command to run when a file changes")
	flags.BoolVarP(&c.opts.forwardFileName, "forward", "F", false, "pass the changed file name to --command")
	flags.BoolVarP(&c.opts.noWaitForCommand, "nocmdwait", "N", false, "do not wait for --command to finish")
	flags.StringArrayVarP(&c.opts.ignore, "ignore", "i", nil, "paths to ignore (repeatable, space separated)")

	return c
}

func (c *CLI) RegisterPlugin(p CommandPlugin) {
	c.plugins = append(c.plugins, p)
	cmd := p.Meta()
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		for _, plugin := range c.plugins {
			if plugin.Meta() == cmd {
				return plugin.Execute(cmd, args)
			}
		}
		return fmt.Errorf("unknown command")
	}
	c.rootCmd.AddCommand(cmd)
}

// Run executes the command line in args and returns the error that decides
// the exit status (see app.ExitCode).
func (c *CLI) Run(ctx context.Context, args []string) error {
	c.RegisterPlugin(NewCompletionCommand(c.rootCmd))
	c.rootCmd.SetArgs(args)
	return c.rootCmd.ExecuteContext(ctx)
}

func (c *CLI) run(cmd *cobra.Command, _ []string) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return &app.ExitError{Code: app.ExitConfig, Err: err}
	}

	a, err := app.New(cfg, c.streams)
	if err != nil {
		return err
	}
	return a.Run(cmd.Context())
}

// loadConfig reads file and environment values, then applies every flag
// given explicitly on the command line.
func (c *CLI) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := c.opts.configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("env") {
		cfg.Env = c.opts.env
	}
	if flags.Changed("path") {
		cfg.Path = c.opts.path
	}
	if flags.Changed("norecurse") {
		cfg.NoRecurse = c.opts.noRecurse
	}
	if flags.Changed("verbose") {
		cfg.Verbose = c.opts.verbose
	}
	if flags.Changed("watch") {
		cfg.Watch = c.opts.watch
	}
	if flags.Changed("nofeedback") {
		cfg.NoFeedback = c.opts.noFeedback
	}
	if flags.Changed("command") {
		cfg.Command = c.opts.command
	}
	if flags.Changed("forward") {
		cfg.ForwardFileName = c.opts.forwardFileName
	}
	if flags.Changed("nocmdwait") {
		cfg.NoWaitForCommand = c.opts.noWaitForCommand
	}
	if flags.Changed("ignore") {
		cfg.IgnorePaths = splitIgnore(c.opts.ignore)
	}

	if cfg.Path == "" {
		return nil, fmt.Errorf("required flag \"path\" not set")
	}
	return cfg, nil
}

func splitIgnore(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Fields(v)...)
	}
	return out
}
