package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Sternrassler/gitdata/pkg/auth"
	"github.com/Sternrassler/gitdata/pkg/config"
	"github.com/Sternrassler/gitdata/pkg/logging"
	"github.com/Sternrassler/gitdata/pkg/metrics"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// app carries the I/O streams and loaded configuration shared by all commands.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	reader *bufio.Reader

	// Global flags
	configFile  string
	logLevel    string
	pretty      bool
	metricsFile string
	cacheDir    string
	baseURL     string
	maxPages    int

	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut, reader: bufio.NewReader(in)}

	var authUser, token string
	var deleteUser bool

	rootCmd := &cobra.Command{
		Use:   "gitdata",
		Short: "Get information from the GitHub REST API",
		Long: `gitdata retrieves organization, repo, team, member and collaborator data
from the GitHub REST API and writes it as CSV or JSON.

Credentials are GitHub personal access tokens stored per username in
github_users.ini (or the system keychain). Use --auth to manage them.

syntax help: gitdata <subcommand> -h`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.writeMetrics()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if authUser != "" {
				return a.authStatus(strings.ToLower(authUser), token, deleteUser)
			}
			fmt.Fprintln(a.out, "Nothing to do. Type gitdata -h for help.")
			return nil
		},
	}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().StringVarP(&authUser, "auth", "a", "", "GitHub username (for configuring access)")
	rootCmd.Flags().StringVarP(&token, "token", "t", "", "store access token for the --auth username (- to type it)")
	rootCmd.Flags().BoolVarP(&deleteUser, "delete", "d", false, "delete the --auth username")

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default is .gitdata.yaml or ~/.config/gitdata/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&a.pretty, "pretty", true, "human-readable log output")
	rootCmd.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this .prom file after the run")
	rootCmd.PersistentFlags().StringVar(&a.cacheDir, "cache-dir", "", "directory for cached API data")
	rootCmd.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "GitHub API base URL (for GitHub Enterprise)")
	rootCmd.PersistentFlags().IntVar(&a.maxPages, "max-pages", 0, "stop after this many pages per endpoint (0 = all)")

	rootCmd.AddCommand(
		newReposCmd(a),
		newMembersCmd(a),
		newTeamsCmd(a),
		newOrgsCmd(a),
		newCollabsCmd(a),
		newCountCmd(a),
		newDumpCmd(a),
	)

	return rootCmd
}

// setup loads the configuration and configures logging.
func (a *app) setup(cmd *cobra.Command) error {
	flags := make(map[string]any)
	if cmd.Flags().Changed("log-level") {
		flags["log-level"] = a.logLevel
	}
	if cmd.Flags().Changed("pretty") {
		flags["pretty"] = a.pretty
	}
	if cmd.Flags().Changed("metrics-file") {
		flags["metrics-file"] = a.metricsFile
	}
	if cmd.Flags().Changed("cache-dir") {
		flags["cache-dir"] = a.cacheDir
	}
	if cmd.Flags().Changed("base-url") {
		flags["base-url"] = a.baseURL
	}
	if cmd.Flags().Changed("max-pages") {
		flags["max-pages"] = a.maxPages
	}

	cfg, err := config.Load(a.configFile, flags)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.setupLogging(false)
	a.logger.Debug().
		Str("command", cmd.Name()).
		Str("base_url", cfg.GitHub.BaseURL).
		Str("cache_dir", cfg.Cache.Dir).
		Msg("Configuration loaded")
	return nil
}

func (a *app) setupLogging(verbose bool) {
	logging.Setup(logging.Config{
		Level:  logging.VerboseLevel(logging.LogLevel(a.cfg.Logging.Level), verbose),
		Pretty: a.cfg.Logging.Pretty,
		Output: a.errOut,
	})
	a.logger = logging.NewLogger("cli")
}

func (a *app) authManager() *auth.Manager {
	return auth.NewDefaultManager(auth.Options{
		Dir:        a.cfg.Auth.Dir,
		UseKeyring: a.cfg.Auth.UseKeyring,
	})
}

// authStatus stores or deletes the token of username, then shows the
// username and abbreviated token.
func (a *app) authStatus(username, token string, deleteUser bool) error {
	m := a.authManager()

	switch {
	case deleteUser:
		if err := m.DeleteToken(username); err != nil && !errors.Is(err, auth.ErrUnknownUser) {
			return err
		}
	case token == "-":
		typed, err := a.readToken()
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		if typed == "" {
			return errors.New("no token entered")
		}
		if err := m.SetToken(username, typed); err != nil {
			return err
		}
	case token != "":
		if err := m.SetToken(username, token); err != nil {
			return err
		}
	}

	status := m.Status(username)
	fmt.Fprintf(a.out, "  Username: %s\n", username)
	fmt.Fprintf(a.out, "     Token: %s\n", status.Token)
	return nil
}

// readToken reads a token from the terminal without echo, or a line from
// the input stream when it is not a terminal.
func (a *app) readToken() (string, error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.out, "Token: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := a.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *app) writeMetrics() error {
	if a.cfg == nil || a.cfg.Metrics.File == "" {
		return nil
	}
	if err := metrics.WriteTextfile(a.cfg.Metrics.File); err != nil {
		return err
	}
	a.logger.Debug().Str("file", a.cfg.Metrics.File).Msg("Metrics written")
	return nil
}
