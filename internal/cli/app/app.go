// Package app implements the sharebox command line client.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
	"github.com/aussiebroadwan/sharebox/pkg/credstore"
	"github.com/aussiebroadwan/sharebox/pkg/httpx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
	"github.com/spf13/pflag"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

var (
	// ErrUsage marks a malformed command line.
	ErrUsage = errors.New("usage error")

	// ErrNotLoggedIn is returned by commands that need a session when none
	// is stored.
	ErrNotLoggedIn = errors.New("not logged in, run `sharebox login`")
)

// App wires the configuration, credential store and API client for one
// invocation.
type App struct {
	cfg    Config
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger

	store  credstore.Store
	sqlite *credstore.SQLite
	client *apiclient.Client
}

// Option adjusts an App.
type Option func(*App)

// WithStore replaces the configured credential store.
func WithStore(s credstore.Store) Option {
	return func(a *App) { a.store = s }
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// New opens the credential store and builds the client.
func New(cfg Config, stdin io.Reader, stdout, stderr io.Writer, opts ...Option) (*App, error) {
	a := &App{
		cfg:    cfg,
		in:     bufio.NewReader(stdin),
		out:    stdout,
		errOut: stderr,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = slogx.New(slogx.Config{
			Service: "sharebox",
			Version: BuildVersion,
			Env:     "cli",
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  stderr,
		})
	}

	if a.store == nil {
		if err := a.openStore(); err != nil {
			return nil, err
		}
	}

	clientOpts := []apiclient.Option{
		apiclient.WithLogger(a.logger),
		apiclient.WithUserAgent(apiclient.DefaultUserAgent + "/" + BuildVersion),
		apiclient.WithRefreshCoalescing(cfg.CoalesceRefresh),
	}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, apiclient.WithTimeout(cfg.Timeout))
	}
	if cfg.RateLimit > 0 {
		clientOpts = append(clientOpts, apiclient.WithRateLimit(httpx.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit,
			Window:            time.Second,
			Burst:             cfg.RateLimit,
		}))
	}
	a.client = apiclient.New(cfg.BaseURL, a.store, clientOpts...)

	return a, nil
}

func (a *App) openStore() error {
	switch a.cfg.Store {
	case StoreMemory:
		a.store = credstore.NewMemory(credstore.TokenPair{})
	case StoreSQLite:
		db, err := credstore.OpenSQLite(credstore.SQLiteDSN(a.cfg.Database), a.cfg.Profile)
		if err != nil {
			return fmt.Errorf("failed to open credential database: %w", err)
		}
		a.sqlite = db.WithBaseURL(a.cfg.BaseURL)
		a.store = a.sqlite
	default:
		a.store = credstore.NewFile(a.cfg.CredentialsFile, a.cfg.Passphrase)
	}
	return nil
}

// Close releases the credential store.
func (a *App) Close() error {
	if a.sqlite != nil {
		return a.sqlite.Close()
	}
	return nil
}

// Client returns the API client.
func (a *App) Client() *apiclient.Client { return a.client }

// ============================================================================
// Dispatch
// ============================================================================

type command struct {
	name    string
	args    string
	summary string
	// session commands fail fast with ErrNotLoggedIn when logged out.
	session bool
	run     func(ctx context.Context, a *App, args []string) error
	sub     []command
}

func commands() []command {
	return []command{
		{name: "login", args: "[--username U] [--password-stdin] [--force]", summary: "log in and store the token pair", run: runLogin},
		{name: "logout", summary: "forget the stored token pair", run: runLogout},
		{name: "register", args: "--username U --email E [--password-stdin]", summary: "create an account", run: runRegister},
		{name: "status", summary: "show the stored session", run: runStatus},
		{name: "whoami", summary: "show the current user", session: true, run: runWhoami},
		{name: "health", summary: "show backend health", run: runHealth},
		{name: "profiles", summary: "list stored profiles (sqlite store)", run: runProfiles},
		{name: "config", summary: "inspect configuration", sub: []command{
			{name: "show", summary: "print the effective configuration", run: runConfigShow},
		}},
		{name: "users", summary: "look up and update accounts", sub: userCommands()},
		{name: "groups", summary: "manage groups", sub: groupCommands()},
		{name: "files", summary: "manage files", sub: fileCommands()},
		{name: "share", summary: "share files with users and groups", sub: shareCommands()},
	}
}

// Run executes the command named by args.
func (a *App) Run(ctx context.Context, args []string) error {
	return a.dispatch(ctx, "sharebox", commands(), args)
}

func (a *App) dispatch(ctx context.Context, prefix string, cmds []command, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.usage(prefix, cmds)
		if len(args) == 0 {
			return ErrUsage
		}
		return nil
	}

	for _, cmd := range cmds {
		if cmd.name != args[0] {
			continue
		}
		if cmd.sub != nil {
			return a.dispatch(ctx, prefix+" "+cmd.name, cmd.sub, args[1:])
		}
		if cmd.session {
			if err := a.requireSession(ctx); err != nil {
				return err
			}
		}
		return cmd.run(ctx, a, args[1:])
	}

	a.usage(prefix, cmds)
	return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
}

func (a *App) usage(prefix string, cmds []command) {
	fmt.Fprintf(a.errOut, "Usage: %s <command>\n\nCommands:\n", prefix)
	tw := newTable(a.errOut)
	for _, c := range cmds {
		name := c.name
		if c.args != "" {
			name += " " + c.args
		}
		fmt.Fprintf(tw, "  %s\t%s\n", name, c.summary)
	}
	_ = tw.Flush()
}

func (a *App) requireSession(ctx context.Context) error {
	ok, err := a.client.LoggedIn(ctx)
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}
	if !ok {
		return ErrNotLoggedIn
	}
	return nil
}

// present turns a 204 answer into an error for calls whose result the
// command needs.
func present[T any](v *T, err error) (*T, error) {
	if err == nil && v == nil {
		return nil, apiclient.ErrNoContent
	}
	return v, err
}

// flags returns a flag set for one command. Errors surface as ErrUsage.
func (a *App) flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func parse(fs *pflag.FlagSet, args []string, wantArgs int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	rest := fs.Args()
	if wantArgs >= 0 && len(rest) != wantArgs {
		return nil, fmt.Errorf("%w: %s expects %d argument(s), got %d", ErrUsage, fs.Name(), wantArgs, len(rest))
	}
	return rest, nil
}

// readSecret reads one line from stdin.
func (a *App) readSecret(prompt string) (string, error) {
	fmt.Fprint(a.errOut, prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read %s: %w", strings.TrimSuffix(strings.ToLower(prompt), ": "), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Hint returns advice for err suitable for the terminal, or "".
func Hint(err error) string {
	switch {
	case apiclient.RequiresLogin(err):
		return "your session has ended, run `sharebox login`"
	case apiclient.KindOf(err) == apiclient.KindTransport:
		return "check that the backend is reachable and base_url is correct"
	}
	return ""
}
