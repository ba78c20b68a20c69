// Package cli implements the useradmin command line client.
package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/daap14/useradmin/internal/auth"
	"github.com/daap14/useradmin/internal/client"
	"github.com/daap14/useradmin/internal/config"
	"github.com/daap14/useradmin/internal/project"
	"github.com/daap14/useradmin/internal/users"
)

// API is the part of the useradmin API the commands use.
type API interface {
	GetUsers(ctx context.Context) ([]auth.User, error)
	GetUserByEmail(ctx context.Context, email string) (*auth.User, error)
	DeleteUser(ctx context.Context, p users.DeletePayload) error
	UpdateGlobalRole(ctx context.Context, p users.RoleChangePayload) error
	ListTransferCandidates(ctx context.Context, excludingOwnerID uuid.UUID) ([]project.Project, error)
	Settings(ctx context.Context) (*client.Settings, error)
}

// Options customise the root command. Zero values select the real client,
// the interactive form and the configuration from the environment.
type Options struct {
	NewAPI     func(cfg config.CLIConfig) (API, error)
	Prompter   DeletionPrompter
	LoadConfig func() (*config.CLIConfig, error)
}

// app carries what the subcommands share once flags are parsed.
type app struct {
	opts Options
	cfg  config.CLIConfig
	api  API
}

func (a *app) projector() *users.Projector {
	return users.NewProjector(apiUsers{a.api}, a.api)
}

// apiUsers exposes the API as a user store so single lookups hit
// /users/by-email instead of downloading the list.
type apiUsers struct {
	api API
}

func (u apiUsers) List(ctx context.Context) ([]auth.User, error) {
	return u.api.GetUsers(ctx)
}

func (u apiUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return u.api.GetUserByEmail(ctx, email)
}

// NewRootCommand builds the useradmin command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.NewAPI == nil {
		opts.NewAPI = func(cfg config.CLIConfig) (API, error) { return client.New(cfg) }
	}
	if opts.Prompter == nil {
		opts.Prompter = FormPrompter{}
	}
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.LoadCLI
	}

	a := &app{opts: opts}

	var (
		server  string
		apiKey  string
		timeout time.Duration
		debug   bool
	)

	root := &cobra.Command{
		Use:           "useradmin",
		Short:         "Administer users of a useradmin server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setupLogger(cmd.ErrOrStderr(), debug)

			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("server") {
				cfg.Server = server
			}
			if flags.Changed("api-key") {
				cfg.APIKey = apiKey
			}
			if flags.Changed("timeout") {
				cfg.Timeout = timeout
			}
			a.cfg = *cfg

			slog.Debug("using server", "server", a.cfg.Server, "timeout", a.cfg.Timeout)
			a.api, err = opts.NewAPI(a.cfg)
			return err
		},
	}

	root.PersistentFlags().StringVar(&server, "server", "", "server URL (default $USERADMIN_SERVER or http://localhost:8080)")
	root.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key (default $USERADMIN_API_KEY)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 0, "request timeout (default $USERADMIN_TIMEOUT or 15s)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "log requests and decisions to stderr")

	root.AddCommand(
		usersCmd(a),
		eventsCmd(a),
		settingsCmd(a),
	)
	return root
}

func setupLogger(w io.Writer, debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// reportedError marks a failure the command already showed as an error toast.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }

func (e reportedError) Unwrap() error { return e.err }

// Execute runs the command tree with ctx and reports errors on stderr,
// unless the command already showed them.
func Execute(ctx context.Context, root *cobra.Command, stderr io.Writer) int {
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var reported reportedError
	if !errors.As(err, &reported) {
		root.SetErr(stderr)
		root.PrintErrln("Error:", err)
	}
	return 1
}
