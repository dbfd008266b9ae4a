// Package cli is the ctfctl command tree. Every command that shows or changes
// platform state declares the portal route it stands for, and the route
// guard decides before the command runs.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ctf-portal/internal/api/client"
	"ctf-portal/internal/app"
	"ctf-portal/internal/config"
	"ctf-portal/internal/guard"
	"ctf-portal/internal/logging"
	"ctf-portal/internal/session"
	"ctf-portal/internal/validate"
)

const routeAnnotation = "route"

// Env carries what commands share. Fields left nil are filled from the
// configuration before the command runs.
type Env struct {
	Config *config.Config
	Store  session.Store
	Logger *zap.Logger
	Now    func() time.Time

	svc     *app.Services
	table   *guard.Table
	release func()
}

// NewRootCommand builds the command tree around env.
func NewRootCommand(env *Env) *cobra.Command {
	if env.Now == nil {
		env.Now = time.Now
	}
	env.table = guard.DefaultTable()

	root := &cobra.Command{
		Use:           "ctfctl",
		Short:         "Terminal client for the CTF platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := env.setup(cmd.Context(), cmd.ErrOrStderr()); err != nil {
				return err
			}
			return env.authorize(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			env.close()
		},
	}
	root.AddCommand(
		loginCommand(env),
		logoutCommand(env),
		registerCommand(env),
		whoamiCommand(env),
		competitionsCommand(env),
		challengesCommand(env),
		teamsCommand(env),
		leaderboardCommand(env),
		submissionsCommand(env),
		writeupsCommand(env),
		notificationsCommand(env),
		adminCommand(env),
	)
	return root
}

// Execute runs the tree with os args and reports whether it succeeded.
func Execute(ctx context.Context, env *Env, stderr io.Writer) int {
	root := NewRootCommand(env)
	if err := root.ExecuteContext(ctx); err != nil {
		env.close()
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func (e *Env) setup(ctx context.Context, stderr io.Writer) error {
	if e.Config == nil {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		e.Config = cfg
	}
	if err := e.Config.Validate(); err != nil {
		return err
	}
	if e.Logger == nil {
		logger, err := logging.New(e.Config.Logging)
		if err != nil {
			return err
		}
		e.Logger = logger
	}
	if e.Store == nil {
		store, release, err := app.OpenStore(ctx, e.Config, e.Logger)
		if err != nil {
			return err
		}
		e.Store, e.release = store, release
	}

	svc, err := app.New(e.Config.API, e.Store, validate.New(), e.Logger,
		client.WithNotifier(client.NotifierFunc(func(_ context.Context, n client.Notice) {
			fmt.Fprintf(stderr, "%s: %s\n", n.Level, n.Message)
		})),
		client.WithUnauthorizedHandler(func(context.Context) {
			fmt.Fprintln(stderr, "session expired, run `ctfctl login` again")
		}),
	)
	if err != nil {
		return err
	}
	if err := svc.Session.Restore(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	e.svc = svc
	return nil
}

// authorize runs the guard for the command's declared route, if any.
func (e *Env) authorize(cmd *cobra.Command) error {
	route, ok := cmd.Annotations[routeAnnotation]
	if !ok {
		return nil
	}
	d := e.table.Check(e.svc.State(), route)
	if d.Allow {
		return nil
	}
	switch d.Redirect {
	case guard.LoginPath:
		return fmt.Errorf("%s: run `ctfctl login` first", d.Reason)
	default:
		if p := e.svc.Session.Principal(); p != nil {
			return fmt.Errorf("%s (logged in as %s)", d.Reason, p.Name)
		}
		return fmt.Errorf("%s", d.Reason)
	}
}

func (e *Env) close() {
	if e.release != nil {
		e.release()
		e.release = nil
	}
	if e.Logger != nil {
		_ = e.Logger.Sync()
	}
}

func routed(route string, cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[routeAnnotation] = route
	return cmd
}
