package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ctf-portal/internal/domain/auth"
	"ctf-portal/internal/guard"
	"ctf-portal/internal/session"
)

func loginCommand(env *Env) *cobra.Command {
	var creds session.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if creds.Password == "" {
				creds.Password = os.Getenv("CTF_PASSWORD")
			}
			p, err := env.svc.Session.Login(cmd.Context(), creds)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", p.Name, p.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&creds.Account, "account", "u", "", "account name")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "password (defaults to $CTF_PASSWORD)")
	return routed(guard.LoginPath, cmd)
}

func logoutCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !env.svc.Session.IsAuthenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			env.svc.Session.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func registerCommand(env *Env) *cobra.Command {
	var req auth.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := env.svc.Auth.Register(cmd.Context(), &req)
			if err != nil {
				return err
			}
			if user != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (id %s), you can log in now\n", user.Name, user.ID)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Registered, you can log in now")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.UserName, "name", "", "user name")
	f.StringVar(&req.Password, "password", "", "password")
	f.StringVar(&req.Phone, "phone", "", "mobile number")
	f.StringVar(&req.Email, "email", "", "email address")
	f.StringVar(&req.Gender, "gender", "", "gender")
	f.StringVar(&req.SchoolWorkunit, "school", "", "school or work unit")
	return routed("/register", cmd)
}

func whoamiCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := env.svc.Auth.Profile(cmd.Context())
			if err != nil {
				return err
			}
			return table(cmd.OutOrStdout(), []string{"ID", "NAME", "ROLE", "EMAIL", "PHONE", "SINCE"}, [][]string{{
				u.ID.String(), u.Name, string(u.Role), orDash(u.Email), orDash(u.Phone), u.CreatedAt.Display("date"),
			}})
		},
	}
	return routed("/profile", cmd)
}
