package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"ctf-portal/internal/domain/team"
)

const teamsRoute = "/teams"

func teamsCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teams",
		Short: "Manage teams and membership",
	}
	cmd.AddCommand(
		teamsListCommand(env),
		teamsMineCommand(env),
		teamsCreateCommand(env),
		teamsApplyCommand(env),
		teamsLeaveCommand(env),
		teamsApplicationsCommand(env),
		teamsProcessCommand(env),
	)
	return cmd
}

func teamTable(out io.Writer, list []team.Team) error {
	rows := make([][]string, 0, len(list))
	for _, t := range list {
		rows = append(rows, []string{
			t.ID.String(), t.Name, orDash(t.CompetitionTitle), orDash(t.CaptainName), strconv.Itoa(len(t.Members)), team.AuditLabel(t.AuditState),
		})
	}
	return table(out, []string{"ID", "NAME", "COMPETITION", "CAPTAIN", "MEMBERS", "REVIEW"}, rows)
}

func teamsListCommand(env *Env) *cobra.Command {
	var (
		q    team.ListQuery
		comp int64
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List teams",
		Args:  cobra.NoArgs,
	}
	paging := pageFlags(cmd)
	cmd.Flags().Int64Var(&comp, "competition", 0, "competition id")
	cmd.Flags().StringVar(&q.Keyword, "keyword", "", "search by name")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		q.PageQuery = paging()
		q.CompetitionID = idFlag(comp)
		page, err := env.svc.Teams.List(cmd.Context(), q)
		if err != nil {
			return err
		}
		if err := teamTable(cmd.OutOrStdout(), page.Items); err != nil {
			return err
		}
		footer(cmd.OutOrStdout(), page)
		return nil
	}
	return routed(teamsRoute, cmd)
}

func teamsMineCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "List the teams you belong to",
		Args:  cobra.NoArgs,
	}
	paging := pageFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		page, err := env.svc.Teams.MyTeams(cmd.Context(), paging())
		if err != nil {
			return err
		}
		if len(page.Items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "You are not in any team yet")
			return nil
		}
		return teamTable(cmd.OutOrStdout(), page.Items)
	}
	return routed(teamsRoute, cmd)
}

func teamsCreateCommand(env *Env) *cobra.Command {
	var (
		req  team.CreateRequest
		comp int64
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a team for a competition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.CompetitionID = idFlag(comp)
			t, err := env.svc.Teams.Create(cmd.Context(), &req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created team %s (#%s), review: %s\n", t.Name, t.ID, team.AuditLabel(t.AuditState))
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "team name")
	cmd.Flags().Int64Var(&comp, "competition", 0, "competition id")
	cmd.Flags().StringVar(&req.Description, "description", "", "team description")
	return routed(teamsRoute, cmd)
}

func teamsApplyCommand(env *Env) *cobra.Command {
	var remark string
	cmd := &cobra.Command{
		Use:   "apply <team-id>",
		Short: "Ask to join a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := idArg(args, 0)
			if err != nil {
				return err
			}
			if elig := env.svc.Teams.CanJoin(cmd.Context(), id); !elig.CanJoin && elig.Reason != "" {
				return fmt.Errorf("cannot join team %s: %s", id, elig.Reason)
			}
			app, err := env.svc.Teams.Apply(cmd.Context(), id, remark)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Application #%s sent, status %s\n", app.ID, orDash(app.Status))
			return nil
		},
	}
	cmd.Flags().StringVar(&remark, "remark", "", "message for the captain")
	return routed(teamsRoute, cmd)
}

func teamsLeaveCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leave <team-id>",
		Short: "Leave a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := idArg(args, 0)
			if err != nil {
				return err
			}
			if err := env.svc.Teams.Leave(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Left team #%s\n", id)
			return nil
		},
	}
	return routed(teamsRoute, cmd)
}

func teamsApplicationsCommand(env *Env) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "applications <team-id>",
		Short: "List join requests for a team you captain",
		Args:  cobra.ExactArgs(1),
	}
	paging := pageFlags(cmd)
	cmd.Flags().StringVar(&status, "status", "", "PENDING, APPROVED or REJECTED")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		id, err := idArg(args, 0)
		if err != nil {
			return err
		}
		page, err := env.svc.Teams.Applications(cmd.Context(), id, team.ApplicationQuery{PageQuery: paging(), Status: status})
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(page.Items))
		for _, a := range page.Items {
			rows = append(rows, []string{a.ID.String(), orDash(a.ApplicantName), orDash(a.Status), orDash(a.Remark), env.ago(a.AppliedAt)})
		}
		if err := table(cmd.OutOrStdout(), []string{"ID", "APPLICANT", "STATUS", "REMARK", "APPLIED"}, rows); err != nil {
			return err
		}
		footer(cmd.OutOrStdout(), page)
		return nil
	}
	return routed(teamsRoute, cmd)
}

func teamsProcessCommand(env *Env) *cobra.Command {
	var (
		reject bool
		remark string
	)
	cmd := &cobra.Command{
		Use:   "process <application-id>",
		Short: "Approve (default) or reject a join request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := idArg(args, 0)
			if err != nil {
				return err
			}
			app, err := env.svc.Teams.ProcessApplication(cmd.Context(), id, !reject, remark)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Application #%s is now %s\n", app.ID, orDash(app.Status))
			return nil
		},
	}
	cmd.Flags().BoolVar(&reject, "reject", false, "reject instead of approve")
	cmd.Flags().StringVar(&remark, "remark", "", "note for the applicant")
	return routed(teamsRoute, cmd)
}
