package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ctf-portal/internal/domain/admin"
	"ctf-portal/internal/domain/flag"
	"ctf-portal/internal/domain/team"
)

func adminCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Platform administration",
	}
	cmd.AddCommand(
		adminUsersCommand(env),
		adminTeamsCommand(env),
		adminCompetitionsCommand(env),
		adminAuditTeamCommand(env),
		adminAuditCompetitionCommand(env),
		adminSubmissionsCommand(env),
	)
	return cmd
}

func adminUsersCommand(env *Env) *cobra.Command {
	var q admin.UserQuery
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users",
		Args:  cobra.NoArgs,
	}
	paging := pageFlags(cmd)
	cmd.Flags().StringVar(&q.Keyword, "keyword", "", "search by name or email")
	cmd.Flags().StringVar(&q.Sort, "sort", "", "sort field (createTime by default)")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		q.PageQuery = paging()
		page, err := env.svc.Admin.Users(cmd.Context(), q)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(page.Items))
		for _, u := range page.Items {
			status := "active"
			if !u.Active {
				status = "disabled"
			}
			rows = append(rows, []string{u.ID.String(), u.Name, string(u.Role), orDash(u.Email), status, env.ago(u.CreatedAt)})
		}
		if err := table(cmd.OutOrStdout(), []string{"ID", "NAME", "ROLE", "EMAIL", "STATUS", "JOINED"}, rows); err != nil {
			return err
		}
		footer(cmd.OutOrStdout(), page)
		return nil
	}
	return routed("/admin/users", cmd)
}

func adminTeamsCommand(env *Env) *cobra.Command {
	var (
		q    admin.TeamQuery
		comp int64
	)
	cmd := &cobra.Command{
		Use:   "teams",
		Short: "List teams for review",
		Args:  cobra.NoArgs,
	}
	paging := pageFlags(cmd)
	cmd.Flags().Int64Var(&comp, "competition", 0, "competition id")
	cmd.Flags().StringVar(&q.AuditState, "state", "", "review state: 0 pending, 1 approved, 2 rejected")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		q.PageQuery = paging()
		q.CompetitionID = idFlag(comp)
		page, err := env.svc.Admin.Teams(cmd.Context(), q)
		if err != nil {
			return err
		}
		if err := teamTable(cmd.OutOrStdout(), page.Items); err != nil {
			return err
		}
		footer(cmd.OutOrStdout(), page)
		return nil
	}
	return routed("/admin/teams", cmd)
}

func adminCompetitionsCommand(env *Env) *cobra.Command {
	var q admin.CompetitionQuery
	cmd := &cobra.Command{
		Use:   "competitions",
		Short: "List competitions for review",
		Args:  cobra.NoArgs,
	}
	paging := pageFlags(cmd)
	cmd.Flags().StringVar(&q.Status, "status", "", "status filter")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		q.PageQuery = paging()
		page, err := env.svc.Admin.Competitions(cmd.Context(), q)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(page.Items))
		for _, c := range page.Items {
			rows = append(rows, []string{c.ID.String(), c.Title, orDash(c.Status), orDash(c.AuditStatus), orDash(c.CreatorName), c.StartTime.Display("datetime")})
		}
		if err := table(cmd.OutOrStdout(), []string{"ID", "TITLE", "STATUS", "REVIEW", "CREATOR", "START"}, rows); err != nil {
			return err
		}
		footer(cmd.OutOrStdout(), page)
		return nil
	}
	return routed("/admin/competitions", cmd)
}

func adminAuditTeamCommand(env *Env) *cobra.Command {
	var state, remark string
	cmd := &cobra.Command{
		Use:   "audit-team <team-id>",
		Short: "Record a review decision on a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := idArg(args, 0)
			if err != nil {
				return err
			}
			t, err := env.svc.Admin.AuditTeam(cmd.Context(), id, state, remark)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Team %s is now %s\n", t.Name, team.AuditLabel(t.AuditState))
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", team.AuditApproved, "0 pending, 1 approved, 2 rejected")
	cmd.Flags().StringVar(&remark, "remark", "", "note for the captain")
	return routed("/admin/teams/audit", cmd)
}

func adminAuditCompetitionCommand(env *Env) *cobra.Command {
	var (
		reject bool
		remark string
	)
	cmd := &cobra.Command{
		Use:   "audit-competition <competition-id>",
		Short: "Approve (default) or reject a competition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := idArg(args, 0)
			if err != nil {
				return err
			}
			c, err := env.svc.Admin.AuditCompetition(cmd.Context(), id, !reject, remark)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Competition %s: %s\n", c.Title, orDash(c.AuditStatus))
			return nil
		},
	}
	cmd.Flags().BoolVar(&reject, "reject", false, "reject instead of approve")
	cmd.Flags().StringVar(&remark, "remark", "", "note for the organiser")
	return routed("/admin/competitions/audit", cmd)
}

func adminSubmissionsCommand(env *Env) *cobra.Command {
	var (
		q          flag.SubmissionQuery
		comp, user int64
	)
	cmd := &cobra.Command{
		Use:   "flag-submissions",
		Short: "Browse every flag submission",
		Args:  cobra.NoArgs,
	}
	paging := pageFlags(cmd)
	cmd.Flags().Int64Var(&comp, "competition", 0, "competition id")
	cmd.Flags().Int64Var(&user, "user", 0, "user id")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		q.PageQuery = paging()
		q.CompetitionID = idFlag(comp)
		q.UserID = idFlag(user)
		page, err := env.svc.Admin.FlagSubmissions(cmd.Context(), q)
		if err != nil {
			return err
		}
		if err := submissionTable(env, cmd, page.Items, true); err != nil {
			return err
		}
		footer(cmd.OutOrStdout(), page)
		return nil
	}
	return routed("/admin/flag-submissions", cmd)
}
