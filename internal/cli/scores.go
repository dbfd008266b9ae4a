package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"ctf-portal/internal/domain/flag"
	"ctf-portal/internal/guard"
)

func leaderboardCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "leaderboard <competition-id>",
		Aliases: []string{"lb"},
		Short:   "Show a competition's ranking",
		Args:    cobra.ExactArgs(1),
	}
	paging := pageFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		id, err := idArg(args, 0)
		if err != nil {
			return err
		}
		page, err := env.svc.Flags.Leaderboard(cmd.Context(), id, paging())
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(page.Items))
		for _, e := range page.Items {
			rows = append(rows, []string{strconv.Itoa(e.Rank), e.EntityName, strconv.Itoa(e.TotalScore), strconv.Itoa(e.SolveCount)})
		}
		if err := table(cmd.OutOrStdout(), []string{"RANK", "NAME", "SCORE", "SOLVES"}, rows); err != nil {
			return err
		}
		footer(cmd.OutOrStdout(), page)
		return nil
	}
	return routed("/leaderboard", cmd)
}

func submissionsCommand(env *Env) *cobra.Command {
	var comp int64
	cmd := &cobra.Command{
		Use:   "submissions",
		Short: "List your flag submissions",
		Args:  cobra.NoArgs,
	}
	paging := pageFlags(cmd)
	cmd.Flags().Int64Var(&comp, "competition", 0, "competition id")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		page, err := env.svc.Flags.MySubmissions(cmd.Context(), flag.SubmissionQuery{PageQuery: paging(), CompetitionID: idFlag(comp)})
		if err != nil {
			return err
		}
		if err := submissionTable(env, cmd, page.Items, false); err != nil {
			return err
		}
		footer(cmd.OutOrStdout(), page)
		return nil
	}
	return routed(guard.LandingPath, cmd)
}

func submissionTable(env *Env, cmd *cobra.Command, list []flag.Submission, withUser bool) error {
	header := []string{"ID", "CHALLENGE", "RESULT", "POINTS", "SUBMITTED"}
	if withUser {
		header = append(header, "USER", "TEAM")
	}
	rows := make([][]string, 0, len(list))
	for _, s := range list {
		result := "wrong"
		if s.Correct {
			result = "correct"
		}
		row := []string{s.ID.String(), orDash(s.ChallengeTitle), result, fmt.Sprint(s.PointsAwarded), env.ago(s.SubmittedAt)}
		if withUser {
			row = append(row, orDash(s.UserName), orDash(s.TeamName))
		}
		rows = append(rows, row)
	}
	return table(cmd.OutOrStdout(), header, rows)
}

func notificationsCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Show recent notices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := env.svc.Session.Principal()
			list := env.svc.Notifications.All(cmd.Context(), *p)
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing new")
				return nil
			}
			now := env.Now()
			rows := make([][]string, 0, len(list))
			for _, n := range list {
				rows = append(rows, []string{relTime(n.Time, now), n.Title, n.Message})
			}
			return table(cmd.OutOrStdout(), []string{"WHEN", "TITLE", "MESSAGE"}, rows)
		},
	}
	return routed("/notifications", cmd)
}
