package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"ctf-portal/internal/domain/challenge"
	"ctf-portal/internal/domain/competition"
)

func competitionsCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "competitions",
		Aliases: []string{"comp"},
		Short:   "Browse competitions",
	}
	cmd.AddCommand(competitionsListCommand(env), competitionsShowCommand(env))
	return cmd
}

func competitionsListCommand(env *Env) *cobra.Command {
	var q competition.ListQuery
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List competitions",
		Args:  cobra.NoArgs,
	}
	paging := pageFlags(cmd)
	cmd.Flags().StringVar(&q.Type, "type", "", "ongoing, upcoming, finished, my or all")
	cmd.Flags().StringVar(&q.Keyword, "keyword", "", "search by title")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		q.PageQuery = paging()
		page, err := env.svc.Competitions.List(cmd.Context(), q)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(page.Items))
		for _, c := range page.Items {
			rows = append(rows, []string{
				c.ID.String(), c.Title, orDash(c.Status), c.StartTime.Display("datetime"), c.EndTime.Display("datetime"), env.ago(c.EndTime),
			})
		}
		if err := table(cmd.OutOrStdout(), []string{"ID", "TITLE", "STATUS", "START", "END", "ENDS"}, rows); err != nil {
			return err
		}
		footer(cmd.OutOrStdout(), page)
		return nil
	}
	return routed("/competitions", cmd)
}

func competitionsShowCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one competition with its challenges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := idArg(args, 0)
			if err != nil {
				return err
			}
			c, err := env.svc.Competitions.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			challenges, err := env.svc.Challenges.ByCompetition(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (#%s)\n", c.Title, c.ID)
			fmt.Fprintf(out, "status:  %s\n", orDash(c.Status))
			fmt.Fprintf(out, "runs:    %s to %s\n", c.StartTime.Display("datetime"), c.EndTime.Display("datetime"))
			if c.TeamSizeLimit > 0 {
				fmt.Fprintf(out, "teams:   up to %d members\n", c.TeamSizeLimit)
			}
			if c.Introduction != "" {
				fmt.Fprintf(out, "\n%s\n", c.Introduction)
			}
			fmt.Fprintln(out)
			return challengeTable(out, challenges)
		},
	}
	return routed("/competitions/:id", cmd)
}

func challengeTable(out io.Writer, list []challenge.Challenge) error {
	rows := make([][]string, 0, len(list))
	for _, c := range list {
		rows = append(rows, []string{
			c.ID.String(), c.Title, orDash(c.Category), orDash(c.Difficulty), strconv.Itoa(c.Points), strconv.Itoa(c.SolveCount), yesNo(c.Solved),
		})
	}
	return table(out, []string{"ID", "TITLE", "CATEGORY", "DIFFICULTY", "POINTS", "SOLVES", "SOLVED"}, rows)
}
