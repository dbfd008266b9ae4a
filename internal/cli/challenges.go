package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ctf-portal/internal/domain/challenge"
)

const problemsRoute = "/problems"

func challengesCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "challenges",
		Aliases: []string{"ch"},
		Short:   "Browse and solve challenges",
	}
	cmd.AddCommand(challengesListCommand(env), challengesShowCommand(env), challengesSubmitCommand(env))
	return cmd
}

func challengesListCommand(env *Env) *cobra.Command {
	var (
		q    challenge.ListQuery
		comp int64
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List challenges",
		Args:  cobra.NoArgs,
	}
	paging := pageFlags(cmd)
	f := cmd.Flags()
	f.Int64Var(&comp, "competition", 0, "competition id")
	f.StringVar(&q.Category, "category", "", "category filter")
	f.StringVar(&q.Difficulty, "difficulty", "", "Easy, Medium or Hard")
	f.StringVar(&q.Keyword, "keyword", "", "search by title")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		q.PageQuery = paging()
		q.CompetitionID = idFlag(comp)
		page, err := env.svc.Challenges.List(cmd.Context(), q)
		if err != nil {
			return err
		}
		if err := challengeTable(cmd.OutOrStdout(), page.Items); err != nil {
			return err
		}
		footer(cmd.OutOrStdout(), page)
		return nil
	}
	return routed(problemsRoute, cmd)
}

func challengesShowCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a challenge and its hints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := idArg(args, 0)
			if err != nil {
				return err
			}
			c, err := env.svc.Challenges.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			hints := env.svc.Challenges.Hints(cmd.Context(), id)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (#%s)\n", c.Title, c.ID)
			fmt.Fprintf(out, "category:   %s\n", orDash(c.Category))
			fmt.Fprintf(out, "difficulty: %s\n", orDash(c.Difficulty))
			fmt.Fprintf(out, "points:     %d\n", c.Points)
			fmt.Fprintf(out, "solved:     %s\n", yesNo(c.Solved))
			if c.AttachmentURL != "" {
				fmt.Fprintf(out, "attachment: %s\n", c.AttachmentURL)
			}
			if c.Description != "" {
				fmt.Fprintf(out, "\n%s\n", c.Description)
			}
			if c.Hint != "" {
				fmt.Fprintf(out, "\nhint: %s\n", c.Hint)
			}
			for i, h := range hints {
				fmt.Fprintf(out, "hint %d (%d points): %s\n", i+1, h.Cost, h.Content)
			}
			return nil
		},
	}
	return routed(problemsRoute, cmd)
}

func challengesSubmitCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <id> <flag>",
		Short: "Submit a flag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := idArg(args, 0)
			if err != nil {
				return err
			}
			res, err := env.svc.Challenges.Submit(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case res.Correct:
				fmt.Fprintf(out, "Correct! +%d points\n", res.PointsAwarded)
			case res.AlreadySolved:
				fmt.Fprintln(out, "Already solved")
			default:
				fmt.Fprintln(out, "Wrong flag")
			}
			if res.Message != "" {
				fmt.Fprintln(out, res.Message)
			}
			return nil
		},
	}
	return routed(problemsRoute, cmd)
}
