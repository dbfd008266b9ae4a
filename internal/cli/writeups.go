package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ctf-portal/internal/domain/writeup"
)

// write-ups are reached from a competition page
const writeupsRoute = "/competitions"

func writeupsCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "writeups",
		Short: "Share and read write-ups",
	}
	cmd.AddCommand(writeupsListCommand(env), writeupsUploadCommand(env), writeupsDownloadCommand(env))
	return cmd
}

func writeupsListCommand(env *Env) *cobra.Command {
	var (
		comp, user int64
		search     string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List write-ups (yours by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var list []writeup.WriteUp
			switch {
			case search != "":
				list = env.svc.WriteUps.Search(ctx, search)
			case comp > 0:
				list = env.svc.WriteUps.ByCompetition(ctx, idFlag(comp))
			case user > 0:
				list = env.svc.WriteUps.ByUser(ctx, idFlag(user))
			default:
				list = env.svc.WriteUps.Mine(ctx)
			}
			rows := make([][]string, 0, len(list))
			for _, w := range list {
				rows = append(rows, []string{w.ID.String(), w.Title, orDash(w.AuthorName), orDash(w.CompetitionTitle), env.ago(w.CreatedAt)})
			}
			return table(cmd.OutOrStdout(), []string{"ID", "TITLE", "AUTHOR", "COMPETITION", "CREATED"}, rows)
		},
	}
	cmd.Flags().Int64Var(&comp, "competition", 0, "list a competition's write-ups")
	cmd.Flags().Int64Var(&user, "user", 0, "list a user's write-ups")
	cmd.Flags().StringVar(&search, "search", "", "search by keyword")
	return routed(writeupsRoute, cmd)
}

func writeupsUploadCommand(env *Env) *cobra.Command {
	var (
		req  writeup.UploadRequest
		comp int64
		file string
	)
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a write-up from a text file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			content, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read write-up: %w", err)
			}
			req.CompetitionID = idFlag(comp)
			req.Content = string(content)
			if req.Title == "" {
				req.Title = filepath.Base(file)
			}
			w, err := env.svc.WriteUps.Upload(cmd.Context(), &req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %q as #%s\n", w.Title, w.ID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&comp, "competition", 0, "competition id")
	cmd.Flags().StringVar(&req.Title, "title", "", "title (defaults to the file name)")
	cmd.Flags().StringVar(&file, "file", "", "path of the write-up")
	_ = cmd.MarkFlagRequired("file")
	return routed(writeupsRoute, cmd)
}

func writeupsDownloadCommand(env *Env) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Save a write-up to disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := idArg(args, 0)
			if err != nil {
				return err
			}
			att, err := env.svc.WriteUps.Download(cmd.Context(), id)
			if err != nil {
				return err
			}
			// the advertised name must not escape dir
			dest := filepath.Join(dir, filepath.Base(att.Filename))
			if err := os.WriteFile(dest, att.Data, 0o644); err != nil {
				return fmt.Errorf("save write-up: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", dest, humanize.Bytes(uint64(len(att.Data))))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "output", "o", ".", "directory to save into")
	return routed(writeupsRoute, cmd)
}
