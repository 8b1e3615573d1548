package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rileyhilliard/shipr/internal/errors"
	"github.com/rileyhilliard/shipr/internal/source"
	"github.com/rileyhilliard/shipr/internal/ui"
	"github.com/spf13/cobra"
)

var (
	reposLimit int
	reposJSON  bool
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List your GitHub repositories",
	Long: `List repositories the authenticated gh user can deploy.

Examples:
  shipr repos
  shipr repos --limit 100 --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		return reposCommand(cmd.Context(), a.source, reposLimit, reposJSON, cmd.OutOrStdout())
	},
}

func init() {
	reposCmd.Flags().IntVar(&reposLimit, "limit", 30, "maximum number of repositories to list")
	reposCmd.Flags().BoolVar(&reposJSON, "json", false, "output in JSON format")
	rootCmd.AddCommand(reposCmd)
}

type repoLister interface {
	Repos(ctx context.Context, limit int) ([]source.Repo, error)
}

func reposCommand(ctx context.Context, lister repoLister, limit int, jsonOut bool, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	repos, err := lister.Repos(ctx, limit)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrSource,
			"Couldn't list repositories",
			"Check that gh is installed and 'gh auth status' succeeds.")
	}

	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if repos == nil {
			repos = []source.Repo{}
		}
		return enc.Encode(repos)
	}

	if len(repos) == 0 {
		fmt.Fprintln(out, "No repositories found.")
		return nil
	}

	rows := make([][]string, len(repos))
	for i, r := range repos {
		lang := r.PrimaryLanguage.Name
		if lang == "" {
			lang = "-"
		}
		rows[i] = []string{r.NameWithOwner, formatVisibility(r.Visibility), lang, formatAge(r.UpdatedAt, time.Now())}
	}
	fmt.Fprintln(out, ui.RenderSimpleTable([]ui.TableColumn{
		{Title: "NAME", Width: 36},
		{Title: "VISIBILITY", Width: 10},
		{Title: "LANGUAGE", Width: 12},
		{Title: "UPDATED", Width: 14},
	}, rows))
	return nil
}

func formatVisibility(v string) string {
	switch v {
	case "PUBLIC":
		return "public"
	case "PRIVATE":
		return "private"
	case "INTERNAL":
		return "internal"
	case "":
		return "-"
	default:
		return v
	}
}

// formatAge renders how long ago t was, coarsely.
func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}
