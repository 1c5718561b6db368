package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"briefcast/internal/briefindex"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search pushed briefs",
		Long:  "Search pushed briefs. The query uses bleve query-string syntax, for example\n  briefcast search 'Title:rust +compiler'",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			idx, err := briefindex.OpenReadOnly(cfg.Paths.IndexDir, 5*time.Second)
			if err != nil {
				return fmt.Errorf("%w (nothing has been pushed yet, or the index is busy)", err)
			}
			defer idx.Close()

			hits, err := idx.Search(strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(hits) == 0 {
				fmt.Fprintln(out, "No matching briefs")
				return nil
			}
			for i, hit := range hits {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "%s  [%s]  score %.2f\n", hit.Title, hit.VideoID, hit.Score)
				if hit.Source != "" {
					fmt.Fprintf(out, "  %s\n", hit.Source)
				}
				for _, fragment := range hit.Fragments["Brief"] {
					fmt.Fprintf(out, "  … %s\n", strings.Join(strings.Fields(fragment), " "))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum results")
	return cmd
}
