package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"briefcast/internal/config"
	"briefcast/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect tracked entries",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var stageFlag string
	var sourceFlag string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, optionally only those waiting at a stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				filter := queue.Filter{Source: strings.TrimSpace(sourceFlag), Limit: limit}
				var (
					entries []*queue.Entry
					err     error
				)
				if strings.TrimSpace(stageFlag) != "" {
					stage, parseErr := queue.ParseStage(stageFlag)
					if parseErr != nil {
						return parseErr
					}
					entries, err = store.Query(cmd.Context(), stage, filter)
				} else {
					entries, err = store.List(cmd.Context(), filter)
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No entries")
					return nil
				}
				fmt.Fprintln(out, renderEntryTable(entries))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&stageFlag, "stage", "s", "", "Only entries waiting at this stage (download, transcribe, summarize, push)")
	cmd.Flags().StringVar(&sourceFlag, "source", "", "Only entries from this source")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum rows (0 for all)")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show every field of one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entry id %q", args[0])
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				entry, err := store.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if entry == nil {
					return fmt.Errorf("entry %d not found", id)
				}
				out := cmd.OutOrStdout()
				rows := [][]string{
					{"ID", strconv.FormatInt(entry.ID, 10)},
					{"Video ID", entry.VideoID},
					{"URL", entry.WebpageURL},
					{"Source", entry.Source},
					{"Extractor", entry.Extractor},
					{"Title", entry.Title},
					{"Upload date", entry.UploadDate},
					{"Duration", formatDuration(entry.Duration)},
					{"Language", entry.Language},
					{"Inserted", entry.InsertedAt.Local().Format("2006-01-02 15:04:05")},
					{"Downloaded", yesNo(entry.Downloaded)},
					{"Transcribed", yesNo(entry.Transcribed)},
					{"Summarized", yesNo(entry.Summarized)},
					{"Pushed", yesNo(entry.Pushed)},
					{"File", entry.FilePath},
				}
				if !entry.DownloadedAt.IsZero() {
					rows = append(rows, []string{"Downloaded at", entry.DownloadedAt.Local().Format("2006-01-02 15:04:05")})
				}
				if entry.DownloadError != "" {
					rows = append(rows, []string{"Download error", entry.DownloadError})
				}
				fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}
}

func renderEntryTable(entries []*queue.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		next := string(e.NextStage())
		if next == "" {
			next = "done"
		}
		if e.DownloadError != "" {
			next += " (!)"
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.VideoID,
			truncate(e.Source, 28),
			truncate(e.Title, 48),
			next,
			humanize.Time(e.InsertedAt),
		})
	}
	return renderTable(
		[]string{"ID", "Video ID", "Source", "Title", "Next", "Inserted"},
		rows,
		[]columnAlignment{alignRight},
	)
}

func formatDuration(seconds int64) string {
	if seconds <= 0 {
		return ""
	}
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
