package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/neows"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/views"
)

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the feed once and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			cfg, err := loadConfig(cmd, logger)
			if err != nil {
				return err
			}

			fetcher := neows.NewFetcher(cfg.NeowsConfig(), logger)
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			snap, err := fetcher.FetchFeed(ctx)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), snap.Feed, cfg.AlertThresholdKM, logger)
			return nil
		},
	}
}

func printSummary(w io.Writer, feed *neows.Feed, thresholdKM float64, logger *slog.Logger) {
	bot := views.NewChatbot(logger)
	src := staticSource{snap: &neows.Snapshot{Feed: feed}}
	ctx := context.Background()

	fmt.Fprintf(w, "Dates: %d, objects: %d (element_count %d)\n",
		len(feed.NearEarthObjects), len(feed.Objects()), feed.ElementCount)
	for _, b := range feed.NearEarthObjects {
		fmt.Fprintf(w, "  %s: %d objects\n", b.Date, len(b.Objects))
	}
	for _, q := range []string{"hazardous", "closest", "fastest"} {
		fmt.Fprintf(w, "%s\n", bot.Answer(ctx, q, src).Response)
	}

	alerts := views.Alerts(feed, thresholdKM)
	fmt.Fprintf(w, "Alerts under %.0f km: %d\n", thresholdKM, len(alerts))
	for _, a := range alerts {
		flag := ""
		if a.Hazardous {
			flag = " [HAZARDOUS]"
		}
		fmt.Fprintf(w, "  %s at %.0f km%s\n", a.Name, a.DistanceKM, flag)
	}
}

// staticSource serves one already-fetched snapshot to the chatbot.
type staticSource struct {
	snap *neows.Snapshot
}

func (s staticSource) Get(context.Context) (*neows.Snapshot, error) {
	return s.snap, nil
}

func (s staticSource) Peek() (*neows.Snapshot, time.Time, bool) {
	return s.snap, time.Time{}, true
}
