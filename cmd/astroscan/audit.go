package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/audit"
)

func newAuditCmd() *cobra.Command {
	var (
		limit int
		kind  string
		since time.Duration
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent chat queries and login attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, newLogger())
			if err != nil {
				return err
			}
			if cfg.Audit.DBPath == "" {
				return fmt.Errorf("audit log is not configured (set ASTROSCAN_AUDIT_DB or audit.db_path)")
			}

			l, err := audit.New(cfg.Audit.DBPath, 0)
			if err != nil {
				return err
			}
			defer l.Close()

			opts := audit.QueryOpts{Kind: kind, Limit: limit}
			if since > 0 {
				opts.Since = time.Now().UTC().Add(-since)
			}
			entries, err := l.Query(cmd.Context(), opts)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tKIND\tCLIENT\tDETAIL\tOK")
			for _, e := range entries {
				detail := e.Username
				if e.Kind == audit.KindChat {
					detail = fmt.Sprintf("%q -> %s", e.Query, e.Intent)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n",
					e.CreatedAt.Format(time.RFC3339), e.Kind, e.ClientIP, detail, e.Success)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum rows to show")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind (chat, login)")
	cmd.Flags().DurationVar(&since, "since", 0, "only show entries newer than this duration")
	return cmd
}
