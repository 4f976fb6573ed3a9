package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"keywatch/internal/config"
	"keywatch/internal/logging"
	"keywatch/internal/storage"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "print recently fired notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr := config.NewManager(cfgPath, logging.Console("warn"))
			cfg, err := mgr.Load()
			if err != nil {
				return err
			}
			busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
			if err != nil {
				return err
			}
			store, err := storage.Open(storage.Config{
				Driver:      cfg.Storage.Driver,
				Path:        cfg.Storage.Path,
				BusyTimeout: busyTimeout,
			}, logging.Console("warn"))
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("storage is disabled (storage.driver is empty)")
			}
			defer func() { _ = store.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			recs, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			for _, r := range recs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-12s  %s in #%s by %s: %s\n",
					r.At.Local().Format(time.RFC3339), r.Keyword, r.GuildID, r.ChannelID, r.AuthorTag, r.Content)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to print")
	return cmd
}
