package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"keywatch/internal/config"
	"keywatch/internal/logging"
)

var cfgPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "keywatch",
		Short:         "keyword watcher for group chat",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "./keywatch.yaml", "path to config file")
	root.AddCommand(newRunCmd(), newCheckCmd(), newHistoryCmd())
	return root
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "validate the config file and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr := config.NewManager(cfgPath, logging.Console("warn"))
			cfg, err := mgr.Load()
			if err != nil {
				return err
			}
			rs := cfg.Watch.Rules()
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d keyword(s), mode %s, allow %s, deny %s\n",
				len(rs.Keywords), rs.Mode, rs.AllowScope, rs.DenyScope)
			return nil
		},
	}
}
