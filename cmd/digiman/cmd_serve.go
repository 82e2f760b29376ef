package main

import (
	"github.com/spf13/cobra"

	"digiman/pkg/api"
)

// newServeCmd creates the "digiman serve" subcommand: the local JSON API
// used by the dashboard and the menu-bar app.
func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Server.ListenAddr
			}

			ctx, cleanup := SetupSignalHandler(cmd.Context(), "")
			defer cleanup()

			srv := &api.Server{
				Store:   a.store,
				History: a.history,
				Runner:  a.syncRunner(),
				Log:     a.log,
			}
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
