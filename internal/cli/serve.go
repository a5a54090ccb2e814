package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/craftlaunch/pkg/profile"
	"github.com/matzehuels/craftlaunch/pkg/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local control API for a graphical front end",
		Long: `Serve a JSON API on a local address so a graphical shell can list versions,
profiles and runtimes, start a launch and poll its progress.

  GET  /versions?type=release   version list
  GET  /profiles                stored profiles
  GET  /java                    installed runtimes
  GET  /history?limit=20        recent launches
  POST /launch                  {"version": "...", "username": "...", "java_path": "..."}
  GET  /launch/progress         latest progress of the current attempt
  GET  /launch/error            last launch error, consumed on read`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, err := c.openServices(ctx, false)
			if err != nil {
				return err
			}
			defer svc.Close()

			profiles, err := profile.Open(svc.layout().Profiles())
			if err != nil {
				return err
			}
			ln, err := svc.launcher(ctx, nil)
			if err != nil {
				return err
			}
			hist, err := svc.openHistory(ctx)
			if err != nil {
				return err
			}

			if addr == "" {
				addr = svc.cfg.Server.Addr
			}
			srv := server.New(server.Deps{
				Launcher: ln,
				Versions: svc.catalog,
				Profiles: profiles,
				Runtimes: svc.runtimes(),
				History:  hist,
				JavaPath: svc.cfg.JavaPath,
			}, c.Logger)
			printInfo("Serving on http://%s", addr)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:25580)")
	return cmd
}
