package commands

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/muster/internal/app"
	"github.com/MrSnakeDoc/muster/internal/config"
)

type runFlags struct {
	services string
	listen   string
	workDir  string
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start all services and the status API",
		Example: `  # Start the services of a manifest
  muster run --services ./muster.yaml

  # Serve the API on another port
  MUSTER_LISTEN_PORT=:6000 muster run --services ./muster.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			f.apply(cfg)

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&f.services, "services", "s", "", "Service manifest (overrides MUSTER_SERVICE_FILE)")
	cmd.Flags().StringVarP(&f.listen, "listen", "l", "", "API listen address (overrides MUSTER_LISTEN_PORT)")
	cmd.Flags().StringVarP(&f.workDir, "workdir", "w", "", "Directory holding one folder per service (overrides MUSTER_WORK_DIR)")
	return cmd
}

func (f runFlags) apply(cfg *config.Config) {
	if f.services != "" {
		cfg.ServiceFile = f.services
	}
	if f.listen != "" {
		cfg.ListenPort = f.listen
	}
	if f.workDir != "" {
		cfg.WorkDir = f.workDir
	}
}
