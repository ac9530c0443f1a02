package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/jobboard-crawler/internal/api"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ops HTTP server until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			instance, err := c.resolveApp()
			if err != nil {
				return err
			}
			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", c.cfg.Server.Port),
				Handler:           instance.OpsHandler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			return api.Serve(cmd.Context(), srv, c.logger.Named("api"))
		},
	}
}
