package command

import (
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ldtoolkit/legdb/clog"
	lhttp "github.com/ldtoolkit/legdb/internal/http"
)

func NewHttpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve an HTTP endpoint on the given host and port.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := mustSetupProfile(cmd)
			defer mustFinishProfile(p)

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			qs, err := openForQueries(cmd, cfg)
			if err != nil {
				return err
			}
			defer qs.Close()

			h := lhttp.SetupRoutes(qs, &lhttp.Config{
				ReadOnly: cfg.ReadOnly,
				Timeout:  cfg.Timeout,
				Batch:    cfg.Batch,
				Options:  cfg.QueryOptions(),
			})
			addr := cfg.Address()
			if host, _ := cmd.Flags().GetString("host"); host != "" {
				addr = host
			}
			phost := addr
			if host, port, err := net.SplitHostPort(addr); err == nil && host == "" {
				phost = net.JoinHostPort("localhost", port)
			}
			clog.Infof("listening on %s, API at http://%s/api/v1/", addr, phost)
			srv := &http.Server{
				Addr:              addr,
				Handler:           h,
				ReadHeaderTimeout: 10 * time.Second,
			}
			return srv.ListenAndServe()
		},
	}
	cmd.Flags().String("host", "", "host:port to listen on (defaults to http.host and http.port)")
	cmd.Flags().Bool("read_only", false, "disable writing via HTTP")
	registerQueryFlags(cmd)
	return cmd
}
