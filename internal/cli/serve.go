package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/liquidhelium/verilog-target-turing-complete/internal/server"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/cache"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/config"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/pipeline"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/yosys"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	var (
		addr       string
		configPath string
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP compile server",
		Long: `Run the compile server.

POST /compile?top=<name> with a Verilog body returns circuit.data bytes.
Several instances can share one synthesis cache through the redis
backend.`,
		RunE: func(c *cobra.Command, args []string) error {
			logger := loggerFromContext(c.Context())

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if addr == "" {
				addr = ":8080"
			}

			cch, err := buildCache(c.Context(), &cfg, noCache)
			if err != nil {
				logger.Warnf("Synthesis cache disabled: %v", err)
				cch = cache.NewNullCache()
			}
			runner := pipeline.NewRunner(cch, nil, &yosys.Runner{Bin: cfg.Yosys}, nil, logger)
			defer runner.Close()

			srv := &server.Server{
				Runner:     runner,
				Logger:     logger,
				ClockSpeed: cfg.ClockSpeed,
				WireColor:  cfg.WireColor,
			}
			logger.Info("compile server listening", "addr", addr)
			return http.ListenAndServe(addr, srv.Routes())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, else :8080)")
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default vttc.toml)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the synthesis cache")
	return cmd
}
