package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/cache"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/config"
)

// newCacheCmd creates the cache management command. It operates on the
// file backend only; redis deployments manage retention on the server
// side.
func newCacheCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the synthesis cache",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default vttc.toml)")

	info := &cobra.Command{
		Use:   "info",
		Short: "Show cache location and size",
		RunE: func(c *cobra.Command, args []string) error {
			fc, err := openFileCache(configPath)
			if err != nil {
				return err
			}
			defer fc.Close()
			entries, size, err := fc.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("%s %s\n", StyleDim.Render("location:"), StyleValue.Render(fc.Dir()))
			fmt.Printf("%s %s entries, %s bytes\n",
				StyleDim.Render("contents:"),
				StyleNumber.Render(fmt.Sprintf("%d", entries)),
				StyleNumber.Render(fmt.Sprintf("%d", size)))
			return nil
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached synthesis result",
		RunE: func(c *cobra.Command, args []string) error {
			fc, err := openFileCache(configPath)
			if err != nil {
				return err
			}
			defer fc.Close()
			if err := fc.Clear(); err != nil {
				return err
			}
			fmt.Println(StyleSuccess.Render("✓") + " cache cleared")
			return nil
		},
	}

	cmd.AddCommand(info)
	cmd.AddCommand(clear)
	return cmd
}

func openFileCache(configPath string) (*cache.FileCache, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cache.NewFileCache(cfg.CacheDir())
}
