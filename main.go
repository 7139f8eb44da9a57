package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jaoeul/ram-snap/fault"
	"github.com/jaoeul/ram-snap/frontend"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "read settings from a TOML file; flags take precedence",
			}, &cli.StringFlag{
				Name:  "iomem",
				Usage: "physical memory map to read System RAM ranges from",
				Value: frontend.DefaultCaptureCfg().IOMemPath,
			}, &cli.StringFlag{
				Name:  "device",
				Usage: "physical memory device to capture from",
				Value: frontend.DefaultCaptureCfg().DevicePath,
			}, &cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "capture document to create (overwritten if present)",
				Value:   frontend.DefaultCaptureCfg().OutputPath,
			}, &cli.Uint64Flag{
				Name:  "chunk-size",
				Usage: "bytes read from the device at a time",
				Value: frontend.DefaultCaptureCfg().ChunkSize,
			}, &cli.BoolFlag{
				Name:  "verbose",
				Usage: "log at debug level, including per-range chunk counts",
			},
		},
		Name:  "ram-snap",
		Usage: "capture the non-zero contents of physical RAM (needs root)",
		Action: func(cCtx *cli.Context) error {
			if nArgs := cCtx.Args().Len(); nArgs > 0 {
				_ = cli.ShowAppHelp(cCtx)

				return cli.Exit(
					fmt.Sprintf("\nERROR: Too many arguments! Expected 0, got %d", nArgs),
					1,
				)
			}

			cfg, err := buildCfg(cCtx)
			if err != nil {
				return cli.Exit(fmt.Sprintf("ram-snap couldn't load its configuration: %v", err), fault.ExitCode(err))
			}

			logger, err := frontend.InitLogger(cfg.Verbose)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			defer logger.Sync()

			if _, err := frontend.RunCapture(logger, cfg); err != nil {
				logger.Errorw("capture aborted", "kind", fault.KindOf(err).String(), "err", err)

				return cli.Exit(
					fmt.Sprintf("ram-snap encountered an error it couldn't recover from: %v", err),
					fault.ExitCode(err),
				)
			}

			return nil
		},
	}
}

// buildCfg layers explicitly set flags over the config file, if any, over the
// defaults.
func buildCfg(cCtx *cli.Context) (*frontend.CaptureCfg, error) {
	cfg := frontend.DefaultCaptureCfg()

	if path := cCtx.String("config"); path != "" {
		var err error

		cfg, err = frontend.LoadCaptureCfg(path)
		if err != nil {
			return nil, err
		}
	}

	if cCtx.IsSet("iomem") {
		cfg.IOMemPath = cCtx.String("iomem")
	}

	if cCtx.IsSet("device") {
		cfg.DevicePath = cCtx.String("device")
	}

	if cCtx.IsSet("output") {
		cfg.OutputPath = cCtx.String("output")
	}

	if cCtx.IsSet("chunk-size") {
		cfg.ChunkSize = cCtx.Uint64("chunk-size")
	}

	if cCtx.IsSet("verbose") {
		cfg.Verbose = cCtx.Bool("verbose")
	}

	return cfg, cfg.Validate()
}
