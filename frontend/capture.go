package frontend

import (
	"fmt"
	"os"

	"github.com/jaoeul/ram-snap/capture"
	"github.com/jaoeul/ram-snap/iomem"
	"go.uber.org/zap"
)

// RunCapture finds the system RAM ranges and captures them to the configured
// output. Any error ends the run; nothing is retried.
func RunCapture(logger *zap.SugaredLogger, cfg *CaptureCfg) (*capture.Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Infow("=== Launching ram-snap ===",
		"iomem", cfg.IOMemPath,
		"device", cfg.DevicePath,
		"output", cfg.OutputPath,
	)

	ranges, err := iomem.FindRAM(cfg.IOMemPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to find system RAM: %w", err)
	}

	progress := cfg.Progress
	if progress == nil {
		progress = os.Stdout
	}

	w := capture.NewWriter(logger, progress, cfg.ChunkSize)

	summary, err := w.Capture(cfg.DevicePath, cfg.OutputPath, ranges)
	if err != nil {
		return summary, fmt.Errorf("failed to capture RAM: %w", err)
	}

	return summary, nil
}

// InitLogger returns a production logger, or a development logger (debug
// level, console encoding) when verbose is set.
func InitLogger(verbose bool) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)

	if verbose {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get zap logger: %w", err)
	}

	return l.Sugar(), nil
}
