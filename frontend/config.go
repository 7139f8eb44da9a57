package frontend

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jaoeul/ram-snap/capture"
	"github.com/jaoeul/ram-snap/fault"
	"github.com/jaoeul/ram-snap/iomem"
)

// MaxChunkSize bounds the per-read buffer.
const MaxChunkSize = 1 << 20

var ErrInvalidConfig = errors.New("invalid capture config")

// CaptureCfg configures where ram-snap finds the memory map and device, and
// where the capture document is written.
type CaptureCfg struct {
	IOMemPath  string `toml:"iomem"`
	DevicePath string `toml:"device"`
	OutputPath string `toml:"output"`
	ChunkSize  uint64 `toml:"chunk_size"`
	Verbose    bool   `toml:"verbose"`

	Progress io.Writer `toml:"-"` // progress lines; stdout when nil
}

// DefaultCaptureCfg reads /proc/iomem and /dev/mem and writes ram.xml in the
// working directory, 4096 bytes at a time.
func DefaultCaptureCfg() *CaptureCfg {
	return &CaptureCfg{
		IOMemPath:  iomem.DefaultPath,
		DevicePath: capture.DefaultDevicePath,
		OutputPath: capture.DefaultOutputPath,
		ChunkSize:  capture.DefaultChunkSize,
	}
}

// LoadCaptureCfg reads a TOML config from path on top of the defaults. Keys
// which aren't part of CaptureCfg are rejected.
func LoadCaptureCfg(path string) (*CaptureCfg, error) {
	cfg := DefaultCaptureCfg()

	file, err := os.Open(path)
	if err != nil {
		return nil, fault.New(fault.Config, fmt.Sprintf("open config %s", path), err)
	}
	defer file.Close()

	md, err := toml.NewDecoder(file).Decode(cfg)
	if err != nil {
		return nil, fault.New(fault.Config, fmt.Sprintf("decode config %s", path), err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		return nil, fault.New(
			fault.Config,
			fmt.Sprintf("decode config %s", path),
			fmt.Errorf("%w: unknown keys %s", ErrInvalidConfig, strings.Join(keys, ", ")),
		)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that every path is set and the chunk size is usable.
func (c *CaptureCfg) Validate() error {
	var problems []string

	if c.IOMemPath == "" {
		problems = append(problems, "iomem path is empty")
	}

	if c.DevicePath == "" {
		problems = append(problems, "device path is empty")
	}

	if c.OutputPath == "" {
		problems = append(problems, "output path is empty")
	}

	if c.ChunkSize == 0 || c.ChunkSize > MaxChunkSize {
		problems = append(problems, fmt.Sprintf("chunk size %d not in [1, %d]", c.ChunkSize, MaxChunkSize))
	}

	if len(problems) > 0 {
		return fault.New(
			fault.Config,
			"validate config",
			fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; ")),
		)
	}

	return nil
}
