// Package iomem locates the physical address ranges backed by system RAM.
package iomem

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jaoeul/ram-snap/fault"
	"go.uber.org/zap"
)

// DefaultPath is where the kernel publishes the physical memory map.
const DefaultPath = "/proc/iomem"

const (
	systemRAM      = "System RAM"
	systemRAMLabel = " : " + systemRAM
)

var (
	ErrMalformedLine = errors.New("malformed System RAM line")
	ErrBadAddress    = errors.New("invalid hexadecimal address")
)

// AddrRange holds the start and end of a region of physical memory, as
// reported by the memory map.
type AddrRange struct {
	Start uint64
	End   uint64
}

// Size is End - Start. It wraps if End < Start.
func (r AddrRange) Size() uint64 {
	return r.End - r.Start
}

func (r AddrRange) String() string {
	return fmt.Sprintf("%#x-%#x", r.Start, r.End)
}

// FindRAM will read the memory map at path and return every System RAM range
// in file order.
//
// logger may be nil.
func FindRAM(path string, logger *zap.SugaredLogger) ([]AddrRange, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fault.New(fault.IO, fmt.Sprintf("open %s", path), err)
	}
	defer f.Close()

	ranges, err := ParseSystemRAM(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if logger != nil {
		logger.Infow("found system RAM ranges", "path", path, "count", len(ranges))

		// non-root readers of /proc/iomem see every address as zero
		if len(ranges) > 0 && allZero(ranges) {
			logger.Warnw("memory map reports only zeroed addresses, are you running as root?", "path", path)
		}
	}

	return ranges, nil
}

// ParseSystemRAM parses a memory map in the /proc/iomem layout. Lines which
// don't mention System RAM are ignored; a System RAM line which can't be parsed
// fails the whole parse.
func ParseSystemRAM(r io.Reader) ([]AddrRange, error) {
	ranges := make([]AddrRange, 0)

	scanner := bufio.NewScanner(r)
	lineNr := 0

	for scanner.Scan() {
		lineNr++

		line := scanner.Text()
		if !strings.Contains(line, systemRAM) {
			continue
		}

		rng, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNr, err)
		}

		ranges = append(ranges, rng)
	}

	if err := scanner.Err(); err != nil {
		return nil, fault.New(fault.IO, "read memory map", err)
	}

	return ranges, nil
}

// parseLine expects `<hex-start>-<hex-end> : System RAM`, optionally indented.
func parseLine(line string) (AddrRange, error) {
	bounds := strings.Split(strings.TrimLeft(line, " \t"), "-")
	if len(bounds) != 2 {
		return AddrRange{}, fault.New(
			fault.Format,
			"split address pair",
			fmt.Errorf("%w: expected 2 tokens, got %d in %q", ErrMalformedLine, len(bounds), line),
		)
	}

	endTok, ok := strings.CutSuffix(bounds[1], systemRAMLabel)
	if !ok {
		return AddrRange{}, fault.New(
			fault.Format,
			"strip label",
			fmt.Errorf("%w: %q doesn't end with %q", ErrMalformedLine, line, systemRAMLabel),
		)
	}

	start, err := strconv.ParseUint(bounds[0], 16, 64)
	if err != nil {
		return AddrRange{}, fault.New(
			fault.Format,
			"parse start address",
			fmt.Errorf("%w %q: %w", ErrBadAddress, bounds[0], err),
		)
	}

	end, err := strconv.ParseUint(endTok, 16, 64)
	if err != nil {
		return AddrRange{}, fault.New(
			fault.Format,
			"parse end address",
			fmt.Errorf("%w %q: %w", ErrBadAddress, endTok, err),
		)
	}

	return AddrRange{
		Start: start,
		End:   end,
	}, nil
}

func allZero(ranges []AddrRange) bool {
	for _, r := range ranges {
		if r.Start != 0 || r.End != 0 {
			return false
		}
	}

	return true
}
