// Package capture streams the contents of physical RAM ranges into a capture
// document, leaving out chunks that are entirely zero.
package capture

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/docker/go-units"
	"github.com/jaoeul/ram-snap/fault"
	"github.com/jaoeul/ram-snap/iomem"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultOutputPath is where the capture document goes unless told otherwise.
const DefaultOutputPath = "ram.xml"

// Summary reports what a capture requested and what it wrote.
type Summary struct {
	Ranges         int
	RequestedBytes uint64 // sum of range sizes
	NonZeroBytes   uint64 // raw bytes embedded in the document
	ChunksWritten  uint64
	ChunksSkipped  uint64 // all-zero chunks
}

// Writer captures RAM ranges from a physical memory device.
//
// Progress lines are written to the progress writer as ranges are processed;
// diagnostics go to the logger.
type Writer struct {
	logger    *zap.SugaredLogger
	progress  io.Writer
	chunkSize uint64
}

// NewWriter returns a Writer which reads chunkSize bytes at a time. A nil
// logger or progress writer discards output; a zero chunkSize means
// DefaultChunkSize.
func NewWriter(logger *zap.SugaredLogger, progress io.Writer, chunkSize uint64) *Writer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	if progress == nil {
		progress = io.Discard
	}

	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}

	return &Writer{
		logger:    logger,
		progress:  progress,
		chunkSize: chunkSize,
	}
}

// Capture reads ranges from the device at devicePath and writes the capture
// document to outputPath, replacing any file already there.
//
// On failure the output is left as far as it got.
func (w *Writer) Capture(devicePath, outputPath string, ranges []iomem.AddrRange) (_ *Summary, err error) {
	src, err := os.Open(devicePath)
	if err != nil {
		return nil, fault.New(fault.IO, fmt.Sprintf("open %s", devicePath), err)
	}
	defer multierr.AppendFunc(&err, func() error {
		return closeFile(src, devicePath)
	})

	dst, err := os.Create(outputPath)
	if err != nil {
		return nil, fault.New(fault.IO, fmt.Sprintf("create %s", outputPath), err)
	}
	defer multierr.AppendFunc(&err, func() error {
		return closeFile(dst, outputPath)
	})

	bw := bufio.NewWriter(dst)

	summary, docErr := w.WriteDocument(bw, src, ranges)
	flushErr := bw.Flush()

	if docErr != nil {
		return summary, docErr
	}

	if flushErr != nil {
		return summary, fault.New(fault.IO, fmt.Sprintf("flush %s", outputPath), flushErr)
	}

	fmt.Fprintf(w.progress, "Wrote %d bytes / %d MiB to %s\n",
		summary.NonZeroBytes, summary.NonZeroBytes/units.MiB, outputPath)

	w.logger.Infow("capture finished",
		"output", outputPath,
		"non_zero", units.BytesSize(float64(summary.NonZeroBytes)),
		"chunks_written", summary.ChunksWritten,
		"chunks_skipped", summary.ChunksSkipped,
	)

	return summary, nil
}

// WriteDocument writes the capture document for ranges to dst, reading chunks
// from src. Ranges are processed in the order given.
func (w *Writer) WriteDocument(dst io.Writer, src io.ReadSeeker, ranges []iomem.AddrRange) (*Summary, error) {
	summary := &Summary{
		Ranges: len(ranges),
	}

	for _, r := range ranges {
		summary.RequestedBytes += r.Size()
	}

	fmt.Fprintf(w.progress, "Total system RAM: %d / %d MiB\n",
		summary.RequestedBytes, summary.RequestedBytes/units.MiB)

	w.logger.Infow("capturing system RAM",
		"ranges", len(ranges),
		"requested", units.BytesSize(float64(summary.RequestedBytes)),
		"chunk_size", w.chunkSize,
	)

	dev := newDeviceReader(src, int(w.chunkSize))
	buf := make([]byte, w.chunkSize)
	zero := make([]byte, w.chunkSize)

	if err := writeDocOpen(dst); err != nil {
		return summary, fault.New(fault.IO, "write document open", err)
	}

	for _, r := range ranges {
		if err := w.captureRange(dst, dev, r, buf, zero, summary); err != nil {
			return summary, fmt.Errorf("failed to capture range %s: %w", r, err)
		}
	}

	if err := writeDocClose(dst); err != nil {
		return summary, fault.New(fault.IO, "write document close", err)
	}

	return summary, nil
}

func (w *Writer) captureRange(
	dst io.Writer,
	dev *deviceReader,
	r iomem.AddrRange,
	buf, zero []byte,
	summary *Summary,
) error {
	fmt.Fprintf(w.progress, "Processing system RAM range: <%#x-%#x>\n", r.Start, r.End)

	if r.End < r.Start {
		w.logger.Warnw("range ends before it starts, nothing to read", "range", r.String())
	}

	if err := writeRangeOpen(dst, r); err != nil {
		return fault.New(fault.IO, "write range open", err)
	}

	if err := dev.seek(r.Start); err != nil {
		return err
	}

	var written, skipped uint64

	for s := range Chunks(r, w.chunkSize) {
		p := buf[:s.Len()]

		if err := dev.readChunk(s, p); err != nil {
			return err
		}

		if bytes.Equal(p, zero[:len(p)]) {
			skipped++
			continue
		}

		if err := writeChunk(dst, s, p); err != nil {
			return fault.New(fault.IO, fmt.Sprintf("write chunk %s", s), err)
		}

		summary.NonZeroBytes += s.Len()
		written++
	}

	summary.ChunksWritten += written
	summary.ChunksSkipped += skipped

	if err := writeRangeClose(dst, r); err != nil {
		return fault.New(fault.IO, "write range close", err)
	}

	fmt.Fprintf(w.progress, "Range done: <%#x-%#x>\n", r.Start, r.End)

	w.logger.Debugw("range captured",
		"range", r.String(),
		"chunks_written", written,
		"chunks_skipped", skipped,
	)

	return nil
}

func closeFile(f *os.File, path string) error {
	if err := f.Close(); err != nil {
		return fault.New(fault.IO, fmt.Sprintf("close %s", path), err)
	}

	return nil
}
