package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/jaoeul/ram-snap/fault"
)

// DefaultDevicePath exposes the machine's physical address space.
const DefaultDevicePath = "/dev/mem"

var (
	ErrShortRead   = errors.New("short read from device")
	ErrOffsetRange = errors.New("offset not addressable by seek")
)

// deviceReader is a buffered, seekable view of the physical memory device.
//
// seeking drops anything buffered, so a chunk is always read from the offset
// asked for.
type deviceReader struct {
	src io.ReadSeeker
	buf *bufio.Reader
}

func newDeviceReader(src io.ReadSeeker, size int) *deviceReader {
	return &deviceReader{
		src: src,
		buf: bufio.NewReaderSize(src, size),
	}
}

func (d *deviceReader) seek(offset uint64) error {
	if offset > math.MaxInt64 {
		return fault.New(fault.IO, "seek device", fmt.Errorf("%w: %#x", ErrOffsetRange, offset))
	}

	if _, err := d.src.Seek(int64(offset), io.SeekStart); err != nil {
		return fault.New(fault.IO, fmt.Sprintf("seek device to %#x", offset), err)
	}

	d.buf.Reset(d.src)

	return nil
}

// readChunk fills p entirely or fails.
func (d *deviceReader) readChunk(s Span, p []byte) error {
	n, err := io.ReadFull(d.buf, p)
	if err == nil {
		return nil
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fault.New(
			fault.IO,
			fmt.Sprintf("read chunk %s", s),
			fmt.Errorf("%w: got %d of %d bytes", ErrShortRead, n, len(p)),
		)
	}

	return fault.New(
		fault.IO,
		fmt.Sprintf("read chunk %s", s),
		fmt.Errorf("%w: got %d of %d bytes: %w", ErrShortRead, n, len(p), err),
	)
}
