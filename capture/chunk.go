package capture

import (
	"fmt"
	"iter"

	"github.com/jaoeul/ram-snap/iomem"
)

// DefaultChunkSize is the largest number of bytes read from the device at once.
const DefaultChunkSize = 4096

// Span is the absolute [Start, End) of one chunk.
type Span struct {
	Start uint64
	End   uint64
}

func (s Span) Len() uint64 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%#x-%#x", s.Start, s.End)
}

// Chunks splits r into contiguous spans of at most size bytes, in increasing
// offset order. Only the last span may be shorter than size. A range with
// End <= Start yields nothing.
func Chunks(r iomem.AddrRange, size uint64) iter.Seq[Span] {
	return func(yield func(Span) bool) {
		if size == 0 {
			return
		}

		for cursor := r.Start; cursor < r.End; {
			n := min(size, r.End-cursor)

			if !yield(Span{Start: cursor, End: cursor + n}) {
				return
			}

			cursor += n
		}
	}
}
