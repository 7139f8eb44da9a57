package capture

import (
	"fmt"
	"io"

	"github.com/jaoeul/ram-snap/iomem"
)

/* document framing
*
* the output keeps the bounds in both the opening and the closing tags, e.g.
*
*	<ram>
*		<range 0x1000-0x1fff>
*			<non-zero mem 0x1000-0x1fff>RAW</non-zero mem 0x1000-0x1fff>
*		</range 0x1000-0x1fff>
*	</ram>
*
* it isn't well-formed XML and consumers rely on the exact bytes, so leave it be.
 */

const (
	docOpen  = "<ram>"
	docClose = "\n</ram>"
)

func writeDocOpen(w io.Writer) error {
	_, err := io.WriteString(w, docOpen)
	return err
}

func writeDocClose(w io.Writer) error {
	_, err := io.WriteString(w, docClose)
	return err
}

func writeRangeOpen(w io.Writer, r iomem.AddrRange) error {
	_, err := fmt.Fprintf(w, "\n\t<range %#x-%#x>", r.Start, r.End)
	return err
}

func writeRangeClose(w io.Writer, r iomem.AddrRange) error {
	_, err := fmt.Fprintf(w, "\n\t</range %#x-%#x>", r.Start, r.End)
	return err
}

// writeChunk writes one non-zero chunk node with its raw bytes embedded as is.
func writeChunk(w io.Writer, s Span, data []byte) error {
	if _, err := fmt.Fprintf(w, "\n\t\t<non-zero mem %#x-%#x>", s.Start, s.End); err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n\t\t</non-zero mem %#x-%#x>", s.Start, s.End)
	return err
}
