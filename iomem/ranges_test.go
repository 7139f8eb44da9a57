package iomem

import (
	"os"
	"path"
	"strings"
	"testing"

	"github.com/jaoeul/ram-snap/fault"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestFindRAM(t *testing.T) {
	type testcase struct {
		filepath string
		ranges   []AddrRange
		err      error
	}

	cwd, err := os.Getwd()
	require.NoError(t, err)

	testIOMemRoot := path.Join(cwd, "../test-resources/iomem")

	cases := []testcase{
		{
			filepath: path.Join(testIOMemRoot, "1", "iomem"),
			ranges: []AddrRange{
				{Start: 0x1000, End: 0x9fbff},
				{Start: 0x100000, End: 0xbffdafff},
				{Start: 0x100000000, End: 0x23fffffff},
			},
		},
		{
			filepath: path.Join(testIOMemRoot, "2", "iomem"),
			ranges:   []AddrRange{},
		},
		{
			filepath: path.Join(testIOMemRoot, "3", "iomem"),
			ranges:   nil,
			err:      ErrBadAddress,
		},
		{
			filepath: path.Join(testIOMemRoot, "4", "iomem"),
			ranges: []AddrRange{
				{Start: 0, End: 0},
				{Start: 0, End: 0},
			},
		},
	}

	for _, c := range cases {
		t.Run(c.filepath, func(t *testing.T) {
			got, gotErr := FindRAM(c.filepath, zaptest.NewLogger(t).Sugar())

			require.Equal(t, c.ranges, got)
			if c.err != nil {
				require.ErrorIs(t, gotErr, c.err)
			} else {
				require.NoError(t, gotErr)
			}
		})
	}
}

func TestFindRAM_Unreadable(t *testing.T) {
	_, err := FindRAM(path.Join(t.TempDir(), "missing"), nil)

	require.Error(t, err)
	require.Equal(t, fault.IO, fault.KindOf(err))
}

func TestParseSystemRAM(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		ranges []AddrRange
		err    error
	}{
		{
			name:   "empty input",
			input:  "",
			ranges: []AddrRange{},
		},
		{
			name:  "single line",
			input: "1000-1fff : System RAM\n",
			ranges: []AddrRange{
				{Start: 0x1000, End: 0x1fff},
			},
		},
		{
			name:  "no trailing newline",
			input: "1000-1fff : System RAM",
			ranges: []AddrRange{
				{Start: 0x1000, End: 0x1fff},
			},
		},
		{
			name: "file order kept and duplicates not removed",
			input: strings.Join([]string{
				"100000000-23fffffff : System RAM",
				"00001000-0009fbff : System RAM",
				"00001000-0009fbff : System RAM",
			}, "\n"),
			ranges: []AddrRange{
				{Start: 0x100000000, End: 0x23fffffff},
				{Start: 0x1000, End: 0x9fbff},
				{Start: 0x1000, End: 0x9fbff},
			},
		},
		{
			name:  "nested entries are indented",
			input: "00000000-ffffffff : PCI Bus\n  00100000-00ffffff : System RAM\n",
			ranges: []AddrRange{
				{Start: 0x100000, End: 0xffffff},
			},
		},
		{
			name:  "uppercase hex",
			input: "ABC000-ABCFFF : System RAM\n",
			ranges: []AddrRange{
				{Start: 0xabc000, End: 0xabcfff},
			},
		},
		{
			name:   "non RAM lines ignored",
			input:  "00000000-00000fff : Reserved\nfee00000-fee00fff : Local APIC\n",
			ranges: []AddrRange{},
		},
		{
			name:  "label with trailing text",
			input: "1000-1fff : System RAM (hotplug)\n",
			err:   ErrMalformedLine,
		},
		{
			name:  "missing separator",
			input: "10001fff : System RAM\n",
			err:   ErrMalformedLine,
		},
		{
			name:  "too many separators",
			input: "1000-1fff-2fff : System RAM\n",
			err:   ErrMalformedLine,
		},
		{
			name:  "non hex start",
			input: "10g0-1fff : System RAM\n",
			err:   ErrBadAddress,
		},
		{
			name:  "non hex end",
			input: "1000-1fxf : System RAM\n",
			err:   ErrBadAddress,
		},
		{
			name:  "address overflows 64 bits",
			input: "1000-1ffffffffffffffff : System RAM\n",
			err:   ErrBadAddress,
		},
		{
			name:  "bad line after good ones",
			input: "1000-1fff : System RAM\n2000-2fff : System RAM\nzz-3fff : System RAM\n",
			err:   ErrBadAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSystemRAM(strings.NewReader(tt.input))

			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				require.Equal(t, fault.Format, fault.KindOf(err))
				require.Nil(t, got)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.ranges, got)
		})
	}
}

func TestParseSystemRAM_LineNumber(t *testing.T) {
	_, err := ParseSystemRAM(strings.NewReader("1000-1fff : System RAM\n\n2000 : System RAM\n"))

	require.ErrorIs(t, err, ErrMalformedLine)
	require.Contains(t, err.Error(), "line 3:")
}

func TestAddrRange(t *testing.T) {
	r := AddrRange{Start: 0x1000, End: 0x1fff}

	require.Equal(t, uint64(0xfff), r.Size())
	require.Equal(t, "0x1000-0x1fff", r.String())

	backwards := AddrRange{Start: 0x2000, End: 0x1000}
	require.Equal(t, ^uint64(0)-0xfff, backwards.Size())
}
