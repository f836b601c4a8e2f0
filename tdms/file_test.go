package tdms

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test fixtures are built byte by byte; the helpers below keep the
// segment plumbing out of the test bodies.

func u32b(order binary.ByteOrder, v uint32) []byte {
	b := make([]byte, 4)
	order.PutUint32(b, v)
	return b
}

func u64b(order binary.ByteOrder, v uint64) []byte {
	b := make([]byte, 8)
	order.PutUint64(b, v)
	return b
}

func f64b(order binary.ByteOrder, v float64) []byte {
	return u64b(order, math.Float64bits(v))
}

func lstr(order binary.ByteOrder, s string) []byte {
	return append(u32b(order, uint32(len(s))), s...)
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// segment assembles a lead-in plus metadata and raw areas. The ToC mask
// is always little-endian; the rest follows the ToC's endian flag.
func segment(toc uint32, meta, raw []byte) []byte {
	order := binary.ByteOrder(binary.LittleEndian)
	if toc&tocBigEndian != 0 {
		order = binary.BigEndian
	}
	var b bytes.Buffer
	b.Write(segmentTag)
	b.Write(u32b(binary.LittleEndian, toc))
	b.Write(u32b(order, version2_0))
	b.Write(u64b(order, uint64(len(meta)+len(raw))))
	b.Write(u64b(order, uint64(len(meta))))
	b.Write(meta)
	b.Write(raw)
	return b.Bytes()
}

// propsNone is the zero-length property table.
func propsNone(order binary.ByteOrder) []byte {
	return u32b(order, 0)
}

// objNoData is a metadata object that only carries properties.
func objNoData(order binary.ByteOrder, path string, props []byte) []byte {
	return cat(lstr(order, path), u32b(order, rawIndexNoData), props)
}

// objFixed is a metadata object declaring n values of a fixed-size type.
func objFixed(order binary.ByteOrder, path string, dt DataType, n uint64, props []byte) []byte {
	return cat(
		lstr(order, path),
		u32b(order, 20), // index length; anything outside the marker values
		u32b(order, uint32(dt)),
		u32b(order, 1),
		u64b(order, n),
		props,
	)
}

// objString is a metadata object declaring a string channel.
func objString(order binary.ByteOrder, path string, n, totalSize uint64, props []byte) []byte {
	return cat(
		lstr(order, path),
		u32b(order, 28),
		u32b(order, uint32(TypeString)),
		u32b(order, 1),
		u64b(order, n),
		u64b(order, totalSize),
		props,
	)
}

// objMatchPrev reuses the object's previous raw index.
func objMatchPrev(order binary.ByteOrder, path string, props []byte) []byte {
	return cat(lstr(order, path), u32b(order, rawIndexMatchPrev), props)
}

// meta assembles the object count plus object blocks.
func meta(order binary.ByteOrder, objs ...[]byte) []byte {
	return cat(append([][]byte{u32b(order, uint32(len(objs)))}, objs...)...)
}

func prop(order binary.ByteOrder, name string, dt DataType, value []byte) []byte {
	return cat(lstr(order, name), u32b(order, uint32(dt)), value)
}

func props(order binary.ByteOrder, ps ...[]byte) []byte {
	return cat(append([][]byte{u32b(order, uint32(len(ps)))}, ps...)...)
}

func readBytes(t *testing.T, data []byte) *File {
	t.Helper()
	f, err := Read(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return f
}

const fullToc = tocMetaData | tocNewObjList | tocRawData

func TestReadSingleSegment(t *testing.T) {
	le := binary.ByteOrder(binary.LittleEndian)

	m := meta(le,
		objNoData(le, "/", props(le,
			prop(le, "StartTime", TypeString, lstr(le, "10:15:15")),
		)),
		objNoData(le, "/'Part_A'", props(le,
			prop(le, "layerThickness", TypeDoubleFloat, f64b(le, 0.03)),
		)),
		objFixed(le, "/'Part_A'/'Area'", TypeDoubleFloat, 3, propsNone(le)),
		objFixed(le, "/'Part_A'/'Intensity'", TypeInt32, 3, propsNone(le)),
	)
	raw := cat(
		f64b(le, 1.5), f64b(le, 2.5), f64b(le, 3.5),
		u32b(le, 7), u32b(le, 8), u32b(le, 9),
	)

	f := readBytes(t, segment(fullToc, m, raw))

	assert.Equal(t, "10:15:15", f.Props["StartTime"])
	require.Len(t, f.Groups, 1)

	g := f.Group("Part_A")
	require.NotNil(t, g)
	assert.Equal(t, 0.03, g.Props["layerThickness"])
	require.Len(t, g.Channels, 2)
	assert.Equal(t, "Area", g.Channels[0].Name)
	assert.Equal(t, "Intensity", g.Channels[1].Name)

	area := g.Channel("Area")
	require.NotNil(t, area)
	assert.Equal(t, TypeDoubleFloat, area.DataType)
	assert.Equal(t, 3, area.Len())
	if diff := cmp.Diff([]float64{1.5, 2.5, 3.5}, area.Data()); diff != "" {
		t.Errorf("Area data mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int32{7, 8, 9}, g.Channel("Intensity").Data()); diff != "" {
		t.Errorf("Intensity data mismatch (-want +got):\n%s", diff)
	}
}

func TestReadIncrementalSegments(t *testing.T) {
	le := binary.ByteOrder(binary.LittleEndian)

	first := segment(fullToc,
		meta(le, objFixed(le, "/'P'/'Area'", TypeDoubleFloat, 2, propsNone(le))),
		cat(f64b(le, 1), f64b(le, 2)),
	)
	// No metadata at all: the previous object list carries over.
	second := segment(tocRawData, nil, cat(f64b(le, 3), f64b(le, 4)))
	// Metadata without a new object list: the index is reused by marker.
	third := segment(tocMetaData|tocRawData,
		meta(le, objMatchPrev(le, "/'P'/'Area'", propsNone(le))),
		cat(f64b(le, 5), f64b(le, 6)),
	)

	f := readBytes(t, cat(first, second, third))

	area := f.Group("P").Channel("Area")
	require.NotNil(t, area)
	if diff := cmp.Diff([]float64{1, 2, 3, 4, 5, 6}, area.Data()); diff != "" {
		t.Errorf("accumulated data mismatch (-want +got):\n%s", diff)
	}
}

func TestReadChannelDropsOutOfSegment(t *testing.T) {
	le := binary.ByteOrder(binary.LittleEndian)

	first := segment(fullToc,
		meta(le,
			objFixed(le, "/'P'/'A'", TypeDoubleFloat, 1, propsNone(le)),
			objFixed(le, "/'P'/'B'", TypeDoubleFloat, 1, propsNone(le)),
		),
		cat(f64b(le, 1), f64b(le, 10)),
	)
	// B bows out; only A's values follow.
	second := segment(tocMetaData|tocRawData,
		meta(le, objNoData(le, "/'P'/'B'", propsNone(le))),
		f64b(le, 2),
	)

	f := readBytes(t, cat(first, second))

	if diff := cmp.Diff([]float64{1, 2}, f.Group("P").Channel("A").Data()); diff != "" {
		t.Errorf("A data mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{10}, f.Group("P").Channel("B").Data()); diff != "" {
		t.Errorf("B data mismatch (-want +got):\n%s", diff)
	}
}

func TestReadMultiChunkSegment(t *testing.T) {
	le := binary.ByteOrder(binary.LittleEndian)

	// One chunk is 2 values; the raw area holds two chunks.
	seg := segment(fullToc,
		meta(le, objFixed(le, "/'P'/'A'", TypeInt16, 2, propsNone(le))),
		cat(
			[]byte{1, 0, 2, 0},
			[]byte{3, 0, 4, 0},
		),
	)

	f := readBytes(t, seg)
	if diff := cmp.Diff([]int16{1, 2, 3, 4}, f.Group("P").Channel("A").Data()); diff != "" {
		t.Errorf("chunked data mismatch (-want +got):\n%s", diff)
	}
}

func TestReadStringChannel(t *testing.T) {
	le := binary.ByteOrder(binary.LittleEndian)

	// "hello", "", "abc": end offsets 5, 5, 8; total = 3*4 + 8.
	raw := cat(
		u32b(le, 5), u32b(le, 5), u32b(le, 8),
		[]byte("helloabc"),
	)
	seg := segment(fullToc,
		meta(le, objString(le, "/'P'/'Names'", 3, uint64(len(raw)), propsNone(le))),
		raw,
	)

	f := readBytes(t, seg)
	if diff := cmp.Diff([]string{"hello", "", "abc"}, f.Group("P").Channel("Names").Data()); diff != "" {
		t.Errorf("string data mismatch (-want +got):\n%s", diff)
	}
}

func TestReadTimestamps(t *testing.T) {
	le := binary.ByteOrder(binary.LittleEndian)

	want := time.Date(2020, time.January, 20, 22, 59, 29, 0, time.UTC)
	secs := uint64(want.Sub(tdmsEpoch) / time.Second)
	half := uint64(1) << 63 // 0.5 s of 2^-64 fractions

	seg := segment(fullToc,
		meta(le,
			objFixed(le, "/'P'/'T'", TypeTimeStamp, 1, propsNone(le)),
			objNoData(le, "/", props(le,
				prop(le, "EndTime", TypeTimeStamp, cat(u64b(le, 0), u64b(le, secs))),
			)),
		),
		cat(u64b(le, half), u64b(le, secs)),
	)

	f := readBytes(t, seg)

	data, ok := f.Group("P").Channel("T").Data().([]time.Time)
	require.True(t, ok)
	require.Len(t, data, 1)
	assert.Equal(t, want.Add(500*time.Millisecond), data[0])

	assert.Equal(t, want, f.Props["EndTime"])
}

func TestReadBigEndianSegment(t *testing.T) {
	be := binary.ByteOrder(binary.BigEndian)

	want := time.Date(2019, time.November, 19, 10, 15, 15, 0, time.UTC)
	secs := uint64(want.Sub(tdmsEpoch) / time.Second)

	seg := segment(fullToc|tocBigEndian,
		meta(be,
			objFixed(be, "/'P'/'A'", TypeDoubleFloat, 2, propsNone(be)),
			objFixed(be, "/'P'/'T'", TypeTimeStamp, 1, propsNone(be)),
		),
		cat(
			f64b(be, -1.25), f64b(be, 4096),
			// Big-endian timestamps store seconds before fractions.
			u64b(be, secs), u64b(be, 0),
		),
	)

	f := readBytes(t, seg)
	if diff := cmp.Diff([]float64{-1.25, 4096}, f.Group("P").Channel("A").Data()); diff != "" {
		t.Errorf("big-endian data mismatch (-want +got):\n%s", diff)
	}
	ts := f.Group("P").Channel("T").Data().([]time.Time)
	assert.Equal(t, want, ts[0])
}

func TestReadPropertyOverride(t *testing.T) {
	le := binary.ByteOrder(binary.LittleEndian)

	first := segment(tocMetaData|tocNewObjList,
		meta(le, objNoData(le, "/'P'", props(le,
			prop(le, "state", TypeString, lstr(le, "running")),
		))),
		nil,
	)
	second := segment(tocMetaData,
		meta(le, objNoData(le, "/'P'", props(le,
			prop(le, "state", TypeString, lstr(le, "finished")),
		))),
		nil,
	)

	f := readBytes(t, cat(first, second))
	assert.Equal(t, "finished", f.Group("P").Props["state"])
}

func TestReadErrors(t *testing.T) {
	le := binary.ByteOrder(binary.LittleEndian)

	goodMeta := meta(le, objFixed(le, "/'P'/'A'", TypeDoubleFloat, 1, propsNone(le)))

	t.Run("not a TDMS file", func(t *testing.T) {
		data := []byte("JUNKJUNKJUNKJUNKJUNKJUNKJUNK")
		_, err := Read(bytes.NewReader(data), int64(len(data)))
		assert.ErrorIs(t, err, ErrNotTDMS)
	})

	t.Run("bad tag mid-file", func(t *testing.T) {
		data := cat(segment(fullToc, goodMeta, f64b(le, 1)), []byte("JUNKJUNKJUNKJUNKJUNKJUNKJUNK"))
		_, err := Read(bytes.NewReader(data), int64(len(data)))
		assert.ErrorIs(t, err, ErrInvalidSegment)
	})

	t.Run("unsupported version", func(t *testing.T) {
		seg := segment(fullToc, goodMeta, f64b(le, 1))
		copy(seg[8:12], u32b(le, 4242))
		_, err := Read(bytes.NewReader(seg), int64(len(seg)))
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("segment runs past end of file", func(t *testing.T) {
		seg := segment(fullToc, goodMeta, f64b(le, 1))
		seg = seg[:len(seg)-4]
		_, err := Read(bytes.NewReader(seg), int64(len(seg)))
		assert.ErrorIs(t, err, ErrInvalidSegment)
	})

	t.Run("unknown segment length", func(t *testing.T) {
		seg := segment(fullToc, goodMeta, f64b(le, 1))
		copy(seg[12:20], u64b(le, noNextSegment))
		_, err := Read(bytes.NewReader(seg), int64(len(seg)))
		assert.ErrorIs(t, err, ErrInvalidSegment)
	})

	t.Run("DAQmx flag", func(t *testing.T) {
		seg := segment(fullToc|tocDAQmxRawData, goodMeta, f64b(le, 1))
		_, err := Read(bytes.NewReader(seg), int64(len(seg)))
		assert.ErrorIs(t, err, ErrUnsupported)
	})

	t.Run("interleaved raw data", func(t *testing.T) {
		seg := segment(fullToc|tocInterleavedData, goodMeta, f64b(le, 1))
		_, err := Read(bytes.NewReader(seg), int64(len(seg)))
		assert.ErrorIs(t, err, ErrUnsupported)
	})

	t.Run("unknown previous index", func(t *testing.T) {
		seg := segment(fullToc,
			meta(le, objMatchPrev(le, "/'P'/'A'", propsNone(le))),
			f64b(le, 1),
		)
		_, err := Read(bytes.NewReader(seg), int64(len(seg)))
		assert.ErrorIs(t, err, ErrInvalidSegment)
	})

	t.Run("raw size not a chunk multiple", func(t *testing.T) {
		seg := segment(fullToc, goodMeta, cat(f64b(le, 1), []byte{0xAA}))
		_, err := Read(bytes.NewReader(seg), int64(len(seg)))
		assert.ErrorIs(t, err, ErrInvalidSegment)
	})

	t.Run("channel changes type", func(t *testing.T) {
		first := segment(fullToc, goodMeta, f64b(le, 1))
		second := segment(tocMetaData|tocNewObjList|tocRawData,
			meta(le, objFixed(le, "/'P'/'A'", TypeInt32, 1, propsNone(le))),
			u32b(le, 5),
		)
		data := cat(first, second)
		_, err := Read(bytes.NewReader(data), int64(len(data)))
		assert.ErrorIs(t, err, ErrInvalidSegment)
	})

	t.Run("unsupported channel type", func(t *testing.T) {
		seg := segment(fullToc,
			meta(le, objFixed(le, "/'P'/'A'", TypeComplexDoubleFloat, 1, propsNone(le))),
			make([]byte, 16),
		)
		_, err := Read(bytes.NewReader(seg), int64(len(seg)))
		assert.ErrorIs(t, err, ErrUnsupported)
	})

	t.Run("unsupported property type", func(t *testing.T) {
		seg := segment(tocMetaData|tocNewObjList,
			meta(le, objNoData(le, "/", props(le,
				prop(le, "fp", TypeFixedPoint, u64b(le, 0)),
			))),
			nil,
		)
		_, err := Read(bytes.NewReader(seg), int64(len(seg)))
		assert.ErrorIs(t, err, ErrUnsupported)
	})
}

func TestOpen(t *testing.T) {
	le := binary.ByteOrder(binary.LittleEndian)
	seg := segment(fullToc,
		meta(le, objFixed(le, "/'P'/'A'", TypeDoubleFloat, 1, propsNone(le))),
		f64b(le, 42),
	)
	path := filepath.Join(t.TempDir(), "Slice0001.tdms")
	require.NoError(t, os.WriteFile(path, seg, 0o644))

	f, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Path)
	assert.Equal(t, 1, f.Group("P").Channel("A").Len())

	_, err = Open(filepath.Join(t.TempDir(), "missing.tdms"))
	assert.Error(t, err)
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		path  string
		parts []string
		ok    bool
	}{
		{"/", nil, true},
		{"/'Part_A'", []string{"Part_A"}, true},
		{"/'Part_A'/'Area'", []string{"Part_A", "Area"}, true},
		{"/'It''s'/'X''Y'", []string{"It's", "X'Y"}, true},
		{"", nil, false},
		{"Part_A", nil, false},
		{"/'unterminated", nil, false},
		{"/'a'/'b'/'c'", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			parts, err := parsePath(tt.path)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.parts, parts)
		})
	}
}
