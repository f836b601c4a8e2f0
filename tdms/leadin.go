package tdms

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Segment lead-in tag: "TDSm".
var segmentTag = []byte{'T', 'D', 'S', 'm'}

const leadInSize = 28

// TDMS 2.0 format versions. 4713 files differ from 4712 only in details
// the reader already handles.
const (
	version2_0  = 4712
	version2_0b = 4713
)

// Table-of-contents flags.
const (
	tocMetaData        uint32 = 1 << 1
	tocNewObjList      uint32 = 1 << 2
	tocRawData         uint32 = 1 << 3
	tocInterleavedData uint32 = 1 << 5
	tocBigEndian       uint32 = 1 << 6
	tocDAQmxRawData    uint32 = 1 << 7
)

// noNextSegment marks a file whose writer died before patching the
// lead-in; everything after it is unaccounted for.
const noNextSegment = ^uint64(0)

// leadIn is the 28-byte header that starts every segment.
type leadIn struct {
	toc        uint32
	version    uint32
	nextOffset uint64 // end of lead-in to end of segment
	rawOffset  uint64 // end of lead-in to start of raw data
}

func (l leadIn) has(flag uint32) bool {
	return l.toc&flag != 0
}

// order returns the byte order of everything in the segment after the
// ToC mask, which itself is always little-endian.
func (l leadIn) order() binary.ByteOrder {
	if l.has(tocBigEndian) {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// readLeadIn parses the segment header at the reader's position. The
// reader's own byte order is ignored: the tag and ToC are fixed-order,
// and the remaining fields follow the ToC's endianness flag.
func readLeadIn(r *reader) (leadIn, error) {
	buf, err := r.bytes(leadInSize)
	if err != nil {
		return leadIn{}, fmt.Errorf("%w: segment lead-in: %v", ErrInvalidSegment, err)
	}
	if !bytes.Equal(buf[0:4], segmentTag) {
		return leadIn{}, ErrNotTDMS
	}

	l := leadIn{toc: binary.LittleEndian.Uint32(buf[4:8])}
	order := l.order()
	l.version = order.Uint32(buf[8:12])
	l.nextOffset = order.Uint64(buf[12:20])
	l.rawOffset = order.Uint64(buf[20:28])

	if l.version != version2_0 && l.version != version2_0b {
		return leadIn{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, l.version)
	}
	return l, nil
}
