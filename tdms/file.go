package tdms

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// File is a fully decoded TDMS file.
type File struct {
	Path   string
	Groups []*Group // in first-appearance order
	Props  map[string]interface{}
}

// Group returns the named group, or nil.
func (f *File) Group(name string) *Group {
	for _, g := range f.Groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// Group is one named measurement group and its channels.
type Group struct {
	Name     string
	Props    map[string]interface{}
	Channels []*Channel // in first-appearance order
}

// Channel returns the named channel, or nil.
func (g *Group) Channel(name string) *Channel {
	for _, c := range g.Channels {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Channel is one measurement stream. Data accumulates across all
// segments of the file in write order.
type Channel struct {
	Name     string
	Group    string
	DataType DataType
	Props    map[string]interface{}

	data interface{}
	n    int
}

// Data returns the channel's values as a typed slice ([]float64,
// []int32, []string, []time.Time, ...), or nil when the channel never
// carried raw data.
func (c *Channel) Data() interface{} { return c.data }

// Len returns the number of values in the channel.
func (c *Channel) Len() int { return c.n }

// Open decodes the TDMS file at path eagerly and closes it again.
func Open(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return nil, err
	}
	f, err := Read(fh, info.Size())
	if err != nil {
		return nil, err
	}
	f.Path = path
	return f, nil
}

// Read decodes a TDMS file from r, which must cover size bytes.
func Read(r io.ReaderAt, size int64) (*File, error) {
	p := newParser()
	base := newReader(r, binary.LittleEndian)

	var pos int64
	for pos < size {
		lr := base.at(pos)
		l, err := readLeadIn(lr)
		if err != nil {
			if pos > 0 && errors.Is(err, ErrNotTDMS) {
				return nil, fmt.Errorf("%w: segment tag missing at offset %d", ErrInvalidSegment, pos)
			}
			return nil, err
		}
		if l.has(tocDAQmxRawData) {
			return nil, fmt.Errorf("%w: DAQmx raw data", ErrUnsupported)
		}
		if l.nextOffset == noNextSegment {
			return nil, fmt.Errorf("%w: segment at offset %d has no recorded length (file truncated mid-write)", ErrInvalidSegment, pos)
		}
		if l.rawOffset > l.nextOffset {
			return nil, fmt.Errorf("%w: metadata extends past segment end at offset %d", ErrInvalidSegment, pos)
		}
		segEnd := pos + leadInSize + int64(l.nextOffset)
		if segEnd > size {
			return nil, fmt.Errorf("%w: segment at offset %d runs past end of file", ErrInvalidSegment, pos)
		}

		sr := lr.withOrder(l.order())
		if l.has(tocMetaData) && l.rawOffset > 0 {
			if err := p.readMetadata(sr, l); err != nil {
				return nil, err
			}
		}

		if total := l.nextOffset - l.rawOffset; l.has(tocRawData) && total > 0 {
			if l.has(tocInterleavedData) {
				return nil, fmt.Errorf("%w: interleaved raw data", ErrUnsupported)
			}
			rr := base.at(pos + leadInSize + int64(l.rawOffset)).withOrder(l.order())
			if err := p.readRaw(rr, total); err != nil {
				return nil, err
			}
		}

		pos = segEnd
	}

	return p.finish(), nil
}

// parser accumulates hierarchy, raw-data order, and channel buffers
// across segments.
type parser struct {
	f        *File
	groups   map[string]*Group
	channels map[string]*Channel // by object path
	bufs     map[string]buffer   // by object path

	index   map[string]*segObject // by object path, persistent
	order   []*segObject          // current segment raw-data order
	inOrder map[string]bool
}

func newParser() *parser {
	return &parser{
		f:        &File{Props: make(map[string]interface{})},
		groups:   make(map[string]*Group),
		channels: make(map[string]*Channel),
		bufs:     make(map[string]buffer),
		index:    make(map[string]*segObject),
		inOrder:  make(map[string]bool),
	}
}

// propsFor resolves (and creates) the property map for an object path
// split into its components.
func (p *parser) propsFor(parts []string) (map[string]interface{}, error) {
	switch len(parts) {
	case 0:
		return p.f.Props, nil
	case 1:
		return p.group(parts[0]).Props, nil
	case 2:
		return p.channelFor(parts, objectPath(parts)).Props, nil
	default:
		return nil, fmt.Errorf("%w: object path depth %d", ErrInvalidSegment, len(parts))
	}
}

func (p *parser) group(name string) *Group {
	g, ok := p.groups[name]
	if !ok {
		g = &Group{Name: name, Props: make(map[string]interface{})}
		p.groups[name] = g
		p.f.Groups = append(p.f.Groups, g)
	}
	return g
}

func (p *parser) channelFor(parts []string, path string) *Channel {
	c, ok := p.channels[path]
	if !ok {
		g := p.group(parts[0])
		c = &Channel{Name: parts[1], Group: parts[0], Props: make(map[string]interface{})}
		p.channels[path] = c
		g.Channels = append(g.Channels, c)
	}
	return c
}

// objectPath rebuilds the canonical object path for parsed components.
func objectPath(parts []string) string {
	path := ""
	for _, part := range parts {
		path += "/'" + escapeName(part) + "'"
	}
	if path == "" {
		return "/"
	}
	return path
}

func escapeName(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		if name[i] == '\'' {
			out = append(out, '\'', '\'')
			continue
		}
		out = append(out, name[i])
	}
	return string(out)
}

// enqueue adds obj to the current raw-data order if absent.
func (p *parser) enqueue(obj *segObject) {
	if !p.inOrder[obj.path] {
		p.order = append(p.order, obj)
		p.inOrder[obj.path] = true
	}
}

// chunkSize is the byte size of one pass over the raw-data order.
func (p *parser) chunkSize() uint64 {
	var total uint64
	for _, obj := range p.order {
		if obj.hasData {
			total += obj.byteSize
		}
	}
	return total
}

// readRaw consumes a segment's raw data area. Segments may repeat the
// whole object order several times ("chunks"); total must be an exact
// multiple of one pass.
func (p *parser) readRaw(r *reader, total uint64) error {
	chunk := p.chunkSize()
	if chunk == 0 {
		return fmt.Errorf("%w: %d bytes of raw data but no objects carry data", ErrInvalidSegment, total)
	}
	if total%chunk != 0 {
		return fmt.Errorf("%w: raw data size %d is not a multiple of the %d byte chunk", ErrInvalidSegment, total, chunk)
	}
	for chunks := total / chunk; chunks > 0; chunks-- {
		for _, obj := range p.order {
			if !obj.hasData || obj.numValues == 0 {
				continue
			}
			buf, err := p.buffer(obj)
			if err != nil {
				return err
			}
			if err := buf.read(r, obj); err != nil {
				if errors.Is(err, ErrInvalidSegment) {
					return err
				}
				return fmt.Errorf("%w: raw data of %q: %v", ErrInvalidSegment, obj.path, err)
			}
		}
	}
	return nil
}

func (p *parser) buffer(obj *segObject) (buffer, error) {
	if b, ok := p.bufs[obj.path]; ok {
		return b, nil
	}
	b, err := newBuffer(obj.dataType)
	if err != nil {
		return nil, err
	}
	p.bufs[obj.path] = b
	return b, nil
}

// finish attaches accumulated channel data to the model.
func (p *parser) finish() *File {
	for path, c := range p.channels {
		if buf, ok := p.bufs[path]; ok {
			c.data = buf.result()
			c.n = buf.count()
		}
	}
	return p.f
}
