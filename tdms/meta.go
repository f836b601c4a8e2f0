package tdms

import (
	"fmt"
	"strings"
)

// Raw data index markers. Any other value is the byte length of the
// index fields that follow.
const (
	rawIndexNoData    uint32 = 0xFFFFFFFF
	rawIndexMatchPrev uint32 = 0x00000000
)

// isDAQmxIndex reports whether a raw data index announces DAQmx scaler
// data (format-changing or digital-line), which this reader does not
// decode.
func isDAQmxIndex(idx uint32) bool {
	switch idx {
	case 0x69120000, 0x69130000, 0x6A120000:
		return true
	}
	return false
}

// segObject tracks one object's raw-data parameters. Entries live for
// the whole file so later segments can reuse or amend them.
type segObject struct {
	path      string
	dataType  DataType
	numValues uint64
	byteSize  uint64 // bytes per chunk; strings declare it, others derive it
	hasData   bool
}

// parsePath splits an object path into its components: nil for the file
// root "/", one name for a group, two for a channel. Names are quoted
// with single quotes; a doubled quote escapes a literal one.
func parsePath(path string) ([]string, error) {
	if path == "/" {
		return nil, nil
	}
	var parts []string
	i := 0
	for i < len(path) {
		if path[i] != '/' || i+1 >= len(path) || path[i+1] != '\'' {
			return nil, fmt.Errorf("%w: malformed object path %q", ErrInvalidSegment, path)
		}
		i += 2
		var sb strings.Builder
		closed := false
		for i < len(path) {
			c := path[i]
			if c == '\'' {
				if i+1 < len(path) && path[i+1] == '\'' {
					sb.WriteByte('\'')
					i += 2
					continue
				}
				i++
				closed = true
				break
			}
			sb.WriteByte(c)
			i++
		}
		if !closed {
			return nil, fmt.Errorf("%w: unterminated name in object path %q", ErrInvalidSegment, path)
		}
		parts = append(parts, sb.String())
	}
	if len(parts) > 2 {
		return nil, fmt.Errorf("%w: object path %q deeper than group/channel", ErrInvalidSegment, path)
	}
	return parts, nil
}

// readMetadata consumes one segment's metadata block: the object count
// followed by each object's path, raw data index, and properties.
func (p *parser) readMetadata(r *reader, l leadIn) error {
	count, err := r.uint32()
	if err != nil {
		return fmt.Errorf("%w: object count: %v", ErrInvalidSegment, err)
	}
	newList := l.has(tocNewObjList)
	if newList {
		p.order = p.order[:0]
		p.inOrder = make(map[string]bool)
	}
	for i := uint32(0); i < count; i++ {
		if err := p.readObject(r); err != nil {
			return err
		}
	}
	return nil
}

// readObject consumes one object's metadata and updates the hierarchy,
// the raw-data order, and the object's properties.
func (p *parser) readObject(r *reader) error {
	path, err := r.lengthString()
	if err != nil {
		return fmt.Errorf("%w: object path: %v", ErrInvalidSegment, err)
	}
	parts, err := parsePath(path)
	if err != nil {
		return err
	}
	props, err := p.propsFor(parts)
	if err != nil {
		return err
	}

	rawIdx, err := r.uint32()
	if err != nil {
		return fmt.Errorf("%w: raw data index of %q: %v", ErrInvalidSegment, path, err)
	}
	switch {
	case isDAQmxIndex(rawIdx):
		return fmt.Errorf("%w: DAQmx raw data on %q", ErrUnsupported, path)

	case rawIdx == rawIndexNoData:
		// No raw data in this segment; an earlier entry stops
		// contributing until a segment re-declares it.
		if obj, ok := p.index[path]; ok && p.inOrder[path] {
			obj.hasData = false
		}

	case rawIdx == rawIndexMatchPrev:
		obj, ok := p.index[path]
		if !ok {
			return fmt.Errorf("%w: %q reuses a raw data index that was never declared", ErrInvalidSegment, path)
		}
		obj.hasData = true
		p.enqueue(obj)

	default:
		if len(parts) != 2 {
			return fmt.Errorf("%w: raw data on non-channel object %q", ErrInvalidSegment, path)
		}
		if err := p.declareRaw(r, path, parts); err != nil {
			return err
		}
	}

	return p.readProperties(r, path, props)
}

// declareRaw parses a full raw data index: type, dimension, value count,
// and for strings the total chunk size.
func (p *parser) declareRaw(r *reader, path string, parts []string) error {
	dtRaw, err := r.uint32()
	if err != nil {
		return fmt.Errorf("%w: data type of %q: %v", ErrInvalidSegment, path, err)
	}
	dt := DataType(dtRaw)
	dim, err := r.uint32()
	if err != nil {
		return fmt.Errorf("%w: array dimension of %q: %v", ErrInvalidSegment, path, err)
	}
	if dim != 1 {
		// TDMS 2.0 fixed the dimension at 1.
		return fmt.Errorf("%w: array dimension %d on %q", ErrInvalidSegment, dim, path)
	}
	numValues, err := r.uint64()
	if err != nil {
		return fmt.Errorf("%w: value count of %q: %v", ErrInvalidSegment, path, err)
	}

	var byteSize uint64
	if dt == TypeString {
		if byteSize, err = r.uint64(); err != nil {
			return fmt.Errorf("%w: string size of %q: %v", ErrInvalidSegment, path, err)
		}
	} else {
		size := dt.size()
		if size == 0 {
			return fmt.Errorf("%w: channel data of type %s on %q", ErrUnsupported, dt, path)
		}
		byteSize = numValues * uint64(size)
	}

	obj, ok := p.index[path]
	if !ok {
		obj = &segObject{path: path}
		p.index[path] = obj
	} else if obj.dataType != dt {
		return fmt.Errorf("%w: channel %q changed type from %s to %s", ErrInvalidSegment, path, obj.dataType, dt)
	}
	obj.dataType = dt
	obj.numValues = numValues
	obj.byteSize = byteSize
	obj.hasData = true
	p.enqueue(obj)

	p.channelFor(parts, path).DataType = dt
	return nil
}

// readProperties consumes an object's property table into props.
func (p *parser) readProperties(r *reader, path string, props map[string]interface{}) error {
	count, err := r.uint32()
	if err != nil {
		return fmt.Errorf("%w: property count of %q: %v", ErrInvalidSegment, path, err)
	}
	for i := uint32(0); i < count; i++ {
		name, err := r.lengthString()
		if err != nil {
			return fmt.Errorf("%w: property name on %q: %v", ErrInvalidSegment, path, err)
		}
		dtRaw, err := r.uint32()
		if err != nil {
			return fmt.Errorf("%w: property type of %q on %q: %v", ErrInvalidSegment, name, path, err)
		}
		value, err := readValue(r, DataType(dtRaw))
		if err != nil {
			return fmt.Errorf("property %q on %q: %w", name, path, err)
		}
		// Later segments win; LabVIEW rewrites properties as runs evolve.
		props[name] = value
	}
	return nil
}
