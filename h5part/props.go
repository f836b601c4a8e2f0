package h5part

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BlueQuartzSoftware/TDMSData-CDME/reorg"
)

// Property keys the printer stamps on its TDMS files.
const (
	startTimeProp = "StartTime"
	endTimeProp   = "EndTime"
	thicknessProp = "layerThickness"
)

// timeLayout is what downstream parsers expect: UTC, fixed microsecond
// precision, numeric zone offset (+0000, not Z).
const timeLayout = "2006-01-02T15:04:05.000000-0700"

type options struct {
	logger *zap.Logger
	label  string
	runID  string
}

// Option adjusts writer construction.
type Option func(*options)

func defaultOptions() *options {
	return &options{logger: zap.NewNop()}
}

// WithLogger routes writer diagnostics through l.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithBuildLabel stamps label as the BuildLabel attribute on every
// container.
func WithBuildLabel(label string) Option {
	return func(o *options) { o.label = label }
}

// WithRunID stamps id as the RunID attribute on every container, tying
// files back to a catalog entry.
func WithRunID(id string) Option {
	return func(o *options) { o.runID = id }
}

// rowFor extracts the index row a payload's properties describe. The
// printer stamps StartTime/EndTime at both file and part scope;
// layerThickness may appear at either, part scope winning. Thickness
// truncates: the LayerThickness column is integral.
func rowFor(p reorg.Payload) sliceRow {
	row := sliceRow{
		layerStart: timeString(p.SliceProps[startTimeProp]),
		layerEnd:   timeString(p.SliceProps[endTimeProp]),
		partStart:  timeString(p.PartProps[startTimeProp]),
		partEnd:    timeString(p.PartProps[endTimeProp]),
	}
	if v, ok := intProp(p.PartProps[thicknessProp]); ok {
		row.thickness = v
	} else if v, ok := intProp(p.SliceProps[thicknessProp]); ok {
		row.thickness = v
	}
	return row
}

func timeString(v interface{}) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(timeLayout)
	case string:
		return t
	default:
		return ""
	}
}

func intProp(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// datasetValue maps decoded sample slices onto types the HDF5 writer
// encodes. Bool widens to uint8 and timestamps become int64 microseconds
// since the Unix epoch. String channels are rejected: the writer
// dependency cannot encode variable-length string datasets.
func datasetValue(samples interface{}) (interface{}, error) {
	switch v := samples.(type) {
	case nil:
		return nil, errors.New("no samples")
	case []bool:
		out := make([]uint8, len(v))
		for i, b := range v {
			if b {
				out[i] = 1
			}
		}
		return out, nil
	case []time.Time:
		out := make([]int64, len(v))
		for i, t := range v {
			out[i] = t.UnixMicro()
		}
		return out, nil
	case []string:
		return nil, errors.New("string samples are not representable in the destination format")
	default:
		return samples, nil
	}
}

// sampleCount reports the element count of a decoded sample slice.
func sampleCount(samples interface{}) int64 {
	v := reflect.ValueOf(samples)
	if !v.IsValid() || v.Kind() != reflect.Slice {
		return 0
	}
	return int64(v.Len())
}

// PartFileName maps a part identifier to its container file name.
// Path separators and characters hostile to common filesystems become
// underscores and the .h5 suffix is appended. Distinct parts can collide
// after sanitization; the writer rejects the later one rather than
// silently sharing a container.
func PartFileName(part string) string {
	var b strings.Builder
	for _, r := range part {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteRune('_')
		case r < 0x20:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	name := strings.Trim(b.String(), ". ")
	if name == "" {
		name = "part"
	}
	return name + ".h5"
}
