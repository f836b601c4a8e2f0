// Package ingest adapts TDMS slice files to the reorganization engine:
// every TDMS group in a slice becomes one part payload, carrying the
// group's channels plus the file- and group-scope properties.
package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/BlueQuartzSoftware/TDMSData-CDME/reorg"
	"github.com/BlueQuartzSoftware/TDMSData-CDME/tdms"
)

// Reader decodes slice files eagerly and implements [reorg.SliceReader].
type Reader struct {
	groups map[string]bool // nil means every group
	logger *zap.Logger
}

// Option adjusts reader construction.
type Option func(*Reader)

// WithGroups restricts ingestion to the named TDMS groups, matched
// exactly. An empty list keeps every group.
func WithGroups(names []string) Option {
	return func(r *Reader) {
		if len(names) == 0 {
			return
		}
		r.groups = make(map[string]bool, len(names))
		for _, n := range names {
			r.groups[n] = true
		}
	}
}

// WithLogger routes reader diagnostics through l.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns a Reader for the printer's slice files.
func New(opts ...Option) *Reader {
	r := &Reader{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadSlice decodes one slice file into per-part payloads. Each TDMS
// group maps to one payload whose part identifier is the group name.
// Channels that never carried raw data are omitted. Any decode failure
// wraps as a CorruptSliceError carrying the slice path and ordinal.
func (r *Reader) ReadSlice(ctx context.Context, s reorg.Slice) ([]reorg.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := tdms.Open(s.Path)
	if err != nil {
		return nil, &reorg.CorruptSliceError{Path: s.Path, Ordinal: s.Ordinal, Err: err}
	}

	payloads := make([]reorg.Payload, 0, len(f.Groups))
	for _, g := range f.Groups {
		if r.groups != nil && !r.groups[g.Name] {
			continue
		}
		p := reorg.Payload{
			Part:       g.Name,
			SliceProps: f.Props,
			PartProps:  g.Props,
		}
		for _, ch := range g.Channels {
			if ch.Len() == 0 {
				continue
			}
			p.Channels = append(p.Channels, reorg.Channel{Name: ch.Name, Samples: ch.Data()})
		}
		payloads = append(payloads, p)
	}
	r.logger.Debug("decoded slice",
		zap.Int("ordinal", s.Ordinal),
		zap.String("path", s.Path),
		zap.Int("parts", len(payloads)))
	return payloads, nil
}
