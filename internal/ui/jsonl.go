package ui

import (
	"encoding/json"
	"io"

	"github.com/bamsammich/checksum/internal/stats"
)

// jsonRecord is one line of --json output.
type jsonRecord struct {
	Status      string `json:"status"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Digest      string `json:"digest,omitempty"`
	Algorithm   string `json:"algorithm,omitempty"`
	Bytes       int64  `json:"bytes"`
	Copied      bool   `json:"copied"`
	Error       string `json:"error,omitempty"`
}

// jsonPresenter writes one JSON object per finished unit.
type jsonPresenter struct {
	w         io.Writer
	stats     *stats.Collector
	algorithm string
}

func (p *jsonPresenter) Run(events <-chan Event) error {
	enc := json.NewEncoder(p.w)
	var firstErr error
	for ev := range events {
		rec, ok := p.record(ev)
		if !ok {
			continue
		}
		if err := enc.Encode(rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *jsonPresenter) record(ev Event) (jsonRecord, bool) {
	rec := jsonRecord{Source: ev.Path, Destination: ev.Dest}
	switch ev.Type {
	case FileCompleted:
		rec.Status = "ok"
		rec.Digest = ev.Digest
		rec.Algorithm = p.algorithm
		rec.Bytes = ev.Size
		rec.Copied = true
	case FileIdentical:
		rec.Status = "identical"
		rec.Digest = ev.Digest
		rec.Algorithm = p.algorithm
	case FileFailed, FileCancelled:
		rec.Status = "failed"
		if ev.Type == FileCancelled {
			rec.Status = "cancelled"
		}
		if ev.Error != nil {
			rec.Error = ev.Error.Error()
		}
	default:
		return jsonRecord{}, false
	}
	return rec, true
}

// Summary is empty so stdout stays pure JSON lines.
func (p *jsonPresenter) Summary() string {
	return ""
}
