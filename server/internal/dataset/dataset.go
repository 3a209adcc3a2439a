package dataset

import (
	"sort"

	"github.com/obsidianstack/regionstats/pkg/types"
)

// Dataset is the immutable set of telemetry records the server answers from.
// It is built once and then only read, so concurrent readers need no locks.
type Dataset struct {
	records  []types.Record
	byRegion map[string][]types.Record

	source   string
	encoding Encoding
	rejected map[RejectReason]int
}

// New builds a Dataset from already-normalized records, keeping their order.
// Load is the production entry point; New exists for callers that assemble
// records themselves (tests, tooling).
func New(records []types.Record) *Dataset {
	d := &Dataset{
		records:  make([]types.Record, len(records)),
		byRegion: make(map[string][]types.Record),
		rejected: make(map[RejectReason]int),
	}
	copy(d.records, records)
	for _, r := range d.records {
		d.byRegion[r.Region] = append(d.byRegion[r.Region], r)
	}
	return d
}

// Len returns the number of accepted records.
func (d *Dataset) Len() int { return len(d.records) }

// Records returns a copy of all records in load order.
func (d *Dataset) Records() []types.Record {
	out := make([]types.Record, len(d.records))
	copy(out, d.records)
	return out
}

// Region returns the records whose region matches name after trimming and
// lowercasing. The returned slice is shared; callers must not modify it.
func (d *Dataset) Region(name string) []types.Record {
	return d.byRegion[NormalizeRegion(name)]
}

// Regions returns the distinct region names, sorted.
func (d *Dataset) Regions() []string {
	out := make([]string, 0, len(d.byRegion))
	for r := range d.byRegion {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Source is the path the dataset was read from; empty for New.
func (d *Dataset) Source() string { return d.source }

// Encoding is the physical encoding the file was decoded with.
func (d *Dataset) Encoding() Encoding { return d.encoding }

// Rejections returns a copy of the per-reason count of dropped rows.
func (d *Dataset) Rejections() map[RejectReason]int {
	out := make(map[RejectReason]int, len(d.rejected))
	for k, v := range d.rejected {
		out[k] = v
	}
	return out
}

// RejectedTotal returns how many rows were dropped during load.
func (d *Dataset) RejectedTotal() int {
	var n int
	for _, v := range d.rejected {
		n += v
	}
	return n
}
