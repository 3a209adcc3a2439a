package dataset

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/obsidianstack/regionstats/pkg/types"
)

// RejectReason names why a raw row was left out of the dataset.
type RejectReason string

// Rejection reasons recorded by Normalize and the line decoder.
const (
	RejectMalformedJSON  RejectReason = "malformed_json"
	RejectNotObject      RejectReason = "not_object"
	RejectMissingRegion  RejectReason = "missing_region"
	RejectMissingLatency RejectReason = "missing_latency"
	RejectInvalidLatency RejectReason = "invalid_latency"
)

// Field names looked up on every raw row, in priority order.
var (
	latencyFields = []string{"latency_ms", "latency"}
	uptimeFields  = []string{"uptime", "up", "is_up"}
)

// Outcome is the result of normalizing one raw row: either an accepted
// Record or a rejection with its reason.
type Outcome struct {
	Record types.Record
	Reason RejectReason // empty when the row was accepted
}

// Accepted reports whether the row produced a usable record.
func (o Outcome) Accepted() bool { return o.Reason == "" }

func accept(rec types.Record) Outcome { return Outcome{Record: rec} }
func reject(reason RejectReason) Outcome { return Outcome{Reason: reason} }

// Normalize converts one raw JSON row into a Record. It never fails loudly:
// rows that cannot be used come back as a rejected Outcome.
func Normalize(row gjson.Result) Outcome {
	if !row.IsObject() {
		return reject(RejectNotObject)
	}

	region, ok := regionOf(row.Get("region"))
	if !ok {
		return reject(RejectMissingRegion)
	}

	latency := firstPresent(row, latencyFields)
	if !latency.Exists() {
		return reject(RejectMissingLatency)
	}
	ms, ok := toFloat(latency)
	if !ok {
		return reject(RejectInvalidLatency)
	}

	return accept(types.Record{
		Region:    region,
		LatencyMs: ms,
		Uptime:    CoerceUptime(firstPresent(row, uptimeFields)),
	})
}

// NormalizeRegion trims and lowercases a region name. Stored records and
// lookups both go through it so matching is case-insensitive.
func NormalizeRegion(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CoerceUptime maps a raw uptime value onto [0, 1].
//
//	absent / null       → nil
//	true / false        → 1.0 / 0.0
//	number v (or text)  → v/100 when v > 1, then clamped to [0, 1]
//	anything else       → nil
func CoerceUptime(v gjson.Result) *float64 {
	var out float64
	switch v.Type {
	case gjson.True:
		out = 1
	case gjson.False:
		out = 0
	case gjson.Number, gjson.String:
		f, ok := toFloat(v)
		if !ok {
			return nil
		}
		out = uptimeRatio(f)
	default:
		return nil
	}
	return &out
}

// uptimeRatio treats values above 1 as percentages and clamps the result.
func uptimeRatio(v float64) float64 {
	if v > 1.0 {
		v /= 100
	}
	return math.Min(math.Max(v, 0), 1)
}

// regionOf accepts strings and bare numbers; everything else is unusable.
func regionOf(v gjson.Result) (string, bool) {
	var s string
	switch v.Type {
	case gjson.String:
		s = v.Str
	case gjson.Number:
		s = v.Raw
	default:
		return "", false
	}
	s = NormalizeRegion(s)
	return s, s != ""
}

// firstPresent returns the first field in names that exists and is not null.
func firstPresent(row gjson.Result, names []string) gjson.Result {
	for _, name := range names {
		if v := row.Get(name); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

// toFloat coerces JSON numbers and numeric strings. Non-finite values are
// refused.
func toFloat(v gjson.Result) (float64, bool) {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
