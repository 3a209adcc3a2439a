package dataset

import (
	"math"
	"testing"

	"github.com/tidwall/gjson"
)

// almostEqual returns true if a and b are within epsilon of each other.
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func normalize(t *testing.T, raw string) Outcome {
	t.Helper()
	if !gjson.Valid(raw) {
		t.Fatalf("test row is not valid JSON: %s", raw)
	}
	return Normalize(gjson.Parse(raw))
}

// --- CoerceUptime ---

func TestCoerceUptime_Null(t *testing.T) {
	if got := CoerceUptime(gjson.Parse("null")); got != nil {
		t.Errorf("CoerceUptime(null) = %v, want nil", *got)
	}
	if got := CoerceUptime(gjson.Result{}); got != nil {
		t.Errorf("CoerceUptime(absent) = %v, want nil", *got)
	}
}

func TestCoerceUptime_Bool(t *testing.T) {
	up := CoerceUptime(gjson.Parse("true"))
	if up == nil || *up != 1.0 {
		t.Errorf("CoerceUptime(true) = %v, want 1.0", up)
	}
	down := CoerceUptime(gjson.Parse("false"))
	if down == nil || *down != 0.0 {
		t.Errorf("CoerceUptime(false) = %v, want 0.0", down)
	}
}

func TestCoerceUptime_RatioPassesThrough(t *testing.T) {
	for _, v := range []float64{0, 0.25, 0.5, 0.95, 0.999, 1} {
		got := uptimeRatio(v)
		if got != v {
			t.Errorf("uptimeRatio(%v) = %v, want unchanged", v, got)
		}
	}
}

func TestCoerceUptime_PercentScaled(t *testing.T) {
	for p := 1.5; p <= 100; p += 0.5 {
		want := math.Min(math.Max(p/100, 0), 1)
		if got := uptimeRatio(p); got != want {
			t.Errorf("uptimeRatio(%v) = %v, want %v", p, got, want)
		}
	}
}

func TestCoerceUptime_Clamped(t *testing.T) {
	if got := uptimeRatio(250); got != 1 {
		t.Errorf("uptimeRatio(250) = %v, want 1", got)
	}
	if got := uptimeRatio(-0.3); got != 0 {
		t.Errorf("uptimeRatio(-0.3) = %v, want 0", got)
	}
}

func TestCoerceUptime_NumericString(t *testing.T) {
	got := CoerceUptime(gjson.Parse(`" 99.5 "`))
	if got == nil || !almostEqual(*got, 0.995, 1e-12) {
		t.Errorf("CoerceUptime(\" 99.5 \") = %v, want 0.995", got)
	}
}

func TestCoerceUptime_NonCoercible(t *testing.T) {
	for _, raw := range []string{`"up"`, `{"v":1}`, `[1]`, `"NaN"`} {
		if got := CoerceUptime(gjson.Parse(raw)); got != nil {
			t.Errorf("CoerceUptime(%s) = %v, want nil", raw, *got)
		}
	}
}

// --- Normalize ---

func TestNormalize_Accepted(t *testing.T) {
	o := normalize(t, `{"region":"  APAC ","latency_ms":120.5,"uptime":0.99}`)
	if !o.Accepted() {
		t.Fatalf("row rejected: %s", o.Reason)
	}
	if o.Record.Region != "apac" {
		t.Errorf("Region = %q, want apac", o.Record.Region)
	}
	if o.Record.LatencyMs != 120.5 {
		t.Errorf("LatencyMs = %v, want 120.5", o.Record.LatencyMs)
	}
	if !o.Record.HasUptime() || *o.Record.Uptime != 0.99 {
		t.Errorf("Uptime = %v, want 0.99", o.Record.Uptime)
	}
}

func TestNormalize_LatencyFallback(t *testing.T) {
	o := normalize(t, `{"region":"emea","latency":"45"}`)
	if !o.Accepted() {
		t.Fatalf("row rejected: %s", o.Reason)
	}
	if o.Record.LatencyMs != 45 {
		t.Errorf("LatencyMs = %v, want 45", o.Record.LatencyMs)
	}
	if o.Record.HasUptime() {
		t.Errorf("Uptime = %v, want nil", *o.Record.Uptime)
	}
}

func TestNormalize_LatencyMsWinsOverLatency(t *testing.T) {
	o := normalize(t, `{"region":"emea","latency_ms":10,"latency":99}`)
	if o.Record.LatencyMs != 10 {
		t.Errorf("LatencyMs = %v, want 10", o.Record.LatencyMs)
	}
}

func TestNormalize_UptimeAliases(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{`{"region":"a","latency_ms":1,"up":true}`, 1},
		{`{"region":"a","latency_ms":1,"is_up":false}`, 0},
		{`{"region":"a","latency_ms":1,"uptime":95}`, 0.95},
		{`{"region":"a","latency_ms":1,"uptime":null,"up":0.5}`, 0.5},
	}
	for _, tt := range tests {
		o := normalize(t, tt.raw)
		if !o.Accepted() {
			t.Fatalf("%s: rejected: %s", tt.raw, o.Reason)
		}
		if !o.Record.HasUptime() || !almostEqual(*o.Record.Uptime, tt.want, 1e-12) {
			t.Errorf("%s: Uptime = %v, want %v", tt.raw, o.Record.Uptime, tt.want)
		}
	}
}

func TestNormalize_Rejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want RejectReason
	}{
		{"array row", `[1,2]`, RejectNotObject},
		{"missing region", `{"latency_ms":10}`, RejectMissingRegion},
		{"blank region", `{"region":"   ","latency_ms":10}`, RejectMissingRegion},
		{"null region", `{"region":null,"latency_ms":10}`, RejectMissingRegion},
		{"no latency fields", `{"region":"apac","uptime":1}`, RejectMissingLatency},
		{"null latency", `{"region":"apac","latency_ms":null}`, RejectMissingLatency},
		{"text latency", `{"region":"apac","latency_ms":"fast"}`, RejectInvalidLatency},
		{"bool latency", `{"region":"apac","latency":true}`, RejectInvalidLatency},
		{"object latency", `{"region":"apac","latency":{"ms":3}}`, RejectInvalidLatency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := normalize(t, tt.raw)
			if o.Accepted() {
				t.Fatalf("row accepted, want rejection %q", tt.want)
			}
			if o.Reason != tt.want {
				t.Errorf("Reason = %q, want %q", o.Reason, tt.want)
			}
		})
	}
}

func TestNormalize_NumericRegion(t *testing.T) {
	o := normalize(t, `{"region":42,"latency_ms":1}`)
	if !o.Accepted() || o.Record.Region != "42" {
		t.Errorf("got %+v, want region 42", o)
	}
}
