// Package dataset loads the bundled telemetry file into an immutable,
// in-memory Dataset.
//
// Normalize turns one raw JSON row into a types.Record or a rejection with a
// reason (missing region, missing or non-numeric latency, malformed line).
// Rejected rows never reach callers; Load only counts them.
//
// Load(paths) reads the first existing candidate file. Files ending in
// .jsonl/.ndjson are read one object per line; anything else is one JSON
// document holding an array of objects, optionally wrapped as
// {"records": [...]}. A missing file fails with ErrConfiguration and a file
// with zero usable rows fails with ErrData; both are fatal at startup.
package dataset
