package dataset

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/obsidianstack/regionstats/pkg/types"
)

// Fatal load errors. Both abort startup; match them with errors.Is.
var (
	// ErrConfiguration means no dataset file exists at any candidate path.
	ErrConfiguration = errors.New("dataset: no dataset file found")

	// ErrData means a dataset file was found but produced no usable records.
	ErrData = errors.New("dataset: unusable dataset")
)

// DefaultFileNames are the bundled dataset names, in lookup order.
var DefaultFileNames = []string{"telemetry.jsonl", "telemetry.json"}

// maxLineBytes bounds a single line-delimited record.
const maxLineBytes = 1 << 20

// Encoding is the physical layout of a dataset file. It is chosen once per
// file from the extension.
type Encoding int

const (
	// EncodingArray is one JSON document: a top-level array of objects or
	// an object holding that array under "records".
	EncodingArray Encoding = iota
	// EncodingLines is one JSON object per non-blank line.
	EncodingLines
)

func (e Encoding) String() string {
	switch e {
	case EncodingLines:
		return "lines"
	default:
		return "array"
	}
}

// EncodingFor picks the encoding for path: .jsonl and .ndjson are line
// delimited, everything else is read as a single JSON document.
func EncodingFor(path string) Encoding {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return EncodingLines
	default:
		return EncodingArray
	}
}

// decode walks every raw row in data and hands its Outcome to visit.
func (e Encoding) decode(data []byte, visit func(Outcome)) error {
	if e == EncodingLines {
		return decodeLines(data, visit)
	}
	return decodeArray(data, visit)
}

func decodeLines(data []byte, visit func(Outcome)) error {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			visit(reject(RejectMalformedJSON))
			continue
		}
		visit(Normalize(gjson.ParseBytes(line)))
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: scan lines: %v", ErrData, err)
	}
	return nil
}

func decodeArray(data []byte, visit func(Outcome)) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: not a valid JSON document", ErrData)
	}
	doc := gjson.ParseBytes(data)
	rows := doc
	if doc.IsObject() {
		rows = doc.Get("records")
	}
	if !rows.IsArray() {
		return fmt.Errorf("%w: want a JSON array or an object with a \"records\" array", ErrData)
	}
	rows.ForEach(func(_, row gjson.Result) bool {
		visit(Normalize(row))
		return true
	})
	return nil
}

// Candidates returns the default lookup list: each bundled file name relative
// to the working directory first, then relative to exeDir (the directory of
// the running binary). An empty exeDir skips the install-relative variants.
func Candidates(exeDir string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, name := range DefaultFileNames {
		add(name)
		add(filepath.Join("data", name))
	}
	if exeDir != "" {
		for _, name := range DefaultFileNames {
			add(filepath.Join(exeDir, name))
			add(filepath.Join(exeDir, "data", name))
			add(filepath.Join(exeDir, "..", "data", name))
		}
	}
	return out
}

// ExecutableDir returns the directory holding the running binary, or "" if
// it cannot be determined.
func ExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// Load reads the first existing file among paths. It must run once, before
// the dataset is shared with request handlers.
func Load(paths []string) (*Dataset, error) {
	path, err := locate(paths)
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads and normalizes the dataset at path.
func LoadFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrConfiguration, path)
		}
		return nil, fmt.Errorf("dataset: read %q: %w", path, err)
	}

	enc := EncodingFor(path)
	var (
		records  []types.Record
		rejected = make(map[RejectReason]int)
		row      int
	)
	err = enc.decode(data, func(o Outcome) {
		row++
		if !o.Accepted() {
			rejected[o.Reason]++
			slog.Debug("dataset: row rejected", "path", path, "row", row, "reason", o.Reason)
			return
		}
		records = append(records, o.Record)
	})
	if err != nil {
		return nil, fmt.Errorf("%w (file %q)", err, path)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %q yielded 0 usable records from %d rows", ErrData, path, row)
	}

	ds := New(records)
	ds.source = path
	ds.encoding = enc
	ds.rejected = rejected

	slog.Info("dataset: loaded",
		"path", path,
		"encoding", enc.String(),
		"records", ds.Len(),
		"regions", len(ds.byRegion),
		"rejected", ds.RejectedTotal(),
	)
	return ds, nil
}

// locate returns the first path that names an existing regular file.
func locate(paths []string) (string, error) {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err == nil && info.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: checked %s", ErrConfiguration, strings.Join(paths, ", "))
}
