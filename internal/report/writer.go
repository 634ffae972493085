// Package report renders run output: line-delimited JSON as the canonical
// audit format, plus JSON, Markdown, and CSV renderings for humans and
// spreadsheets. Record order and field order are deterministic across
// identical inputs; the manifest is always written last, as plain JSON.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/osprey-sec/osprey/internal/identity"
	"github.com/osprey-sec/osprey/internal/model"
)

// Writer emits run artifacts into a directory.
type Writer struct {
	dir    string
	format model.OutputFormat
}

// NewWriter creates a writer for the given directory and format.
func NewWriter(dir string, format model.OutputFormat) *Writer {
	return &Writer{dir: dir, format: format}
}

// RunArtifacts is what the writer needs from a completed run.
type RunArtifacts struct {
	Signals  []model.Signal
	Findings []model.Finding
	Evidence []model.Evidence
}

// WriteRun writes the signal, finding, and evidence artifacts and returns
// their content hashes, ordered by artifact name. The caller records these in
// the manifest before writing it.
func (w *Writer) WriteRun(artifacts RunArtifacts) ([]model.ArtifactHash, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, &model.PersistenceError{Op: "create output dir", Err: err}
	}

	files := []struct {
		name   string
		render func() ([]byte, error)
	}{
		{"signals", func() ([]byte, error) { return w.renderSignals(artifacts.Signals) }},
		{"findings", func() ([]byte, error) { return w.renderFindings(artifacts.Findings) }},
		{"evidence", func() ([]byte, error) { return w.renderEvidence(artifacts.Evidence) }},
	}

	var hashes []model.ArtifactHash
	for _, f := range files {
		data, err := f.render()
		if err != nil {
			return nil, err
		}
		name := f.name + "." + w.format.Extension()
		if err := os.WriteFile(filepath.Join(w.dir, name), data, 0o644); err != nil {
			return nil, &model.PersistenceError{Op: "write " + name, Err: err}
		}
		hashes = append(hashes, model.ArtifactHash{Name: name, SHA256: identity.SHA256Hex(data)})
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i].Name < hashes[j].Name })
	return hashes, nil
}

// WriteManifest writes the finalized manifest as JSON, regardless of the run
// format, and returns its content hash.
func (w *Writer) WriteManifest(m *model.Manifest) (model.ArtifactHash, error) {
	data, err := marshalJSON(m)
	if err != nil {
		return model.ArtifactHash{}, err
	}
	path := filepath.Join(w.dir, "manifest.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return model.ArtifactHash{}, &model.PersistenceError{Op: "write manifest.json", Err: err}
	}
	return model.ArtifactHash{Name: "manifest.json", SHA256: identity.SHA256Hex(data)}, nil
}

// WriteTrend writes the trend report in the writer's format.
func (w *Writer) WriteTrend(report *model.TrendReport) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", &model.PersistenceError{Op: "create output dir", Err: err}
	}
	var data []byte
	var err error
	switch w.format {
	case model.FormatMarkdown:
		data = []byte(trendMarkdown(report))
	case model.FormatCSV:
		data, err = trendCSV(report)
	case model.FormatJSONL:
		data, err = marshalJSONL([]interface{}{report})
	default:
		data, err = marshalJSON(report)
	}
	if err != nil {
		return "", err
	}
	name := "trend." + w.format.Extension()
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &model.PersistenceError{Op: "write " + name, Err: err}
	}
	return path, nil
}

func (w *Writer) renderSignals(signals []model.Signal) ([]byte, error) {
	switch w.format {
	case model.FormatMarkdown:
		return []byte(signalsMarkdown(signals)), nil
	case model.FormatCSV:
		return signalsCSV(signals)
	case model.FormatJSON:
		return marshalJSON(signals)
	default:
		rows := make([]interface{}, len(signals))
		for i, s := range signals {
			rows[i] = s
		}
		return marshalJSONL(rows)
	}
}

func (w *Writer) renderFindings(findings []model.Finding) ([]byte, error) {
	switch w.format {
	case model.FormatMarkdown:
		return []byte(findingsMarkdown(findings)), nil
	case model.FormatCSV:
		return findingsCSV(findings)
	case model.FormatJSON:
		return marshalJSON(findings)
	default:
		rows := make([]interface{}, len(findings))
		for i, f := range findings {
			rows[i] = f
		}
		return marshalJSONL(rows)
	}
}

func (w *Writer) renderEvidence(evidence []model.Evidence) ([]byte, error) {
	switch w.format {
	case model.FormatMarkdown:
		return []byte(evidenceMarkdown(evidence)), nil
	case model.FormatCSV:
		return evidenceCSV(evidence)
	case model.FormatJSON:
		return marshalJSON(evidence)
	default:
		rows := make([]interface{}, len(evidence))
		for i, e := range evidence {
			rows[i] = e
		}
		return marshalJSONL(rows)
	}
}

// marshalJSONL encodes one record per line with no HTML escaping, the
// replay-comparison format.
func marshalJSONL(rows []interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return nil, fmt.Errorf("encode record: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func marshalJSON(v interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return buf.Bytes(), nil
}
