package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/osprey-sec/osprey/internal/model"
)

func signalsCSV(signals []model.Signal) ([]byte, error) {
	rows := [][]string{{"id", "type", "subject", "source", "confidence", "severity", "repeat", "dedupe_key", "indicators"}}
	for _, s := range signals {
		rows = append(rows, []string{
			s.ID, string(s.Type), s.Subject, string(s.Source),
			strconv.Itoa(s.Confidence), string(s.Severity),
			strconv.FormatBool(s.Repeat), s.DedupeKey,
			strings.Join(s.Indicators, ";"),
		})
	}
	return writeCSV(rows)
}

func findingsCSV(findings []model.Finding) ([]byte, error) {
	rows := [][]string{{"id", "subject", "confidence", "severity", "disposition", "matched_rules", "blocked_by", "signal_ids"}}
	for _, f := range findings {
		rows = append(rows, []string{
			f.ID, f.Subject, strconv.Itoa(f.Confidence), string(f.Severity),
			string(f.Disposition), strings.Join(f.MatchedRules, ";"),
			f.BlockedBy, strings.Join(f.SignalIDs, ";"),
		})
	}
	return writeCSV(rows)
}

func evidenceCSV(evidence []model.Evidence) ([]byte, error) {
	rows := [][]string{{"id", "source", "observed_at", "url", "redacted"}}
	for _, e := range evidence {
		rows = append(rows, []string{
			e.ID, string(e.Source), e.ObservedAt.Format("2006-01-02T15:04:05Z07:00"),
			e.URL, strconv.FormatBool(e.Redacted),
		})
	}
	return writeCSV(rows)
}

func trendCSV(report *model.TrendReport) ([]byte, error) {
	rows := [][]string{{"dimension", "key", "count", "prev_count", "delta", "first_seen_in_window"}}
	sections := []struct {
		name    string
		buckets []model.TrendBucket
	}{
		{"signal_type", report.BySignalType},
		{"subject", report.BySubject},
		{"dedupe_key", report.ByDedupeKey},
	}
	for _, section := range sections {
		for _, b := range section.buckets {
			rows = append(rows, []string{
				section.name, b.Key, strconv.Itoa(b.Count), strconv.Itoa(b.PrevCount),
				strconv.Itoa(b.Delta), strconv.FormatBool(b.FirstSeenInWindow),
			})
		}
	}
	return writeCSV(rows)
}

func writeCSV(rows [][]string) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
