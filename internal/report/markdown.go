package report

import (
	"fmt"
	"strings"

	"github.com/osprey-sec/osprey/internal/model"
)

func signalsMarkdown(signals []model.Signal) string {
	var b strings.Builder
	b.WriteString("# Signals\n\n")
	if len(signals) == 0 {
		b.WriteString("No signals in this run.\n")
		return b.String()
	}
	b.WriteString("| ID | Type | Subject | Confidence | Severity | Repeat |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, s := range signals {
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %s | %t |\n",
			shortID(s.ID), s.Type, s.Subject, s.Confidence, s.Severity, s.Repeat)
	}
	b.WriteString("\n")
	for _, s := range signals {
		fmt.Fprintf(&b, "## %s\n\n", shortID(s.ID))
		fmt.Fprintf(&b, "- Subject: %s\n", s.Subject)
		fmt.Fprintf(&b, "- Source: %s\n", s.Source)
		fmt.Fprintf(&b, "- Rationale: %s\n", s.Rationale)
		if len(s.Indicators) > 0 {
			fmt.Fprintf(&b, "- Indicators: %s\n", strings.Join(s.Indicators, ", "))
		}
		for _, action := range s.RecommendedActions {
			fmt.Fprintf(&b, "- Action: %s\n", action)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func findingsMarkdown(findings []model.Finding) string {
	var b strings.Builder
	b.WriteString("# Findings\n\n")
	if len(findings) == 0 {
		b.WriteString("No findings in this run.\n")
		return b.String()
	}
	for _, f := range findings {
		fmt.Fprintf(&b, "## %s (%s)\n\n", f.Title, strings.ToUpper(string(f.Disposition)))
		fmt.Fprintf(&b, "- Confidence: %d\n", f.Confidence)
		fmt.Fprintf(&b, "- Severity: %s\n", f.Severity)
		fmt.Fprintf(&b, "- Rationale: %s\n", f.Rationale)
		if f.BlockedBy != "" {
			fmt.Fprintf(&b, "- Blocked by: %s\n", f.BlockedBy)
		}
		if f.SuppressionReason != "" {
			fmt.Fprintf(&b, "- Suppressed: %s\n", f.SuppressionReason)
		}
		if len(f.RuleTrace) > 0 {
			b.WriteString("- Rule trace:\n")
			for _, entry := range f.RuleTrace {
				fmt.Fprintf(&b, "  - %s: %s (%+d)\n", entry.Rule, entry.Effect, entry.Delta)
			}
		}
		fmt.Fprintf(&b, "- Signals: %s\n\n", strings.Join(shortIDs(f.SignalIDs), ", "))
	}
	return b.String()
}

func evidenceMarkdown(evidence []model.Evidence) string {
	var b strings.Builder
	b.WriteString("# Evidence\n\n")
	if len(evidence) == 0 {
		b.WriteString("No evidence records.\n")
		return b.String()
	}
	b.WriteString("| ID | Source | Observed | Redacted |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, e := range evidence {
		fmt.Fprintf(&b, "| %s | %s | %s | %t |\n",
			e.ID, e.Source, e.ObservedAt.Format("2006-01-02 15:04"), e.Redacted)
	}
	return b.String()
}

func trendMarkdown(report *model.TrendReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Trend %s to %s\n\n",
		report.WindowStart.Format("2006-01-02"), report.WindowEnd.Format("2006-01-02"))
	for _, line := range report.Summary {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	b.WriteString("\n")
	sections := []struct {
		title   string
		buckets []model.TrendBucket
	}{
		{"By signal type", report.BySignalType},
		{"By subject", report.BySubject},
		{"By dedupe key", report.ByDedupeKey},
	}
	for _, section := range sections {
		fmt.Fprintf(&b, "## %s\n\n", section.title)
		if len(section.buckets) == 0 {
			b.WriteString("No data.\n\n")
			continue
		}
		b.WriteString("| Key | Count | Previous | Delta | New |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, bucket := range section.buckets {
			fmt.Fprintf(&b, "| %s | %d | %d | %+d | %t |\n",
				bucket.Key, bucket.Count, bucket.PrevCount, bucket.Delta, bucket.FirstSeenInWindow)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 16 {
		return id[:16]
	}
	return id
}

func shortIDs(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = shortID(id)
	}
	return out
}
