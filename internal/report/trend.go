package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/osprey-sec/osprey/internal/model"
	"github.com/osprey-sec/osprey/internal/store"
)

// BuildTrend aggregates stored signal records over [start, end), comparing
// against the window of equal length immediately before it. Buckets are
// sorted by descending count, ties broken by key, so output is stable.
func BuildTrend(history store.History, start, end time.Time) (*model.TrendReport, error) {
	current, err := history.SignalsInWindow(start, end)
	if err != nil {
		return nil, err
	}
	prevStart := start.Add(-end.Sub(start))
	previous, err := history.SignalsInWindow(prevStart, start.Add(-time.Nanosecond))
	if err != nil {
		return nil, err
	}

	report := &model.TrendReport{
		WindowStart:  start,
		WindowEnd:    end,
		BySignalType: buckets(current, previous, func(r model.SignalRecord) string { return string(r.Type) }),
		BySubject:    buckets(current, previous, func(r model.SignalRecord) string { return r.Subject }),
		ByDedupeKey:  buckets(current, previous, func(r model.SignalRecord) string { return r.DedupeKey }),
	}
	report.Summary = summarize(report, len(current), len(previous))
	return report, nil
}

func buckets(current, previous []model.SignalRecord, key func(model.SignalRecord) string) []model.TrendBucket {
	type agg struct {
		count     int
		prev      int
		firstSeen time.Time
		lastSeen  time.Time
	}
	byKey := make(map[string]*agg)
	for _, rec := range current {
		k := key(rec)
		a := byKey[k]
		if a == nil {
			a = &agg{}
			byKey[k] = a
		}
		a.count++
		if a.firstSeen.IsZero() || rec.Timestamp.Before(a.firstSeen) {
			a.firstSeen = rec.Timestamp
		}
		if rec.Timestamp.After(a.lastSeen) {
			a.lastSeen = rec.Timestamp
		}
	}
	for _, rec := range previous {
		k := key(rec)
		if a := byKey[k]; a != nil {
			a.prev++
		} else {
			byKey[k] = &agg{prev: 1}
		}
	}

	out := make([]model.TrendBucket, 0, len(byKey))
	for k, a := range byKey {
		bucket := model.TrendBucket{
			Key:               k,
			Count:             a.count,
			PrevCount:         a.prev,
			Delta:             a.count - a.prev,
			FirstSeenInWindow: a.count > 0 && a.prev == 0,
		}
		if !a.firstSeen.IsZero() {
			firstSeen := a.firstSeen
			lastSeen := a.lastSeen
			bucket.FirstSeen = &firstSeen
			bucket.LastSeen = &lastSeen
		}
		out = append(out, bucket)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func summarize(report *model.TrendReport, current, previous int) []string {
	lines := []string{
		fmt.Sprintf("%d signal(s) in window, %d in previous window (%+d)", current, previous, current-previous),
	}
	newKeys := 0
	for _, b := range report.ByDedupeKey {
		if b.FirstSeenInWindow {
			newKeys++
		}
	}
	lines = append(lines, fmt.Sprintf("%d dedupe key(s) first seen in this window", newKeys))
	if len(report.BySignalType) > 0 {
		top := report.BySignalType[0]
		lines = append(lines, fmt.Sprintf("most active signal type: %s (%d)", top.Key, top.Count))
	}
	return lines
}
