package pipeline

import (
	"time"

	"github.com/osprey-sec/osprey/internal/model"
)

const (
	decayStep          = 15
	decayFloor         = 10
	decaySeverityBelow = 40
)

// ApplyDecay computes the time-decayed confidence and severity for a finding
// that has not been re-corroborated. The function is pure: it reads the
// stored last-corroboration timestamp and never mutates historical records.
//
// Policy: elapsed time within the scope window decays nothing; each further
// whole window elapsed subtracts a fixed step, flooring at a minimum. Once
// decayed confidence drops below a fixed threshold, severity steps down one
// level. Monotonic in now by construction.
func ApplyDecay(confidence int, severity model.Severity, lastCorroborated, now time.Time, windowDays int) (int, model.Severity) {
	if windowDays <= 0 || lastCorroborated.IsZero() || !now.After(lastCorroborated) {
		return confidence, severity
	}
	window := time.Duration(windowDays) * 24 * time.Hour
	elapsed := now.Sub(lastCorroborated)
	if elapsed <= window {
		return confidence, severity
	}

	steps := int(elapsed / window)
	decayed := confidence - steps*decayStep
	if decayed < decayFloor {
		decayed = decayFloor
	}
	if decayed < decaySeverityBelow {
		severity = severity.StepDown()
	}
	return decayed, severity
}

// DecayFinding returns a copy of the finding with decay applied at read time.
func DecayFinding(f model.Finding, now time.Time, windowDays int) model.Finding {
	conf, sev := ApplyDecay(f.Confidence, f.Severity, f.LastCorroborated, now, windowDays)
	if conf != f.Confidence || sev != f.Severity {
		f.RuleTrace = append(append([]model.RuleTraceEntry(nil), f.RuleTrace...), model.RuleTraceEntry{
			Rule:   "temporal-decay",
			Effect: "confidence decayed for lack of re-corroboration",
			Delta:  conf - f.Confidence,
		})
		f.Confidence = conf
		f.Severity = sev
	}
	return f
}
