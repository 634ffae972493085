// Package identity derives the stable identifiers the pipeline depends on:
// signal ids, dedupe keys, scope/config fingerprints, and run ids. All of
// them are pure functions of their inputs; recomputing from identical inputs
// always yields identical output, across runs and platforms.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sort"
	"strings"

	"github.com/osprey-sec/osprey/internal/model"
)

// schemeVersion is baked into every derived id. Any change to the hashing
// scheme invalidates cross-run dedupe, so it must bump this version.
const schemeVersion = "v1"

// SHA256Hex returns the lowercase hex SHA-256 of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SignalID derives the stable signal id. Indicators are sorted into canonical
// order first, so input-order differences never change the output.
func SignalID(signalType model.SignalType, subject, evidenceRef string, indicators []string) string {
	payload := strings.Join([]string{
		schemeVersion,
		string(signalType),
		subject,
		evidenceRef,
		strings.Join(sortedCopy(indicators), ","),
	}, "|")
	return "sig_" + SHA256Hex([]byte(payload))
}

// DedupeKey derives the cross-run identity used to collapse repeated
// observations. Unlike SignalID it excludes the evidence reference: the same
// observation collected twice must collapse to one key.
func DedupeKey(signalType model.SignalType, subject string, indicators []string) string {
	return strings.Join([]string{
		schemeVersion,
		string(signalType),
		subject,
		strings.Join(sortedCopy(indicators), ","),
	}, ":")
}

// EvidenceRef derives a reference id for evidence that arrived without one.
func EvidenceRef(signalType model.SignalType, subject string, indicators []string) string {
	payload := strings.Join([]string{
		schemeVersion,
		string(signalType),
		subject,
		strings.Join(sortedCopy(indicators), ","),
	}, "|")
	return "ev_" + SHA256Hex([]byte(payload))
}

// FindingID derives a finding id from the rule name and the sorted ids of the
// contributing signals.
func FindingID(rule string, signalIDs []string) string {
	payload := rule + "|" + strings.Join(sortedCopy(signalIDs), ",")
	return "fnd_" + SHA256Hex([]byte(payload))
}

// RunID derives a run id from the canonicalized manifest.
func RunID(manifest *model.Manifest) (string, error) {
	data, err := StableJSON(manifest)
	if err != nil {
		return "", &model.HashingError{Err: err}
	}
	return "run_" + SHA256Hex(data), nil
}

// FileHash hashes an artifact on disk.
func FileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return SHA256Hex(data), nil
}

// BuildID identifies the build in manifests. CI injects the commit; local
// builds report "dev".
func BuildID() string {
	for _, key := range []string{"OSPREY_BUILD", "GITHUB_SHA"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return "dev"
}

func sortedCopy(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}
