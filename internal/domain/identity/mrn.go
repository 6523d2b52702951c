package identity

import (
	"fmt"
	"strings"
)

const mrnPrefix = "MRN"

// FormatMRN renders a sequence number as MRN plus at least four digits.
func FormatMRN(seq int64) string {
	return fmt.Sprintf("%s%04d", mrnPrefix, seq)
}

// MRNCandidates lists, in match order, the MRNs a free-text identifier may
// refer to: the identifier itself, then a bare number padded to four digits,
// then an "mrn"-prefixed number with its digits padded.
func MRNCandidates(identifier string) []string {
	id := strings.ToUpper(strings.TrimSpace(identifier))
	if id == "" {
		return nil
	}

	out := []string{id}
	add := func(c string) {
		for _, seen := range out {
			if seen == c {
				return
			}
		}
		out = append(out, c)
	}

	if isDigits(id) {
		add(mrnPrefix + padDigits(id))
	}
	if rest, ok := strings.CutPrefix(id, mrnPrefix); ok && isDigits(rest) {
		add(mrnPrefix + padDigits(rest))
	}
	return out
}

// CanonicalMRN normalizes a supplied MRN: numeric forms ("12", "mrn12")
// become "MRN0012"; anything else is upper-cased and kept.
func CanonicalMRN(mrn string) string {
	id := strings.ToUpper(strings.TrimSpace(mrn))
	if isDigits(id) {
		return mrnPrefix + padDigits(id)
	}
	if rest, ok := strings.CutPrefix(id, mrnPrefix); ok && isDigits(rest) {
		return mrnPrefix + padDigits(rest)
	}
	return id
}

func padDigits(d string) string {
	if len(d) >= 4 {
		return d
	}
	return strings.Repeat("0", 4-len(d)) + d
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
