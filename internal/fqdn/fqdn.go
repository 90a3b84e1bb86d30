// Package fqdn implements the validated, canonicalized domain name value
// type used throughout the zone synthesis pipeline.
package fqdn

import (
	"errors"
	"fmt"
	"strings"
)

// FQDN is a lowercase, dot-separated sequence of labels, optionally
// trailing-dotted. The zero value is not a valid FQDN; construct one with
// Parse.
type FQDN struct {
	// raw preserves the canonical (lowercased) form exactly as given,
	// including a trailing dot if the input carried one.
	raw string
}

var (
	ErrEmptyInput = errors.New("fqdn: empty input")
	ErrLabelEmpty = errors.New("fqdn: empty label")
)

// LabelTooLongError reports a label exceeding 63 bytes.
type LabelTooLongError struct{ Label string }

func (e *LabelTooLongError) Error() string {
	return fmt.Sprintf("fqdn: label %q exceeds 63 bytes", e.Label)
}

// InvalidLabelStartError reports a label not starting with a letter or digit.
type InvalidLabelStartError struct{ Label string }

func (e *InvalidLabelStartError) Error() string {
	return fmt.Sprintf("fqdn: label %q has invalid start character", e.Label)
}

// InvalidLabelEndError reports a label not ending with an alphanumeric.
type InvalidLabelEndError struct{ Label string }

func (e *InvalidLabelEndError) Error() string {
	return fmt.Sprintf("fqdn: label %q has invalid end character", e.Label)
}

// InvalidCharacterError reports a disallowed interior character.
type InvalidCharacterError struct {
	Label string
	Char  byte
}

func (e *InvalidCharacterError) Error() string {
	return fmt.Sprintf("fqdn: label %q contains invalid character %q", e.Label, e.Char)
}

// Parse validates s and returns its canonical lowercase form. A single
// trailing dot, if present, is preserved in the result but not required for
// validation of the labels that precede it.
func Parse(s string) (FQDN, error) {
	if strings.TrimSpace(s) == "" {
		return FQDN{}, ErrEmptyInput
	}

	trimmed := s
	hadDot := strings.HasSuffix(s, ".")
	if hadDot {
		trimmed = s[:len(s)-1]
	}
	if trimmed == "" {
		return FQDN{}, ErrEmptyInput
	}

	labels := strings.Split(trimmed, ".")
	for _, l := range labels {
		if err := validateLabel(l); err != nil {
			return FQDN{}, err
		}
	}

	canon := strings.ToLower(trimmed)
	if hadDot {
		canon += "."
	}
	return FQDN{raw: canon}, nil
}

// MustParse is Parse but panics on error. Intended for constants.
func MustParse(s string) FQDN {
	f, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return f
}

func validateLabel(l string) error {
	if l == "" {
		return ErrLabelEmpty
	}
	if len(l) > 63 {
		return &LabelTooLongError{Label: l}
	}
	if !isAlnum(l[0]) {
		return &InvalidLabelStartError{Label: l}
	}
	if !isAlnum(l[len(l)-1]) {
		return &InvalidLabelEndError{Label: l}
	}
	for i := 0; i < len(l); i++ {
		c := l[i]
		if isAlnum(c) || c == '-' || c == '/' {
			continue
		}
		return &InvalidCharacterError{Label: l, Char: c}
	}
	return nil
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// String returns the canonical form, including any trailing dot.
func (f FQDN) String() string { return f.raw }

// IsZero reports whether f is the zero value (never produced by Parse).
func (f FQDN) IsZero() bool { return f.raw == "" }

// trimmedLabels returns the label sequence with any trailing dot stripped.
func (f FQDN) trimmedLabels() []string {
	s := strings.TrimSuffix(f.raw, ".")
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}

// Equal compares two FQDNs case-insensitively via their canonical form,
// ignoring a trailing-dot difference.
func (f FQDN) Equal(other FQDN) bool {
	return strings.TrimSuffix(f.raw, ".") == strings.TrimSuffix(other.raw, ".")
}

// IsChildOf reports whether f has strictly more labels than parent and
// parent's labels equal the suffix of f's labels.
func (f FQDN) IsChildOf(parent FQDN) bool {
	fl := f.trimmedLabels()
	pl := parent.trimmedLabels()
	if len(fl) <= len(pl) {
		return false
	}
	offset := len(fl) - len(pl)
	for i, lbl := range pl {
		if fl[offset+i] != lbl {
			return false
		}
	}
	return true
}

// RelativeTo returns "@" if f equals parent, the dot-joined prefix labels if
// f is a strict child of parent, or ok=false otherwise.
func (f FQDN) RelativeTo(parent FQDN) (rel string, ok bool) {
	if f.Equal(parent) {
		return "@", true
	}
	if !f.IsChildOf(parent) {
		return "", false
	}
	fl := f.trimmedLabels()
	pl := parent.trimmedLabels()
	prefix := fl[:len(fl)-len(pl)]
	return strings.Join(prefix, "."), true
}

// TLD returns the rightmost non-empty label.
func (f FQDN) TLD() string {
	labels := f.trimmedLabels()
	if len(labels) == 0 {
		return ""
	}
	return labels[len(labels)-1]
}

// Labels returns the label sequence with any trailing dot stripped.
func (f FQDN) Labels() []string {
	labels := f.trimmedLabels()
	out := make([]string, len(labels))
	copy(out, labels)
	return out
}

// WithTrailingDot returns f with a trailing dot, adding one if absent.
func (f FQDN) WithTrailingDot() FQDN {
	if strings.HasSuffix(f.raw, ".") {
		return f
	}
	return FQDN{raw: f.raw + "."}
}
