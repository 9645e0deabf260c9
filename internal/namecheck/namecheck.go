// Package namecheck holds the destination naming rules applied to every
// file and folder before migration.
//
// A name passes when it stays under the length ceiling, is not reserved by
// the destination, and contains none of the characters the destination
// rejects. Reserved-name matching is case-insensitive: destination
// filesystems do not distinguish case, so DESKTOP.INI is as unwelcome as
// desktop.ini.
package namecheck

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxNameLength is the destination's per-name character ceiling,
// counted in runes.
const MaxNameLength = 400

// Replacement is substituted for every illegal character when a
// corrected name is proposed.
const Replacement = "-"

// reservedWholeNames are rejected when they match an entire name.
var reservedWholeNames = []string{"desktop.ini"}

// reservedFragments are rejected wherever they appear inside a name.
var reservedFragments = []string{"_vti_"}

// illegalStrings are the characters the destination refuses in names.
// The source filesystem already rejects the rest of the usual suspects.
var illegalStrings = []string{"#", "%"}

// Kind identifies a category of naming-rule violation.
type Kind string

const (
	// KindNameTooLong flags a name over the length ceiling.
	KindNameTooLong Kind = "NameTooLong"

	// KindReservedName flags a name the destination reserves.
	KindReservedName Kind = "ReservedName"

	// KindIllegalCharacter flags one occurrence of a character the
	// destination rejects.
	KindIllegalCharacter Kind = "IllegalCharacter"
)

// Violation describes one way a name fails the destination rules.
type Violation struct {
	// Kind is the violation category.
	Kind Kind

	// Detail is the human-readable description carried into the
	// remediation report.
	Detail string

	// Replacement is the proposed substitute character. Set only for
	// IllegalCharacter violations.
	Replacement string
}

// Evaluate classifies a leaf name against the destination rules and
// returns every violation found, in a fixed order: length first, then
// reserved names, then one violation per illegal-character occurrence
// scanning the name left to right.
func Evaluate(name string) []Violation {
	var vs []Violation

	if n := utf8.RuneCountInString(name); n > MaxNameLength {
		vs = append(vs, Violation{
			Kind:   KindNameTooLong,
			Detail: fmt.Sprintf("Name is %d characters long and exceeds the limit of %d", n, MaxNameLength),
		})
	}

	lower := strings.ToLower(name)
	for _, reserved := range reservedWholeNames {
		if lower == reserved {
			vs = append(vs, Violation{
				Kind:   KindReservedName,
				Detail: fmt.Sprintf("Name '%s' is reserved", name),
			})
		}
	}
	for _, fragment := range reservedFragments {
		if strings.Contains(lower, fragment) {
			vs = append(vs, Violation{
				Kind:   KindReservedName,
				Detail: fmt.Sprintf("Name contains reserved string '%s'", fragment),
			})
		}
	}

	for _, r := range name {
		for _, illegal := range illegalStrings {
			if string(r) == illegal {
				vs = append(vs, Violation{
					Kind:        KindIllegalCharacter,
					Detail:      fmt.Sprintf("Illegal string '%s' found", illegal),
					Replacement: Replacement,
				})
			}
		}
	}

	return vs
}

// Propose returns the name with every illegal character replaced.
// Proposing is idempotent: evaluating the result yields no
// IllegalCharacter violations.
func Propose(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if isIllegal(r) {
			b.WriteString(Replacement)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Correctable reports whether a rename alone fixes the violations.
// Length and reserved-name violations have no safe automatic fix, so a
// name carrying either is never correctable.
func Correctable(vs []Violation) bool {
	if len(vs) == 0 {
		return false
	}
	for _, v := range vs {
		if v.Kind != KindIllegalCharacter {
			return false
		}
	}
	return true
}

// Details collects the violation descriptions in evaluation order.
func Details(vs []Violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Detail)
	}
	return out
}

func isIllegal(r rune) bool {
	for _, illegal := range illegalStrings {
		if string(r) == illegal {
			return true
		}
	}
	return false
}
