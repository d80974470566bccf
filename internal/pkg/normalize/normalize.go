// Package normalize holds the field canonicalisation rules shared by extraction,
// reference cross-checks and the remote verifier.
package normalize

import (
	"strings"
	"time"
	"unicode"

	"github.com/egovauthenticator/api/internal/domain"
)

// Sex maps free-form model or form input to "Male", "Female" or "".
func Sex(s string) string {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(s), ".")) {
	case "male", "m":
		return domain.SexMale
	case "female", "f":
		return domain.SexFemale
	default:
		return ""
	}
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"02 January 2006",
	"2 January 2006",
}

// Date converts a date in any accepted layout to YYYY-MM-DD, or "" if none match.
func Date(s string) string {
	s = Spaces(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	// Title-case month names such as "JANUARY 2, 1990".
	if t, err := time.Parse("January 2, 2006", titleMonth(s)); err == nil {
		return t.Format("2006-01-02")
	}
	if t, err := time.Parse("02 January 2006", titleMonth(s)); err == nil {
		return t.Format("2006-01-02")
	}
	return ""
}

func titleMonth(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		if w != "" && unicode.IsLetter(rune(w[0])) {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Digits keeps only the decimal digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Spaces trims s and collapses internal whitespace runs to one space.
func Spaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NoSpaces removes every whitespace character.
func NoSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// Name upper-cases and whitespace-collapses a name component.
func Name(s string) string {
	return strings.ToUpper(Spaces(s))
}

// Result canonicalises every field of r: trimmed strings, enum sex, ISO date.
func Result(r domain.ExtractionResult) domain.ExtractionResult {
	return domain.ExtractionResult{
		DocumentType:   Spaces(r.DocumentType),
		ExternalID:     Spaces(r.ExternalID),
		FullName:       Spaces(r.FullName),
		FirstName:      Spaces(r.FirstName),
		MiddleName:     Spaces(r.MiddleName),
		LastName:       Spaces(r.LastName),
		Sex:            Sex(r.Sex),
		DateOfBirth:    Date(r.DateOfBirth),
		PlaceOfBirth:   Spaces(r.PlaceOfBirth),
		Address:        Spaces(r.Address),
		PrecinctNumber: Spaces(r.PrecinctNumber),
		VoterIDNumber:  Spaces(r.VoterIDNumber),
		OtherNotes:     strings.TrimSpace(r.OtherNotes),
	}
}
