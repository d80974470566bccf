package normalize

import (
	"testing"

	"github.com/egovauthenticator/api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSex(t *testing.T) {
	cases := map[string]string{
		"Male": "Male", " m ": "Male", "MALE": "Male", "M.": "Male",
		"female": "Female", "F": "Female",
		"": "", "unknown": "", "1": "", "Male/Female": "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Sex(in), "input %q", in)
	}
}

func TestDate(t *testing.T) {
	cases := map[string]string{
		"1990-01-01":        "1990-01-01",
		"1990/01/31":        "1990-01-31",
		"01/31/1990":        "1990-01-31",
		"January 2, 1990":   "1990-01-02",
		"JANUARY 2, 1990":   "1990-01-02",
		"02 January 1990":   "1990-01-02",
		"02 JANUARY 1990":   "1990-01-02",
		"  1990-01-01  ":    "1990-01-01",
		"":                  "",
		"sometime in 1990":  "",
		"1990-13-45":        "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Date(in), "input %q", in)
	}
}

func TestDigitsAndSpaces(t *testing.T) {
	assert.Equal(t, "1234567890123456", Digits("1234-5678-9012-3456"))
	assert.Equal(t, "QUEZON CITY", Name("  quezon   city "))
	assert.Equal(t, "0012A", NoSpaces(" 00 12 A "))
}

func TestResult(t *testing.T) {
	r := Result(domain.ExtractionResult{
		FirstName:   " JUAN ",
		Sex:         "m",
		DateOfBirth: "01/01/1990",
	})
	assert.Equal(t, "JUAN", r.FirstName)
	assert.Equal(t, "Male", r.Sex)
	assert.Equal(t, "1990-01-01", r.DateOfBirth)
}
