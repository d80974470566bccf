package verification

import (
	"strings"

	"github.com/egovauthenticator/api/internal/domain"
	"github.com/egovauthenticator/api/internal/pkg/normalize"
)

// Classify maps the free-text document type reported by extraction to a
// verification type. Anything unrecognised is VerificationUnknown.
func Classify(documentType string) domain.VerificationType {
	hint := strings.ToLower(normalize.Spaces(documentType))
	switch {
	case hint == "":
		return domain.VerificationUnknown
	case strings.Contains(hint, "birth"):
		return domain.VerificationPSA
	case strings.Contains(hint, "voter"):
		return domain.VerificationVoters
	case strings.Contains(hint, "philsys"), strings.Contains(hint, "national id"):
		return domain.VerificationPhilSys
	default:
		return domain.VerificationUnknown
	}
}

// normalizePrecinct strips whitespace; OCR often splits precinct codes like "0012 A".
func normalizePrecinct(p string) string {
	return strings.ToUpper(normalize.NoSpaces(p))
}

func psaFields(req domain.PSAVerifyRequest) map[string]string {
	first, middle, last := normalize.Name(req.FirstName), normalize.Name(req.MiddleName), normalize.Name(req.LastName)
	return map[string]string{
		"fullName":    normalize.Spaces(strings.Join([]string{first, middle, last}, " ")),
		"firstName":   first,
		"middleName":  middle,
		"lastName":    last,
		"sex":         normalize.Sex(req.Sex),
		"dateOfBirth": normalize.Date(req.DateOfBirth),
	}
}

func votersFields(req domain.VotersVerifyRequest) map[string]string {
	first, last := normalize.Name(req.FirstName), normalize.Name(req.LastName)
	return map[string]string{
		"fullName":       normalize.Spaces(first + " " + last),
		"firstName":      first,
		"lastName":       last,
		"precinctNumber": normalizePrecinct(req.PrecinctNumber),
	}
}

// philSysRequest rebuilds a verifier request from a national ID extraction.
// Blood type and issue date travel in OtherNotes as "BF: x; Date issued: y".
func philSysRequest(r domain.ExtractionResult) domain.PhilSysVerifyRequest {
	req := domain.PhilSysVerifyRequest{
		PCN:          r.ExternalID,
		FirstName:    r.FirstName,
		MiddleName:   r.MiddleName,
		LastName:     r.LastName,
		Sex:          r.Sex,
		DateOfBirth:  r.DateOfBirth,
		PlaceOfBirth: r.PlaceOfBirth,
	}
	for _, note := range strings.Split(r.OtherNotes, ";") {
		k, v, ok := strings.Cut(note, ":")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "bf":
			req.BloodType = strings.TrimSpace(v)
		case "date issued":
			req.DateIssued = strings.TrimSpace(v)
		}
	}
	return req
}
