package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/egovauthenticator/api/internal/domain"
	"github.com/egovauthenticator/api/internal/infrastructure/gemini"
	"github.com/egovauthenticator/api/internal/pkg/jsonx"
	"github.com/egovauthenticator/api/internal/pkg/normalize"
	"github.com/egovauthenticator/api/internal/pkg/strategy"
)

const (
	structuredCodeMaxTokens = 512
	// PhilSysDocumentType is the document type assigned to results read from a national ID QR code.
	PhilSysDocumentType = "PhilSys National ID"
	trustedIssuer       = "PSA"
)

// detectStructuredCode asks for a decoded QR code only. Availability errors move
// on to the next model; any other failure ends the pass with an empty payload.
func (s *service) detectStructuredCode(ctx context.Context, img gemini.Image) (domain.StructuredCodePayload, error) {
	runner := strategy.Runner[string, domain.StructuredCodePayload]{
		Scopes: s.models,
		Attempts: []strategy.Attempt[string, domain.StructuredCodePayload]{
			{Name: "structured_code", Run: func(ctx context.Context, model string) (domain.StructuredCodePayload, error) {
				res, err := s.provider.Generate(ctx, gemini.Request{
					Model:           model,
					Prompt:          structuredCodePrompt,
					Images:          []gemini.Image{img},
					Schema:          structuredCodeSchema(),
					Temperature:     gemini.Temperature(0),
					MaxOutputTokens: structuredCodeMaxTokens,
				})
				if err != nil {
					return domain.StructuredCodePayload{}, err
				}
				return decodePayload(res.JSON)
			}},
		},
		Classify: func(err error) strategy.Class {
			if gemini.IsKind(err, gemini.KindModelUnavailable) {
				return strategy.NextScope
			}
			return strategy.Fatal
		},
	}
	p, err := runner.Run(ctx)
	if err != nil {
		return domain.StructuredCodePayload{}, err
	}
	return p, nil
}

func decodePayload(raw json.RawMessage) (domain.StructuredCodePayload, error) {
	var p domain.StructuredCodePayload
	if err := jsonx.Unmarshal(raw, &p); err != nil {
		return domain.StructuredCodePayload{}, fmt.Errorf("decode structured code: %w", err)
	}
	if !p.Found {
		return domain.StructuredCodePayload{}, nil
	}
	if len(p.Structured) == 0 {
		p.Structured = nil
		// The raw text may itself be the JSON document.
		var obj map[string]any
		if jsonx.Decode(p.Raw, &obj) {
			p.Structured = obj
		}
	}
	return p, nil
}

// trustedResult maps a national ID QR payload to an ExtractionResult. It reports
// false unless the payload names the trusted issuer and carries the required
// subject fields with a 16-digit PCN.
func trustedResult(p domain.StructuredCodePayload) (domain.ExtractionResult, bool) {
	if !p.Found || p.Structured == nil {
		return domain.ExtractionResult{}, false
	}
	if str(p.Structured, "Issuer") != trustedIssuer {
		return domain.ExtractionResult{}, false
	}
	subject, ok := p.Structured["subject"].(map[string]any)
	if !ok {
		return domain.ExtractionResult{}, false
	}
	first, last, dob, pcn := str(subject, "fName"), str(subject, "lName"), str(subject, "DOB"), str(subject, "PCN")
	if first == "" || last == "" || dob == "" || pcn == "" {
		return domain.ExtractionResult{}, false
	}
	digits := normalize.Digits(pcn)
	if len(digits) != 16 {
		return domain.ExtractionResult{}, false
	}

	r := domain.ExtractionResult{
		DocumentType: PhilSysDocumentType,
		ExternalID:   digits,
		FirstName:    normalize.Name(first),
		MiddleName:   normalize.Name(str(subject, "mName")),
		LastName:     normalize.Name(last),
		Sex:          normalize.Sex(str(subject, "sex")),
		DateOfBirth:  normalize.Date(dob),
		PlaceOfBirth: normalize.Spaces(str(subject, "POB")),
	}
	names := []string{r.FirstName, r.MiddleName, r.LastName, normalize.Name(str(subject, "Suffix"))}
	r.FullName = normalize.Spaces(strings.Join(names, " "))

	var notes []string
	if bf := str(subject, "BF"); bf != "" {
		notes = append(notes, "BF: "+bf)
	}
	if issued := str(p.Structured, "DateIssued"); issued != "" {
		notes = append(notes, "Date issued: "+normalize.Spaces(issued))
	}
	r.OtherNotes = strings.Join(notes, "; ")
	return r, true
}

func str(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
