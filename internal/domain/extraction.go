package domain

// ExtractionResult is the canonical output of document extraction. Every field is
// always present; an empty string means the value could not be determined.
type ExtractionResult struct {
	DocumentType   string `json:"documentType"`
	ExternalID     string `json:"externalId"`
	FullName       string `json:"fullName"`
	FirstName      string `json:"firstName"`
	MiddleName     string `json:"middleName"`
	LastName       string `json:"lastName"`
	Sex            string `json:"sex"`
	DateOfBirth    string `json:"dateOfBirth"`
	PlaceOfBirth   string `json:"placeOfBirth"`
	Address        string `json:"address"`
	PrecinctNumber string `json:"precinctNumber"`
	VoterIDNumber  string `json:"voterIdNumber"`
	OtherNotes     string `json:"otherNotes"`
}

// Sex values accepted by the pipeline. The empty string means unknown.
const (
	SexMale   = "Male"
	SexFemale = "Female"
)

// Fields returns the result as a flat map keyed by JSON field name, without the
// document type. It is the shape stored on verification records.
func (r ExtractionResult) Fields() map[string]string {
	return map[string]string{
		"externalId":     r.ExternalID,
		"fullName":       r.FullName,
		"firstName":      r.FirstName,
		"middleName":     r.MiddleName,
		"lastName":       r.LastName,
		"sex":            r.Sex,
		"dateOfBirth":    r.DateOfBirth,
		"placeOfBirth":   r.PlaceOfBirth,
		"address":        r.Address,
		"precinctNumber": r.PrecinctNumber,
		"voterIdNumber":  r.VoterIDNumber,
		"otherNotes":     r.OtherNotes,
	}
}

// StructuredCodePayload is the result of scanning an image for a QR or similar code.
// When Found is false both Raw and Structured are empty.
type StructuredCodePayload struct {
	Found      bool           `json:"found"`
	Raw        string         `json:"raw"`
	Structured map[string]any `json:"structured,omitempty"`
}
