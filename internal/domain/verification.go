package domain

import "time"

// VerificationType names the reference source a verification was checked against.
type VerificationType string

const (
	VerificationPSA     VerificationType = "PSA"
	VerificationPhilSys VerificationType = "PHILSYS"
	VerificationVoters  VerificationType = "VOTERS"
	VerificationUnknown VerificationType = "UNKNOWN"
)

// VerificationStatus is the recorded outcome of a verification attempt.
type VerificationStatus string

const (
	StatusAuthentic VerificationStatus = "AUTHENTIC"
	StatusFake      VerificationStatus = "FAKE"
	StatusError     VerificationStatus = "ERROR"
)

// Verification is one persisted verification attempt. Records are never hard-deleted;
// Active is flipped to false on delete.
type Verification struct {
	VerificationID string             `json:"id" dynamodbav:"verification_id"`
	Type           VerificationType   `json:"type" dynamodbav:"type"`
	UserID         string             `json:"user_id" dynamodbav:"user_id"`
	Data           map[string]string  `json:"data" dynamodbav:"data"`
	Status         VerificationStatus `json:"status" dynamodbav:"status"`
	Active         bool               `json:"active" dynamodbav:"active"`
	CreatedAt      time.Time          `json:"created" dynamodbav:"created_at"`
}

// VerificationFilter narrows a listing of a user's verification records.
type VerificationFilter struct {
	Text    string
	Types   []VerificationType
	Page    int
	PerPage int
}

// VerificationPage is one page of a filtered listing.
type VerificationPage struct {
	Total      int            `json:"total"`
	MaxPage    int            `json:"max_page"`
	ActualPage int            `json:"actual_page"`
	PerPage    int            `json:"per_page"`
	Data       []Verification `json:"data"`
}

type PSAVerifyRequest struct {
	FirstName   string `json:"firstName" validate:"required"`
	MiddleName  string `json:"middleName"`
	LastName    string `json:"lastName" validate:"required"`
	Sex         string `json:"sex" validate:"required,sex"`
	DateOfBirth string `json:"dateOfBirth" validate:"required"`
}

type VotersVerifyRequest struct {
	PrecinctNumber string `json:"precinctNumber" validate:"required"`
	FirstName      string `json:"firstName" validate:"required"`
	LastName       string `json:"lastName" validate:"required"`
}

// PhilSysVerifyRequest carries the fields decoded from a national ID QR code.
type PhilSysVerifyRequest struct {
	PCN          string `json:"pcn" validate:"required,pcn"`
	FirstName    string `json:"firstName" validate:"required"`
	MiddleName   string `json:"middleName"`
	LastName     string `json:"lastName" validate:"required"`
	Suffix       string `json:"suffix"`
	Sex          string `json:"sex" validate:"omitempty,sex"`
	DateOfBirth  string `json:"dateOfBirth" validate:"required"`
	PlaceOfBirth string `json:"placeOfBirth"`
	BloodType    string `json:"bloodType"`
	DateIssued   string `json:"dateIssued"`
}

// DocumentUpload is an uploaded identity document plus an optional crop of the sex field.
type DocumentUpload struct {
	Image       []byte
	Filename    string
	MimeType    string
	SexCrop     []byte
	SexCropMime string
}

// VerificationEvent is published after a record is persisted.
type VerificationEvent struct {
	VerificationID string             `json:"verification_id"`
	UserID         string             `json:"user_id"`
	Type           VerificationType   `json:"type"`
	Status         VerificationStatus `json:"status"`
	Created        time.Time          `json:"created"`
}

func NewVerificationEvent(v *Verification) VerificationEvent {
	return VerificationEvent{
		VerificationID: v.VerificationID,
		UserID:         v.UserID,
		Type:           v.Type,
		Status:         v.Status,
		Created:        v.CreatedAt,
	}
}
