package domain

import "time"

// PSARecord is a civil-registry birth record used to cross-check PSA documents.
type PSARecord struct {
	ID          int64
	FirstName   string
	MiddleName  string
	LastName    string
	Sex         string
	DateOfBirth time.Time
	CreatedAt   time.Time
}

// VoterRecord is a voter-list entry used to cross-check voter certifications.
type VoterRecord struct {
	ID             int64
	PrecinctNumber string
	FirstName      string
	MiddleName     string
	LastName       string
	CreatedAt      time.Time
}
