package verification

import (
	"slices"
	"strings"

	"github.com/egovauthenticator/api/internal/domain"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// searchable lists the record data keys the text filter looks at.
var searchable = []string{
	"fullName", "firstName", "middleName", "lastName",
	"externalId", "pcn", "precinctNumber", "voterIdNumber",
}

// Paginate filters records and returns the requested page, newest first.
// Page numbers start at 1; a page past the end is returned empty.
func Paginate(records []domain.Verification, f domain.VerificationFilter) domain.VerificationPage {
	perPage := f.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	perPage = min(perPage, maxPerPage)
	page := max(f.Page, 1)

	text := strings.ToLower(strings.TrimSpace(f.Text))
	matched := make([]domain.Verification, 0, len(records))
	for _, r := range records {
		if len(f.Types) > 0 && !slices.Contains(f.Types, r.Type) {
			continue
		}
		if text != "" && !matchesText(r, text) {
			continue
		}
		matched = append(matched, r)
	}
	slices.SortStableFunc(matched, func(a, b domain.Verification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	total := len(matched)
	// Compare before multiplying: (page-1)*perPage overflows for huge page numbers.
	start := total
	if page-1 < (total+perPage-1)/perPage {
		start = (page - 1) * perPage
	}
	end := min(start+perPage, total)
	return domain.VerificationPage{
		Total:      total,
		MaxPage:    (total + perPage - 1) / perPage,
		ActualPage: page,
		PerPage:    perPage,
		Data:       matched[start:end],
	}
}

func matchesText(r domain.Verification, text string) bool {
	for _, k := range searchable {
		if strings.Contains(strings.ToLower(r.Data[k]), text) {
			return true
		}
	}
	return false
}
