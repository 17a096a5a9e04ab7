package domain

import "fmt"

// Source identifies one of the fixed listing sites.
type Source string

const (
	SourceFreshersNow Source = "freshersnow"
	SourceTNPOfficer  Source = "tnpofficer"
)

func (s Source) Label() string {
	switch s {
	case SourceFreshersNow:
		return "freshersnow.com"
	case SourceTNPOfficer:
		return "tnpofficer.com"
	}
	return string(s)
}

// JobPosting is one normalized listing scraped from a source page. Link is
// the identity: two postings with the same link are the same posting even if
// the other fields drifted between scrapes. Optional fields are empty when
// the page does not carry them.
type JobPosting struct {
	Title         string
	Link          string
	Company       string
	Qualification string
	Experience    string
	Location      string
	Source        Source
}

// Selector picks which sources a refresh covers.
type Selector string

const (
	SelectBoth        Selector = "both"
	SelectFreshersNow Selector = Selector(SourceFreshersNow)
	SelectTNPOfficer  Selector = Selector(SourceTNPOfficer)
)

func ParseSelector(s string) (Selector, error) {
	switch Selector(s) {
	case SelectBoth, SelectFreshersNow, SelectTNPOfficer:
		return Selector(s), nil
	case "":
		return SelectBoth, nil
	}
	return "", fmt.Errorf("unknown source selector %q", s)
}

// Sources expands the selector in canonical delivery order: FreshersNow
// first, TNP Officer second.
func (s Selector) Sources() []Source {
	switch s {
	case SelectFreshersNow:
		return []Source{SourceFreshersNow}
	case SelectTNPOfficer:
		return []Source{SourceTNPOfficer}
	}
	return []Source{SourceFreshersNow, SourceTNPOfficer}
}
