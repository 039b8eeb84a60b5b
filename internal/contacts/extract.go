package contacts

import (
	"regexp"
	"strings"
)

// Confidence scores assigned per extraction path. They are fixed constants and
// are not adjusted by corroborating signals.
const (
	EmailConfidence     = 0.5
	TitleLineConfidence = 0.6
)

// Bounds on the number of contacts produced by each pass and overall.
const (
	MaxEmailContacts     = 10
	MaxTitleLineContacts = 5
	MaxContacts          = 15
)

const (
	emailTitle  = "Contact"
	unknownName = "Unknown"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	// A line that starts with capitalized words, a dash, then a recognized title.
	titleLinePattern = regexp.MustCompile(
		`(?m)^([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)*)[ \t]*[-–—][ \t]*` +
			`((?:CEO|CTO|CFO|VP|Director|Manager|Head of|Founder|Chief)[^,\n]*)`,
	)

	nameSeparators = regexp.MustCompile(`[._0-9]+`)
)

// Contact is a best-effort guess at a person associated with a company.
type Contact struct {
	Name       string  `json:"name"`
	Title      string  `json:"title"`
	Email      string  `json:"email"`
	LinkedIn   string  `json:"linkedin,omitempty"`
	Confidence float64 `json:"confidence"`
}

// ExtractPossibleContacts scans text for contacts that appear to work at domain.
//
// Email-derived guesses come first, then "Name - Title" line matches, each in
// the order they appear in text. A title-line match is skipped when a contact
// with exactly the same name string has already been collected. The result
// never exceeds MaxContacts entries and is never nil.
//
// domain is a bare hostname; a leading "www." is ignored when comparing. The
// comparison is a plain case-insensitive suffix check on the email host, so
// "example.com" also accepts "notexample.com", and an empty domain accepts
// every address.
func ExtractPossibleContacts(text, domain string) []Contact {
	found := make([]Contact, 0, MaxContacts)
	if text == "" {
		return found
	}

	found = append(found, emailContacts(text, domain)...)

	for _, m := range titleLinePattern.FindAllStringSubmatch(text, MaxTitleLineContacts) {
		name := m[1]
		if hasName(found, name) {
			continue
		}
		found = append(found, Contact{
			Name:       name,
			Title:      strings.TrimSpace(m[2]),
			Confidence: TitleLineConfidence,
		})
	}

	if len(found) > MaxContacts {
		found = found[:MaxContacts]
	}
	return found
}

func emailContacts(text, domain string) []Contact {
	suffix := strings.ToLower(strings.TrimPrefix(domain, "www."))
	seen := make(map[string]struct{})
	var out []Contact
	for _, addr := range emailPattern.FindAllString(text, -1) {
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}

		local, host, _ := strings.Cut(addr, "@")
		if !strings.HasSuffix(strings.ToLower(host), suffix) {
			continue
		}
		out = append(out, Contact{
			Name:       NameFromLocalPart(local),
			Title:      emailTitle,
			Email:      addr,
			Confidence: EmailConfidence,
		})
		if len(out) == MaxEmailContacts {
			break
		}
	}
	return out
}

// NameFromLocalPart guesses a display name from an email local-part by
// collapsing dots, underscores and digits into single spaces.
func NameFromLocalPart(local string) string {
	name := strings.TrimSpace(nameSeparators.ReplaceAllString(local, " "))
	if name == "" {
		return unknownName
	}
	return name
}

func hasName(list []Contact, name string) bool {
	for _, c := range list {
		if c.Name == name {
			return true
		}
	}
	return false
}
