package headers

import "strings"

// NotFound is reported for canonical fields and the sender IP when the header block has none.
const NotFound = "Not found"

// Fields holds the canonical header fields of a header block.
type Fields struct {
	From    string
	To      string
	Subject string
	Date    string
}

// ExtractFields scans raw for the canonical From, To, Subject and Date headers.
// Keys are matched case-sensitively after trimming and the last occurrence wins.
// Lines without a colon or with an empty value are skipped. Missing fields are NotFound.
func ExtractFields(raw string) Fields {
	f := Fields{From: NotFound, To: NotFound, Subject: NotFound, Date: NotFound}
	for line := range Lines(raw) {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		switch key {
		case "From":
			f.From = value
		case "To":
			f.To = value
		case "Subject":
			f.Subject = value
		case "Date":
			f.Date = value
		}
	}
	return f
}
