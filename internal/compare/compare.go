// Package compare decides whether two exported documents carry the same content.
//
// The tablet stamps every export with a fresh PDF creation date, so two
// downloads of an untouched notebook never match byte for byte. Normalize
// removes that stamp before comparison.
package compare

import (
	"regexp"
	"strings"
)

var creationDate = regexp.MustCompile(`CreationDate\(D:\d+Z\)`)

// Normalize decodes content as UTF-8, dropping undecodable bytes, and removes
// the first CreationDate marker. Later markers are left in place.
func Normalize(content []byte) string {
	text := strings.ToValidUTF8(string(content), "")

	loc := creationDate.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[:loc[0]] + text[loc[1]:]
}

// Unchanged reports whether newContent and oldContent are equal once both are
// normalized.
func Unchanged(newContent, oldContent []byte) bool {
	return Normalize(newContent) == Normalize(oldContent)
}
