package downloader

import (
	"strings"

	"github.com/ligustah/paperharvest/internal/catalog"
)

// MaxNameLength is the maximum length of a sanitized name, in characters.
const MaxNameLength = 150

const reservedChars = `<>:"/\|?*`

// Sanitize makes name safe to use as a file name: every reserved character
// is replaced by '_' and the result is cut to MaxNameLength characters.
// Sanitize(Sanitize(s)) == Sanitize(s) for every s.
func Sanitize(name string) string {
	safe := strings.Map(func(r rune) rune {
		if strings.ContainsRune(reservedChars, r) {
			return '_'
		}
		return r
	}, name)

	runes := []rune(safe)
	if len(runes) > MaxNameLength {
		runes = runes[:MaxNameLength]
	}
	return string(runes)
}

// Key returns the storage key of item: <YYYY-MM>/<sanitized title>.pdf.
// Items without a usable title are named after their ID.
func Key(item catalog.Item) string {
	name := Sanitize(item.Title)
	if strings.TrimSpace(name) == "" {
		name = Sanitize(item.ID)
	}
	if strings.TrimSpace(name) == "" {
		name = "untitled"
	}
	return item.Month() + "/" + name + ".pdf"
}
