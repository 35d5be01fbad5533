package birthday

import (
	"strconv"
	"strings"
)

const (
	// MaxMessageLen caps configurable announcement templates.
	MaxMessageLen = 750
	// MinYear is the earliest birth year a member may register.
	MinYear = 1900
)

// FormatMessage substitutes the announcement placeholders {mention},
// {name} and {new_age} into the given template. When newAge is nil the
// {new_age} placeholder is left untouched; templates for year-unknown
// members shouldn't contain it.
func FormatMessage(template string, mention string, name string, newAge *int) string {
	message := strings.ReplaceAll(template, "{mention}", mention)
	message = strings.ReplaceAll(message, "{name}", name)
	if newAge != nil {
		message = strings.ReplaceAll(message, "{new_age}", strconv.Itoa(*newAge))
	}
	return message
}
