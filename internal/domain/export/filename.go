package export

import (
	"strings"

	"github.com/yanqian/weather-export/pkg/util"
)

// suggestedFilename embeds the query, or the generation instant for "export all", so
// repeated downloads do not collide.
func suggestedFilename(doc Document, base, ext string) string {
	var b strings.Builder
	b.WriteString(base)
	location := sanitizeFilenamePart(doc.Query.Location)
	if doc.Mode == ModeAll {
		b.WriteString("-ALL")
		if location != "" {
			b.WriteString("-" + location)
		}
		b.WriteString("-" + util.UnixMilli(doc.GeneratedAt))
	} else {
		filter := doc.Query.Filter
		switch {
		case filter.From != nil && filter.To != nil:
			b.WriteString("-" + filter.From.Format(dateLayout) + "-to-" + filter.To.Format(dateLayout))
		case filter.From != nil:
			b.WriteString("-from-" + filter.From.Format(dateLayout))
		case filter.To != nil:
			b.WriteString("-until-" + filter.To.Format(dateLayout))
		}
		if location != "" {
			b.WriteString("-" + location)
		}
	}
	b.WriteString("." + ext)
	return b.String()
}

func sanitizeFilenamePart(value string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.TrimSpace(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
