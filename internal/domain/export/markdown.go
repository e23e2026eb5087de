package export

import (
	"context"
	"fmt"
	"strings"
)

const noDataMessage = "No weather data found for the selected criteria."

type markdownRenderer struct{}

func (markdownRenderer) Format() Format { return FormatMarkdown }

// Render produces the same report as the PDF renderer as Markdown.
func (markdownRenderer) Render(ctx context.Context, doc Document) (Payload, error) {
	var b strings.Builder
	b.WriteString("# Weather Data Report\n\n")
	fmt.Fprintf(&b, "**Generated on:** %s\n", doc.Presentation.Local(doc.GeneratedAt))
	fmt.Fprintf(&b, "**Total Records:** %d\n", len(doc.Records))
	if r := describeRange(doc.Query); r != "" {
		fmt.Fprintf(&b, "**Date Range:** %s\n", r)
	}
	if doc.Query.Location != "" {
		fmt.Fprintf(&b, "**Location Filter:** %s\n", doc.Query.Location)
	}
	if doc.Options.IncludeDateFilterNote {
		fmt.Fprintf(&b, "**Note:** %s\n", allRecordsNote)
	}
	b.WriteString("\n")

	if len(doc.Records) == 0 {
		b.WriteString(noDataMessage + "\n")
	}
	for i, rec := range doc.Records {
		if err := ctx.Err(); err != nil {
			return Payload{}, err
		}
		fmt.Fprintf(&b, "## %d. %s, %s\n", i+1, rec.Location.Name, rec.Location.Country)
		fmt.Fprintf(&b, "- **Temperature**: %s°C\n", formatFloat(rec.Weather.Temperature))
		fmt.Fprintf(&b, "- **Feels like**: %s°C\n", formatFloat(rec.Weather.FeelsLike))
		fmt.Fprintf(&b, "- **Humidity**: %d%%\n", rec.Weather.Humidity)
		fmt.Fprintf(&b, "- **Pressure**: %d hPa\n", rec.Weather.Pressure)
		fmt.Fprintf(&b, "- **Wind Speed**: %s m/s\n", formatFloat(rec.Weather.WindSpeed))
		fmt.Fprintf(&b, "- **Weather**: %s\n", rec.Weather.Description)
		fmt.Fprintf(&b, "- **Date**: %s\n\n", doc.Presentation.Local(rec.Timestamp))
	}
	return Payload{
		Body:        []byte(b.String()),
		ContentType: "text/markdown",
		Filename:    suggestedFilename(doc, "weather-data", "md"),
		Records:     len(doc.Records),
	}, nil
}
