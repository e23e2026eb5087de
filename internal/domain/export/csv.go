package export

import (
	"bytes"
	"context"
	"encoding/csv"
)

type csvRenderer struct{}

func (csvRenderer) Format() Format { return FormatCSV }

// Render writes a header from the active profile followed by one row per record.
func (csvRenderer) Render(ctx context.Context, doc Document) (Payload, error) {
	fields := doc.Options.FieldProfile.Fields()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return Payload{}, err
	}
	for _, rec := range doc.Records {
		if err := ctx.Err(); err != nil {
			return Payload{}, err
		}
		flat := Flatten(rec, doc.Options.FieldProfile, doc.Presentation)
		if err := w.Write(flat.Values(fields)); err != nil {
			return Payload{}, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return Payload{}, err
	}
	return Payload{
		Body:        buf.Bytes(),
		ContentType: "text/csv",
		Filename:    suggestedFilename(doc, "weather-data", "csv"),
		Records:     len(doc.Records),
	}, nil
}
