package export

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/yanqian/weather-export/internal/domain/observation"
)

const allRecordsNote = "All records exported without date filtering"

type jsonRenderer struct{}

type jsonEnvelope struct {
	Metadata jsonMetadata              `json:"metadata"`
	Data     []observation.Observation `json:"data"`
}

type jsonMetadata struct {
	ExportedAt     string     `json:"exportedAt"`
	TotalRecords   int        `json:"totalRecords"`
	DateRange      *DateRange `json:"dateRange,omitempty"`
	LocationFilter string     `json:"locationFilter"`
	Note           string     `json:"note,omitempty"`
}

func (jsonRenderer) Format() Format { return FormatJSON }

// Render emits the raw observations under a metadata header. With IncludeDateFilterNote the
// header carries a note instead of echoing the date range.
func (jsonRenderer) Render(ctx context.Context, doc Document) (Payload, error) {
	if err := ctx.Err(); err != nil {
		return Payload{}, err
	}
	meta := jsonMetadata{
		ExportedAt:     doc.GeneratedAt.UTC().Format(isoMillis),
		TotalRecords:   len(doc.Records),
		LocationFilter: locationLabel(doc.Query.Location),
	}
	if doc.Options.IncludeDateFilterNote {
		meta.Note = allRecordsNote
	} else {
		meta.DateRange = &DateRange{StartDate: doc.Query.StartDate, EndDate: doc.Query.EndDate}
	}
	data := doc.Records
	if data == nil {
		data = []observation.Observation{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonEnvelope{Metadata: meta, Data: data}); err != nil {
		return Payload{}, err
	}
	body := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	if err := ctx.Err(); err != nil {
		return Payload{}, err
	}
	return Payload{
		Body:        body,
		ContentType: "application/json",
		Filename:    suggestedFilename(doc, "weather-data", "json"),
		Records:     len(doc.Records),
	}, nil
}

func locationLabel(location string) string {
	if location == "" {
		return "all"
	}
	return location
}
