package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-pdf/fpdf"
)

type pdfRenderer struct{}

func (pdfRenderer) Format() Format { return FormatPDF }

// Render lays out a paginated A4 report with one numbered entry per record.
func (pdfRenderer) Render(ctx context.Context, doc Document) (Payload, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreator("weather-export", false)
	pdf.SetTitle("Weather Data Report", false)
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetModificationDate(doc.GeneratedAt)
	pdf.SetCatalogSort(true)
	pdf.AliasNbPages("")
	// core fonts are cp1252; the translator maps the degree sign.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "Weather Data Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	line := func(text string) {
		pdf.MultiCell(0, 5, tr(text), "", "L", false)
	}
	pdf.SetFont("Helvetica", "", 10)
	line("Generated on: " + doc.Presentation.Local(doc.GeneratedAt))
	line(fmt.Sprintf("Total Records: %d", len(doc.Records)))
	if r := describeRange(doc.Query); r != "" {
		line("Date Range: " + r)
	}
	if doc.Query.Location != "" {
		line("Location: " + doc.Query.Location)
	}
	if doc.Options.IncludeDateFilterNote {
		line("Note: " + allRecordsNote)
	}
	pdf.Ln(5)

	if len(doc.Records) == 0 {
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 8, noDataMessage, "", 1, "C", false, 0, "")
	}
	for i, rec := range doc.Records {
		if err := ctx.Err(); err != nil {
			pdf.Close()
			return Payload{}, err
		}
		pdf.SetFont("Helvetica", "U", 12)
		pdf.MultiCell(0, 7, tr(fmt.Sprintf("%d. %s, %s", i+1, rec.Location.Name, rec.Location.Country)), "", "L", false)
		pdf.SetFont("Helvetica", "", 10)
		line(fmt.Sprintf("   Temperature: %s°C", formatFloat(rec.Weather.Temperature)))
		line(fmt.Sprintf("   Feels like: %s°C", formatFloat(rec.Weather.FeelsLike)))
		line(fmt.Sprintf("   Humidity: %d%%", rec.Weather.Humidity))
		line("   Weather: " + rec.Weather.Description)
		line("   Date: " + doc.Presentation.Local(rec.Timestamp))
		pdf.Ln(2.5)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Payload{}, err
	}
	return Payload{
		Body:        buf.Bytes(),
		ContentType: "application/pdf",
		Filename:    suggestedFilename(doc, "weather-report", "pdf"),
		Records:     len(doc.Records),
	}, nil
}
