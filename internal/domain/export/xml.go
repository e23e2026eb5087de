package export

import (
	"bytes"
	"context"
	"encoding/xml"
)

var (
	xmlRoot   = xml.StartElement{Name: xml.Name{Local: "weatherData"}}
	xmlRecord = xml.StartElement{Name: xml.Name{Local: "observation"}}
)

type xmlRenderer struct{}

func (xmlRenderer) Format() Format { return FormatXML }

// Render nests every raw observation under a single weatherData root.
func (xmlRenderer) Render(ctx context.Context, doc Document) (Payload, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.EncodeToken(xmlRoot); err != nil {
		return Payload{}, err
	}
	for _, rec := range doc.Records {
		if err := ctx.Err(); err != nil {
			return Payload{}, err
		}
		if err := enc.EncodeElement(rec, xmlRecord); err != nil {
			return Payload{}, err
		}
	}
	if err := enc.EncodeToken(xmlRoot.End()); err != nil {
		return Payload{}, err
	}
	if err := enc.Flush(); err != nil {
		return Payload{}, err
	}
	return Payload{
		Body:        buf.Bytes(),
		ContentType: "application/xml",
		Filename:    suggestedFilename(doc, "weather-data", "xml"),
		Records:     len(doc.Records),
	}, nil
}
