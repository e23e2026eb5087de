package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yanqian/weather-export/internal/domain/observation"
	apperrors "github.com/yanqian/weather-export/pkg/errors"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatXML      Format = "xml"
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "markdown"
)

// Formats lists every supported format in routing order.
var Formats = []Format{FormatJSON, FormatCSV, FormatXML, FormatPDF, FormatMarkdown}

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(raw string) (Format, error) {
	candidate := Format(strings.ToLower(strings.TrimSpace(raw)))
	for _, f := range Formats {
		if f == candidate {
			return f, nil
		}
	}
	return "", apperrors.Wrap("invalid_input", fmt.Sprintf("unsupported export format %q", raw), nil)
}

// Mode selects between the date-ranged export and the unfiltered "export all" export.
type Mode string

const (
	ModeRanged Mode = "ranged"
	ModeAll    Mode = "all"
)

// Profile is a named, fixed set of flattened fields.
type Profile string

const (
	ProfileFull  Profile = "full"
	ProfileBasic Profile = "basic"
)

// Options parameterize a renderer.
type Options struct {
	IncludeDateFilterNote bool
	FieldProfile          Profile
}

// OptionsFor returns the renderer options used by a mode.
func OptionsFor(mode Mode) Options {
	if mode == ModeAll {
		return Options{IncludeDateFilterNote: true, FieldProfile: ProfileFull}
	}
	return Options{FieldProfile: ProfileBasic}
}

// Request is an export request as received from the transport layer.
type Request struct {
	Format    Format
	Mode      Mode
	StartDate string
	EndDate   string
	Location  string
}

// Payload is a complete rendered export.
type Payload struct {
	Body        []byte
	ContentType string
	Filename    string
	Records     int
}

// Presentation controls how instants are shown to humans.
type Presentation struct {
	Location        *time.Location
	TimestampLayout string
}

// Local formats t in the presentation timezone and layout.
func (p Presentation) Local(t time.Time) string {
	return t.In(p.Location).Format(p.TimestampLayout)
}

// Document is everything a renderer needs to produce one payload.
type Document struct {
	Records      []observation.Observation
	Query        Query
	Mode         Mode
	Options      Options
	GeneratedAt  time.Time
	Presentation Presentation
}

// Renderer turns an ordered record sequence into one format's payload.
type Renderer interface {
	Format() Format
	Render(ctx context.Context, doc Document) (Payload, error)
}

// RecordStore is the read side of the observation store used by exports.
type RecordStore interface {
	Find(ctx context.Context, filter observation.Filter) ([]observation.Observation, error)
	Count(ctx context.Context, filter observation.Filter) (int64, error)
}

// Archive keeps a copy of delivered payloads. It is write-only.
type Archive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// Config holds presentation settings for exports.
type Config struct {
	Location        *time.Location
	TimestampLayout string
}

// DefaultTimestampLayout mirrors a en-US locale date-time string.
const DefaultTimestampLayout = "1/2/2006, 3:04:05 PM"

// Status is the diagnostic answer of the export subsystem.
type Status struct {
	Status       string `json:"status"`
	TotalRecords int64  `json:"totalRecords"`
	Message      string `json:"message"`
}

// DebugRecord shows how a stored timestamp is seen in each representation.
type DebugRecord struct {
	Location    string    `json:"location"`
	Timestamp   time.Time `json:"timestamp"`
	ISO         string    `json:"iso"`
	Local       string    `json:"local"`
	SearchQuery string    `json:"searchQuery"`
}

// DebugMatch is a record matched by the tested date range.
type DebugMatch struct {
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// DebugInfo echoes the parsed day bounds of a tested range.
type DebugInfo struct {
	InputDates  DateRange `json:"inputDates"`
	ParsedDates struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"parsedDates"`
}

// DateRange echoes the raw date inputs.
type DateRange struct {
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// DebugReport lists recent records and, when a full range is given, what it matches.
type DebugReport struct {
	DebugInfo            *DebugInfo    `json:"debugInfo,omitempty"`
	RecentRecords        []DebugRecord `json:"recentRecords"`
	MatchingRecordsCount *int          `json:"matchingRecordsCount,omitempty"`
	MatchingRecords      []DebugMatch  `json:"matchingRecords,omitempty"`
	Message              string        `json:"message,omitempty"`
}
