package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yanqian/weather-export/internal/domain/observation"
	apperrors "github.com/yanqian/weather-export/pkg/errors"
	"github.com/yanqian/weather-export/pkg/util"
)

const debugRecentLimit = 10

// Service runs the query-and-render export pipeline.
type Service interface {
	Export(ctx context.Context, req Request) (Payload, error)
	Status(ctx context.Context) (Status, error)
	DebugDates(ctx context.Context, startDate, endDate string) (DebugReport, error)
}

type service struct {
	cfg       Config
	store     RecordStore
	archive   Archive
	renderers map[Format]Renderer
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the export pipeline. archive may be nil.
func NewService(cfg Config, store RecordStore, archive Archive, logger *slog.Logger) Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.TimestampLayout == "" {
		cfg.TimestampLayout = DefaultTimestampLayout
	}
	return &service{
		cfg:       cfg,
		store:     store,
		archive:   archive,
		renderers: Renderers(),
		logger:    logger.With("component", "export.service"),
		now:       util.NowUTC,
	}
}

// Renderers returns one renderer per supported format.
func Renderers() map[Format]Renderer {
	out := make(map[Format]Renderer, len(Formats))
	for _, r := range []Renderer{jsonRenderer{}, csvRenderer{}, xmlRenderer{}, pdfRenderer{}, markdownRenderer{}} {
		out[r.Format()] = r
	}
	return out
}

func (s *service) Export(ctx context.Context, req Request) (Payload, error) {
	format, err := ParseFormat(string(req.Format))
	if err != nil {
		return Payload{}, err
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return Payload{}, apperrors.Wrap("invalid_input", fmt.Sprintf("unsupported export format %q", req.Format), nil)
	}
	req.Format = format
	mode := req.Mode
	if mode != ModeAll {
		mode = ModeRanged
	}
	startDate, endDate := req.StartDate, req.EndDate
	if mode == ModeAll {
		startDate, endDate = "", ""
	}

	query, err := BuildQuery(startDate, endDate, req.Location, s.cfg.Location)
	if err != nil {
		s.logger.Warn("export request rejected", "format", req.Format, "mode", mode, "error", err)
		return Payload{}, err
	}
	s.logger.Info("export query built",
		"format", req.Format,
		"mode", mode,
		"startDate", query.StartDate,
		"endDate", query.EndDate,
		"location", query.Location,
	)

	records, err := s.store.Find(ctx, query.Filter)
	if err != nil {
		return Payload{}, s.storeError(ctx, "export query", err)
	}
	s.logger.Info("export records fetched", "format", req.Format, "mode", mode, "records", len(records))

	doc := Document{
		Records: records,
		Query:   query,
		Mode:    mode,
		Options: OptionsFor(mode),
		// exported instants carry millisecond precision.
		GeneratedAt:  s.now().Truncate(time.Millisecond),
		Presentation: Presentation{Location: s.cfg.Location, TimestampLayout: s.cfg.TimestampLayout},
	}
	payload, err := renderer.Render(ctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			s.logger.Info("export abandoned", "format", req.Format, "error", ctx.Err())
			return Payload{}, apperrors.Wrap("canceled", "export canceled", ctx.Err())
		}
		s.logger.Error("export render failed", "format", req.Format, "records", len(records), "error", err)
		return Payload{}, apperrors.Wrap("render_failure", fmt.Sprintf("failed to render %s export", req.Format), err)
	}
	s.logger.Info("export rendered",
		"format", req.Format,
		"filename", payload.Filename,
		"records", payload.Records,
		"bytes", len(payload.Body),
	)

	s.archivePayload(ctx, doc.GeneratedAt, payload)
	return payload, nil
}

func (s *service) archivePayload(ctx context.Context, at time.Time, payload Payload) {
	if s.archive == nil {
		return
	}
	key := ArchiveKey(at, payload.Filename)
	if err := s.archive.Put(ctx, key, payload.Body, payload.ContentType); err != nil {
		s.logger.Warn("export archive failed", "key", key, "error", err)
		return
	}
	s.logger.Debug("export archived", "key", key)
}

// ArchiveKey places a payload under a day-partitioned prefix.
func ArchiveKey(at time.Time, filename string) string {
	at = at.UTC()
	return fmt.Sprintf("exports/%04d/%02d/%02d/%d-%s", at.Year(), int(at.Month()), at.Day(), at.UnixMilli(), filename)
}

func (s *service) Status(ctx context.Context) (Status, error) {
	total, err := s.store.Count(ctx, observation.Filter{})
	if err != nil {
		return Status{}, s.storeError(ctx, "export status", err)
	}
	return Status{
		Status:       "Export routes working",
		TotalRecords: total,
		Message:      "Export functionality is ready",
	}, nil
}

func (s *service) DebugDates(ctx context.Context, startDate, endDate string) (DebugReport, error) {
	recent, err := s.store.Find(ctx, observation.Filter{Limit: debugRecentLimit})
	if err != nil {
		return DebugReport{}, s.storeError(ctx, "debug dates", err)
	}
	pres := Presentation{Location: s.cfg.Location, TimestampLayout: s.cfg.TimestampLayout}
	report := DebugReport{RecentRecords: make([]DebugRecord, 0, len(recent))}
	for _, rec := range recent {
		report.RecentRecords = append(report.RecentRecords, DebugRecord{
			Location:    rec.Location.Name,
			Timestamp:   rec.Timestamp,
			ISO:         rec.Timestamp.UTC().Format(isoMillis),
			Local:       pres.Local(rec.Timestamp),
			SearchQuery: rec.SearchQuery,
		})
	}

	if startDate == "" || endDate == "" {
		report.Message = "Provide startDate and endDate to test query"
		return report, nil
	}
	query, err := BuildQuery(startDate, endDate, "", s.cfg.Location)
	if err != nil {
		return DebugReport{}, err
	}
	matching, err := s.store.Find(ctx, query.Filter)
	if err != nil {
		return DebugReport{}, s.storeError(ctx, "debug dates", err)
	}
	info := &DebugInfo{InputDates: DateRange{StartDate: query.StartDate, EndDate: query.EndDate}}
	info.ParsedDates.Start = query.Filter.From.UTC().Format(isoMillis)
	info.ParsedDates.End = query.Filter.To.UTC().Format(isoMillis)
	count := len(matching)
	report.DebugInfo = info
	report.MatchingRecordsCount = &count
	report.MatchingRecords = make([]DebugMatch, 0, count)
	for _, rec := range matching {
		report.MatchingRecords = append(report.MatchingRecords, DebugMatch{Location: rec.Location.Name, Timestamp: rec.Timestamp})
	}
	return report, nil
}

func (s *service) storeError(ctx context.Context, stage string, err error) error {
	switch {
	case ctx.Err() != nil:
		s.logger.Info(stage+" abandoned", "error", ctx.Err())
		return apperrors.Wrap("canceled", "export canceled", ctx.Err())
	case errors.Is(err, observation.ErrQueryTimeout):
		s.logger.Warn(stage+" timed out", "error", err)
		return apperrors.Wrap("query_timeout", "the record store did not answer in time, retry later", err)
	default:
		s.logger.Error(stage+" failed", "error", err)
		return apperrors.Wrap("store_unavailable", "export data is temporarily unavailable", err)
	}
}
