package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/faxcloud/analyzer/internal/analysis"
	"github.com/faxcloud/analyzer/internal/archive"
	"github.com/faxcloud/analyzer/internal/cache"
	"github.com/faxcloud/analyzer/internal/faxlog"
	"github.com/faxcloud/analyzer/internal/repository/postgres"
)

// ErrDuplicate is returned when the same file content was already
// imported and duplicate imports are disabled.
var ErrDuplicate = errors.New("file already imported")

// Service runs the full import pipeline for one uploaded export:
// archive the original, normalize, analyze, persist, cache. It is the
// single entry point shared by the HTTP API and the inbox watcher.
type Service struct {
	repo            *postgres.ReportRepo
	archive         *archive.Archive
	importer        *faxlog.Importer
	engine          *analysis.Engine
	cache           *cache.StatsCache
	allowDuplicates bool
}

func NewService(repo *postgres.ReportRepo, arch *archive.Archive, importer *faxlog.Importer,
	engine *analysis.Engine, statsCache *cache.StatsCache, allowDuplicates bool) *Service {
	return &Service{
		repo:            repo,
		archive:         arch,
		importer:        importer,
		engine:          engine,
		cache:           statsCache,
		allowDuplicates: allowDuplicates,
	}
}

// Outcome is what one successful import produces.
type Outcome struct {
	Report postgres.Report    `json:"report"`
	RunID  string             `json:"run_id"`
	Meta   *faxlog.ImportMeta `json:"meta"`
	Result *analysis.Result   `json:"result"`
}

// ImportFile processes one export file end-to-end. Structural problems
// (unreadable table, missing columns, duplicate file) return an error
// and persist nothing; row-level problems are data inside the result.
func (s *Service) ImportFile(ctx context.Context, filename string, data []byte, tag analysis.RunContext) (*Outcome, error) {
	checksum := archive.Checksum(data)

	if !s.allowDuplicates {
		if existing, err := s.repo.FindByChecksum(ctx, checksum); err == nil {
			return nil, fmt.Errorf("%w (report %s)", ErrDuplicate, existing.ID)
		} else if !errors.Is(err, postgres.ErrNotFound) {
			return nil, err
		}
	}

	table, err := faxlog.ReadTable(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	records, meta, err := s.importer.Normalize(table)
	if err != nil {
		return nil, err
	}
	result := s.engine.Analyze(records, tag)

	report := postgres.Report{
		ID:          uuid.New().String(),
		Filename:    filename,
		Checksum:    checksum,
		PublicToken: uuid.New().String(),
	}
	if err := s.repo.Create(ctx, &report); err != nil {
		return nil, err
	}

	if path, err := s.archive.SaveOriginal(ctx, report.ID, filename, data); err != nil {
		log.Printf("[reports] archive original for %s: %v", report.ID, err)
	} else {
		report.OriginalPath = path
		if err := s.repo.SetOriginalPath(ctx, report.ID, path); err != nil {
			log.Printf("[reports] set original path for %s: %v", report.ID, err)
		}
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	now := time.Now().UTC()
	run := postgres.Run{
		ID:          uuid.New().String(),
		ReportID:    report.ID,
		Status:      "completed",
		StatsJSON:   string(resultJSON),
		StartedAt:   now,
		CompletedAt: now,
	}
	if err := s.repo.CreateRun(ctx, &run); err != nil {
		return nil, err
	}
	report.LatestRunID = run.ID

	if err := s.repo.InsertTransmissions(ctx, run.ID, result.Records); err != nil {
		return nil, err
	}

	s.cache.SetResult(ctx, run.ID, result)

	log.Printf("[reports] imported %s: report=%s run=%s rows=%d errors=%d",
		filename, report.ID, run.ID, result.Statistics.Total, result.Statistics.Errors)
	return &Outcome{Report: report, RunID: run.ID, Meta: meta, Result: result}, nil
}

// ResultForRun returns the stored analysis result for a run, served
// from cache when possible.
func (s *Service) ResultForRun(ctx context.Context, runID string) (*analysis.Result, error) {
	if result, ok := s.cache.GetResult(ctx, runID); ok {
		return result, nil
	}

	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	var result analysis.Result
	if err := json.Unmarshal([]byte(run.StatsJSON), &result); err != nil {
		return nil, fmt.Errorf("decode stored result: %w", err)
	}
	s.cache.SetResult(ctx, runID, &result)
	return &result, nil
}

// Repo exposes the underlying repository for read-only handlers.
func (s *Service) Repo() *postgres.ReportRepo { return s.repo }
