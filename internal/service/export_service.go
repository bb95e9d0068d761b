package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// exportPrefix is the object key prefix for ledger exports.
const exportPrefix = "exports/ledger/"

// ExportService snapshots the ledger to cold storage as JSONL. Events are
// never deleted from the primary store: balances fold over the full event
// log, so an export is a copy, not a migration.
type ExportService struct {
	ledger domain.LedgerStore
	writer domain.BlobWriter
	reader domain.BlobReader
	logger *slog.Logger
}

// NewExportService creates an ExportService with all required dependencies.
func NewExportService(
	ledger domain.LedgerStore,
	writer domain.BlobWriter,
	reader domain.BlobReader,
	logger *slog.Logger,
) *ExportService {
	return &ExportService{
		ledger: ledger,
		writer: writer,
		reader: reader,
		logger: logger,
	}
}

// ExportLedger serializes all events created before the cutoff to JSONL and
// uploads the file, keyed by the cutoff's year-month. It returns the object
// path and the number of exported events.
func (s *ExportService) ExportLedger(ctx context.Context, before time.Time) (string, int64, error) {
	events, err := s.ledger.ListBefore(ctx, before)
	if err != nil {
		return "", 0, fmt.Errorf("export_service: query events: %w", err)
	}
	if len(events) == 0 {
		return "", 0, nil
	}

	buf, err := marshalJSONL(events)
	if err != nil {
		return "", 0, fmt.Errorf("export_service: marshal events: %w", err)
	}

	path := exportPath(before)
	if err := s.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return "", 0, fmt.Errorf("export_service: upload %s: %w", path, err)
	}

	count := int64(len(events))
	s.logger.InfoContext(ctx, "ledger exported",
		slog.String("path", path),
		slog.Int64("events", count),
		slog.Time("before", before))
	return path, count, nil
}

// ListExports enumerates past export objects.
func (s *ExportService) ListExports(ctx context.Context) ([]domain.BlobInfo, error) {
	infos, err := s.reader.List(ctx, exportPrefix)
	if err != nil {
		return nil, fmt.Errorf("export_service: list exports: %w", err)
	}
	return infos, nil
}

// exportPath builds the object key for an export, partitioned by the
// year-month of the cutoff:
//
//	exports/ledger/2025-01.jsonl
func exportPath(before time.Time) string {
	return exportPrefix + before.Format("2006-01") + ".jsonl"
}

// marshalJSONL serializes records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
