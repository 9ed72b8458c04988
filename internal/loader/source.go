package loader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"crm-insight/internal/models"
	"crm-insight/internal/util"

	"go.uber.org/zap"
)

// Source kinds
const (
	KindSheet    = "sheet"
	KindFile     = "file"
	KindPostgres = "postgres"
)

// DefaultFetchTimeout bounds a single remote fetch
const DefaultFetchTimeout = 30 * time.Second

// Source fetches the raw tables identified by id
type Source interface {
	Kind() string
	Fetch(ctx context.Context, id string) (*models.Dataset, error)
}

// asLoadError keeps schema errors intact and wraps everything else
func asLoadError(source string, err error) error {
	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		return schemaErr
	}
	var loadErr *DataLoadError
	if errors.As(err, &loadErr) {
		return loadErr
	}
	return &DataLoadError{Source: source, Cause: err}
}

// SheetSource downloads a Google Sheets document as xlsx
type SheetSource struct {
	client  *http.Client
	baseURL string
	names   SheetNames
	logger  *zap.Logger
}

// NewSheetSource creates a sheet source; a non-positive timeout uses the default
func NewSheetSource(timeout time.Duration, names SheetNames) *SheetSource {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &SheetSource{
		client:  &http.Client{Timeout: timeout},
		baseURL: "https://docs.google.com",
		names:   names,
		logger:  util.GetLogger(),
	}
}

// WithBaseURL points the source at another host
func (s *SheetSource) WithBaseURL(baseURL string) *SheetSource {
	s.baseURL = strings.TrimRight(baseURL, "/")
	return s
}

func (s *SheetSource) Kind() string {
	return KindSheet
}

// ExportURL returns the xlsx export link of a sheet
func (s *SheetSource) ExportURL(id string) string {
	return fmt.Sprintf("%s/spreadsheets/d/%s/export?format=xlsx", s.baseURL, url.PathEscape(id))
}

// Fetch downloads and parses the workbook
func (s *SheetSource) Fetch(ctx context.Context, id string) (*models.Dataset, error) {
	ctx, span := util.StartSpan(ctx, "SheetSource.Fetch")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.ExportURL(id), nil)
	if err != nil {
		return nil, &DataLoadError{Source: id, Cause: fmt.Errorf("failed to build request: %w", err)}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &DataLoadError{Source: id, Cause: fmt.Errorf("failed to download sheet: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &DataLoadError{Source: id, Cause: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	ds, err := ParseWorkbook(resp.Body, s.names)
	if err != nil {
		s.logger.Warn("Failed to parse sheet", zap.String("source_id", id), zap.Error(err))
		return nil, asLoadError(id, err)
	}
	return ds, nil
}

// FileSource reads a workbook from the local filesystem; the id is its path
type FileSource struct {
	names SheetNames
}

// NewFileSource creates a file source
func NewFileSource(names SheetNames) *FileSource {
	return &FileSource{names: names}
}

func (s *FileSource) Kind() string {
	return KindFile
}

// Fetch opens and parses the workbook at path
func (s *FileSource) Fetch(ctx context.Context, path string) (*models.Dataset, error) {
	_, span := util.StartSpan(ctx, "FileSource.Fetch")
	defer span.End()

	f, err := os.Open(path)
	if err != nil {
		return nil, &DataLoadError{Source: path, Cause: err}
	}
	defer f.Close()

	ds, err := ParseWorkbook(f, s.names)
	if err != nil {
		return nil, asLoadError(path, err)
	}
	return ds, nil
}
