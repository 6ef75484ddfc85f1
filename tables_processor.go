// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package xtract

// TableProcessor is the document-level collaborator of the extraction
// pipeline: ExtractTables is single-threaded and synchronous per page, and
// the caller is responsible for introducing parallelism across pages.
// TableProcessor does that the same way processor.go's Processor does for
// plain-text extraction: a semaphore bounds concurrent documents, and a
// hand-rolled channel/WaitGroup worker pool fans out across pages, with
// results collected and re-ordered by ascending page number.

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/pdftables/tablext/logger"
	"github.com/pdftables/tablext/tables"
	"golang.org/x/sync/semaphore"
)

// TableStats is the metrics-sink payload: no global metrics state lives
// inside the core, so a caller that wants per-page duration or table
// counts supplies TableProcessorConfig.OnPageComplete and receives one of
// these per page. Duration covers the page's ExtractTables call only, not
// the PDF open or worker-scheduling overhead around it. Truncated is set
// when ExtractTables returned a partial result alongside a
// MalformedStreamError — the page's tables are real but the content
// stream's tail was cut off before the lexer finished.
type TableStats struct {
	PageNumber int
	TableCount int
	Duration   time.Duration
	Truncated  bool
}

// TableProcessorConfig configures TableProcessor, mirroring Config's shape
// for the plain-text Processor.
type TableProcessorConfig struct {
	MaxConcurrentPDFs int `validate:"min=1,max=10"`
	MaxWorkersPerPDF  int `validate:"min=1,max=10"`
	ParsingMode       ParsingMode `validate:"oneof=strict best-effort"`
	Options           ExtractOptions
	// OnPageComplete, if set, is called once per processed page with that
	// page's stats. It runs on the worker goroutine that produced the
	// page, so it must not block or mutate shared state without its own
	// synchronization.
	OnPageComplete func(TableStats)
}

// NewDefaultTableProcessorConfig returns sane defaults: up to 5 PDFs
// processed concurrently, single worker per document, best-effort
// parsing, balanced extraction options.
func NewDefaultTableProcessorConfig() TableProcessorConfig {
	return TableProcessorConfig{
		MaxConcurrentPDFs: 5,
		MaxWorkersPerPDF:  1,
		ParsingMode:       BestEffort,
		Options:           DefaultExtractOptions(),
	}
}

// TableProcessor extracts tables from a PDF file, given its path.
type TableProcessor interface {
	ExtractFile(ctx context.Context, path string) ([]tables.Table, error)
}

type tableProcessor struct {
	cfg TableProcessorConfig
	sem *semaphore.Weighted
}

// NewTableProcessor validates cfg and constructs a TableProcessor. Invalid
// config panics at construction, the same programming-error contract
// NewProcessor uses for plain-text extraction.
func NewTableProcessor(cfg TableProcessorConfig) *tableProcessor {
	if err := cfg.Options.Validate(); err != nil {
		panic(err)
	}
	if err := optionsValidator.Struct(cfg); err != nil {
		panic(err)
	}
	if cfg.MaxConcurrentPDFs < 1 || cfg.MaxConcurrentPDFs > 10 {
		panic(fmt.Errorf("MaxConcurrentPDFs out of range: %d", cfg.MaxConcurrentPDFs))
	}
	if cfg.MaxWorkersPerPDF < 1 || cfg.MaxWorkersPerPDF > 10 {
		panic(fmt.Errorf("MaxWorkersPerPDF out of range: %d", cfg.MaxWorkersPerPDF))
	}
	return &tableProcessor{
		cfg: cfg,
		sem: semaphore.NewWeighted(int64(cfg.MaxConcurrentPDFs)),
	}
}

type tablePageResult struct {
	index  int
	tables []tables.Table
	err    error
}

// ExtractFile runs ExtractTables over every page of the PDF at path and
// returns the concatenated tables in ascending page-number order.
func (p *tableProcessor) ExtractFile(ctx context.Context, path string) ([]tables.Table, error) {
	logger.Debug(fmt.Sprintf("TableProcessor: starting extraction: path=%s", path), true)

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire slot: %w", err)
	}
	defer p.sem.Release(1)

	_, r, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	total := r.NumPage()
	if total == 0 {
		return nil, nil
	}

	numWorkers := p.cfg.MaxWorkersPerPDF
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > runtime.NumCPU() {
		numWorkers = runtime.NumCPU()
	}

	jobs := make(chan int, total)
	results := make(chan tablePageResult, total)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				page := r.Page(i)
				ts, perr := p.extractPage(&page, i)
				results <- tablePageResult{index: i, tables: ts, err: perr}
			}
		}()
	}
	for i := 1; i <= total; i++ {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	buffered := make(map[int][]tables.Table, total)
	var firstErr error
	for res := range results {
		if res.err != nil {
			logger.Debug(fmt.Sprintf("TableProcessor: page %d failed: %v", res.index, res.err), true)
			if p.cfg.ParsingMode == Strict && firstErr == nil {
				firstErr = fmt.Errorf("page %d: %w", res.index, res.err)
			}
			continue
		}
		buffered[res.index] = res.tables
	}
	if firstErr != nil {
		return nil, firstErr
	}

	var out []tables.Table
	for i := 1; i <= total; i++ {
		out = append(out, buffered[i]...)
	}
	return out, nil
}

func (p *tableProcessor) extractPage(page *Page, pageNum int) ([]tables.Table, error) {
	data, err := page.ContentStreamBytes()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := ExtractTables(data, page, p.cfg.Options)
	elapsed := time.Since(start)

	for i := range result {
		result[i].PageNumber = pageNum
	}

	if p.cfg.OnPageComplete != nil {
		var malformed *MalformedStreamError
		p.cfg.OnPageComplete(TableStats{
			PageNumber: pageNum,
			TableCount: len(result),
			Duration:   elapsed,
			Truncated:  errors.As(err, &malformed),
		})
	}
	if err != nil && p.cfg.ParsingMode == Strict {
		return result, err
	}
	return result, nil
}
