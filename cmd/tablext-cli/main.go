// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// tablext-cli extracts tables from PDF files and writes each input's
// tables to a sibling .xlsx workbook. With -batch the input is a
// directory and every .pdf file in it is processed concurrently,
// mirroring batch_process_pdfs's thread-pool fan-out with tableProcessor's
// semaphore-bounded worker pool. -text and -metadata additionally run the
// document-level plain-text Processor and the /Info+XMP metadata reader
// alongside table extraction, writing a sibling .txt / _meta.json file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	xtract "github.com/pdftables/tablext"
	"github.com/pdftables/tablext/xlsxwriter"
)

// cliRun bundles the extractors a single invocation of processOne needs,
// so adding -text/-metadata doesn't grow processOne's argument list.
type cliRun struct {
	tables    xtract.TableProcessor
	text      xtract.Processor // nil unless -text is set
	withMeta  bool
	outputDir string
}

func main() {
	var (
		input      = flag.String("input", "", "input PDF file, or a directory when -batch is set")
		output     = flag.String("output", "", "output directory for .xlsx workbooks")
		batch      = flag.Bool("batch", false, "process every .pdf file in -input concurrently")
		workers    = flag.Int("workers", 4, "number of PDFs processed concurrently in batch mode")
		mode       = flag.String("mode", "balanced", "extraction mode: fast, balanced, or accurate")
		confidence = flag.Float64("confidence", 0, "override the detector's confidence threshold (0 = mode default)")
		text       = flag.Bool("text", false, "also write <basename>.txt with the document's plain text")
		metadata   = flag.Bool("metadata", false, "also write <basename>_meta.json with document metadata")
	)
	flag.Parse()

	if *input == "" || *output == "" {
		log.Fatal("tablext-cli: -input and -output are required")
	}
	if err := os.MkdirAll(*output, 0o755); err != nil {
		log.Fatalf("tablext-cli: create output dir: %v", err)
	}

	opts := xtract.DefaultExtractOptions()
	opts.SetProcessingMode(parseMode(*mode))
	if *confidence > 0 {
		opts.ConfidenceThreshold = *confidence
	}

	tableCfg := xtract.NewDefaultTableProcessorConfig()
	tableCfg.Options = opts
	tableCfg.MaxConcurrentPDFs = *workers

	run := cliRun{
		tables:    xtract.NewTableProcessor(tableCfg),
		withMeta:  *metadata,
		outputDir: *output,
	}
	if *text {
		textCfg := xtract.NewDefaultConfig()
		textCfg.MaxConcurrentPDFs = *workers
		run.text = xtract.NewProcessor(textCfg)
	}

	ctx := context.Background()

	if !*batch {
		info, err := os.Stat(*input)
		if err != nil {
			log.Fatalf("tablext-cli: %v", err)
		}
		if info.IsDir() {
			log.Fatal("tablext-cli: -input is a directory; pass -batch")
		}
		if err := run.processOne(ctx, *input); err != nil {
			log.Fatalf("tablext-cli: %v", err)
		}
		return
	}

	info, err := os.Stat(*input)
	if err != nil || !info.IsDir() {
		log.Fatal("tablext-cli: -input must be a directory when -batch is set")
	}
	entries, err := os.ReadDir(*input)
	if err != nil {
		log.Fatalf("tablext-cli: read %s: %v", *input, err)
	}

	var pdfPaths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		pdfPaths = append(pdfPaths, filepath.Join(*input, e.Name()))
	}

	var wg sync.WaitGroup
	for _, path := range pdfPaths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			if err := run.processOne(ctx, path); err != nil {
				log.Printf("tablext-cli: %s: %v", path, err)
				return
			}
			log.Printf("tablext-cli: %s: done", path)
		}(path)
	}
	wg.Wait()
}

func parseMode(mode string) xtract.ProcessingMode {
	switch strings.ToLower(mode) {
	case "fast":
		return xtract.ModeFast
	case "accurate":
		return xtract.ModeAccurate
	default:
		return xtract.ModeBalanced
	}
}

// processOne extracts every table from one PDF and writes it to
// <output>/<basename>_tables.xlsx. A PDF with zero detected tables is
// reported, not treated as an error. When the run was configured with
// -text or -metadata, it additionally writes the sibling .txt /
// _meta.json files for that PDF.
func (run cliRun) processOne(ctx context.Context, pdfPath string) error {
	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))

	got, err := run.tables.ExtractFile(ctx, pdfPath)
	if err != nil {
		return fmt.Errorf("extract tables: %w", err)
	}
	if len(got) == 0 {
		log.Printf("tablext-cli: %s: no tables found", pdfPath)
	} else {
		outPath := filepath.Join(run.outputDir, base+"_tables.xlsx")
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		werr := xlsxwriter.Write(f, got)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return fmt.Errorf("write workbook: %w", werr)
		}
	}

	if run.text != nil {
		if err := run.writeText(ctx, pdfPath, base); err != nil {
			return err
		}
	}
	if run.withMeta {
		if err := run.writeMetadata(pdfPath, base); err != nil {
			return err
		}
	}
	return nil
}

func (run cliRun) writeText(ctx context.Context, pdfPath, base string) error {
	text, truncated, err := run.text.Extract(ctx, pdfPath)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	outPath := filepath.Join(run.outputDir, base+".txt")
	if err := os.WriteFile(outPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	if truncated {
		log.Printf("tablext-cli: %s: text output truncated at MaxTotalChars", pdfPath)
	}
	return nil
}

func (run cliRun) writeMetadata(pdfPath, base string) error {
	f, r, err := xtract.Open(pdfPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", pdfPath, err)
	}
	defer f.Close()

	outPath := filepath.Join(run.outputDir, base+"_meta.json")
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer out.Close()

	if err := r.MetadataJSON(out); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}
