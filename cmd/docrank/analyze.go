package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dgallion1/docrank/internal/config"
	"github.com/dgallion1/docrank/internal/document"
	"github.com/dgallion1/docrank/internal/parser"
	"github.com/dgallion1/docrank/internal/pipeline"
)

type analyzeOptions struct {
	inputDir    string
	outputDir   string
	outFile     string
	queryPath   string
	persona     string
	job         string
	profile     string
	concurrency int
	pdftotext   bool
	logLevel    string
	quiet       bool
}

var analyzeOpts analyzeOptions

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Rank the sections of every document in a folder",
	Long: `Analyze discovers supported documents in the input folder, reads the query
(a JSON file with "persona" and "job_to_be_done", or the --persona/--job flags),
and writes the ranked sections and sub-sections as JSON to the output folder.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd, analyzeOpts)
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeOpts.inputDir, "input", "i", "input", "Folder containing the documents to analyze")
	f.StringVarP(&analyzeOpts.outputDir, "output", "o", "output", "Folder the result is written to")
	f.StringVar(&analyzeOpts.outFile, "out-file", "analysis_output.json", "Name of the result file")
	f.StringVarP(&analyzeOpts.queryPath, "query", "q", "", "Query JSON file (default: the single .json file in the input folder)")
	f.StringVar(&analyzeOpts.persona, "persona", "", "Persona text, overrides the query file")
	f.StringVar(&analyzeOpts.job, "job", "", "Job to be done, overrides the query file")

	defaultProfile := config.PresetLite
	if env := os.Getenv("DOCRANK_PROFILE"); env != "" {
		defaultProfile = env
	}
	f.StringVarP(&analyzeOpts.profile, "profile", "p", defaultProfile, "Ranking profile: lite, full, or a YAML file")
	f.IntVar(&analyzeOpts.concurrency, "concurrency", 4, "Documents analyzed in parallel")
	f.BoolVar(&analyzeOpts.pdftotext, "pdftotext", true, "Fall back to the pdftotext binary for unreadable PDFs")

	defaultLevel := "warn"
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		defaultLevel = env
	}
	f.StringVar(&analyzeOpts.logLevel, "log-level", defaultLevel, "Log level (debug, info, warn, error)")
	f.BoolVar(&analyzeOpts.quiet, "quiet", false, "Suppress the progress bar and the summary report")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, opts analyzeOptions) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	level, err := config.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	profile, err := config.LoadProfile(opts.profile)
	if err != nil {
		return err
	}

	qf, err := loadQuery(opts)
	if err != nil {
		return err
	}
	q := qf.Query()
	if opts.persona != "" {
		q.Persona = strings.TrimSpace(opts.persona)
	}
	if opts.job != "" {
		q.Job = strings.TrimSpace(opts.job)
	}
	if q.Empty() {
		log.Warn("empty persona and job, every section will score on structure alone")
	}

	paths, missing, err := discoverInputs(opts.inputDir, qf.Filenames())
	if err != nil {
		return err
	}
	for _, name := range missing {
		log.Warn("query document not found in input folder", "document", name)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no supported documents in %s", opts.inputDir)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	docs, skipped := parseInputs(ctx, paths, parser.Options{PDFFallbackPdftotext: opts.pdftotext, Log: log}, log, opts.quiet)

	analyzer, err := pipeline.NewAnalyzer(profile, opts.concurrency, log)
	if err != nil {
		return err
	}
	analysis, err := analyzer.Analyze(ctx, docs, q)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	analysis.Skipped = append(skipped, analysis.Skipped...)

	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	out := pipeline.NewOutput(uuid.NewString(), names, q, analysis, time.Now())

	outPath := filepath.Join(opts.outputDir, opts.outFile)
	if err := writeOutput(outPath, out); err != nil {
		return err
	}
	if !opts.quiet {
		renderReport(cmd.OutOrStdout(), out, analysis, outPath)
	}
	return nil
}

// loadQuery reads the query file named by --query, or the single query file
// in the input folder. With --persona and --job both set no file is needed.
func loadQuery(opts analyzeOptions) (pipeline.QueryFile, error) {
	path := opts.queryPath
	if path == "" {
		found, err := findQueryFile(opts.inputDir)
		if err != nil {
			if opts.persona != "" && opts.job != "" {
				return pipeline.QueryFile{}, nil
			}
			return pipeline.QueryFile{}, err
		}
		path = found
	}
	f, err := os.Open(path)
	if err != nil {
		return pipeline.QueryFile{}, fmt.Errorf("open query: %w", err)
	}
	defer f.Close()
	return pipeline.ReadQueryFile(f)
}

func findQueryFile(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no query file in %s (pass --query or --persona and --job)", dir)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("found %d query files in %s, pass --query", len(matches), dir)
}

// discoverInputs lists supported documents in dir, sorted by name. When
// named is non-empty only those files are returned, in that order, and the
// names that do not exist are reported as missing.
func discoverInputs(dir string, named []string) (paths, missing []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read input folder: %w", err)
	}
	present := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() || !parser.IsSupportedExtension(e.Name()) {
			continue
		}
		present[e.Name()] = true
	}

	if len(named) == 0 {
		for name := range present {
			paths = append(paths, filepath.Join(dir, name))
		}
		sort.Strings(paths)
		return paths, nil, nil
	}
	for _, name := range named {
		if present[name] {
			paths = append(paths, filepath.Join(dir, name))
		} else {
			missing = append(missing, name)
		}
	}
	return paths, missing, nil
}

func parseInputs(ctx context.Context, paths []string, opts parser.Options, log *slog.Logger, quiet bool) ([]*document.Document, []string) {
	var bar *progressbar.ProgressBar
	if !quiet {
		bar = getProgressBar(len(paths), "Parsing documents")
	}
	var docs []*document.Document
	var skipped []string
	for _, path := range paths {
		if ctx.Err() != nil {
			skipped = append(skipped, filepath.Base(path))
			continue
		}
		doc, err := parser.ParseFile(path, opts)
		if err != nil {
			log.Warn("document skipped", "document", filepath.Base(path), "error", err)
			skipped = append(skipped, filepath.Base(path))
		} else {
			docs = append(docs, doc)
		}
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	return docs, skipped
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func writeOutput(path string, out pipeline.Output) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := out.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
