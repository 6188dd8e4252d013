package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"salesreport/internal/config"
	"salesreport/internal/dataprocessing"
	"salesreport/internal/exporter"
	"salesreport/internal/infrastructure"
	"salesreport/internal/validation"
)

// Stage names, used for span names and log fields.
const (
	StageLoad      = "load"
	StageClean     = "clean"
	StageAggregate = "aggregate"
	StageExport    = "export"
)

// Result summarizes a completed run.
type Result struct {
	RunID       string
	OutputPath  string
	Sheets      []string
	CSVFiles    []string
	RowsLoaded  int
	RowsKept    int
	RowsDropped int
	Duration    time.Duration
}

// Pipeline runs Load, Clean, Aggregate and Export once per Run.
type Pipeline struct {
	cfg     *config.Config
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *infrastructure.RunMetrics
	now     func() time.Time

	validator  *validation.FileValidator
	loader     *dataprocessing.Loader
	cleaner    *dataprocessing.Cleaner
	aggregator *dataprocessing.Aggregator
	exporter   *exporter.Exporter
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithTracer sets the tracer used for stage spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pipeline) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// WithMetrics sets the run metrics to populate.
func WithMetrics(m *infrastructure.RunMetrics) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithClock overrides the clock used for the report date and duration.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New builds a pipeline for cfg. A nil logger falls back to slog.Default.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		cfg:     cfg,
		logger:  logger,
		tracer:  noop.NewTracerProvider().Tracer(infrastructure.TracerName),
		metrics: infrastructure.NewRunMetrics(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.validator = validation.NewFileValidator(infrastructure.WithComponent(logger, "validation"))
	p.loader = dataprocessing.NewLoader(infrastructure.WithComponent(logger, "loader"))
	p.cleaner = dataprocessing.NewCleaner(infrastructure.WithComponent(logger, "cleaner"), cfg.Cleaning)
	p.aggregator = dataprocessing.NewAggregator(infrastructure.WithComponent(logger, "aggregator"), cfg.Cleaning)
	p.exporter = exporter.NewExporter(infrastructure.WithComponent(logger, "exporter"), exporter.Options{
		ExportCSV: cfg.Output.ExportCSV,
	})
	return p
}

// Metrics returns the metrics populated by Run.
func (p *Pipeline) Metrics() *infrastructure.RunMetrics {
	return p.metrics
}

// Run executes the pipeline. Any error aborts the run before the workbook is
// written, so a failed run leaves no report behind.
func (p *Pipeline) Run(ctx context.Context) (res *Result, err error) {
	ctx = infrastructure.EnsureRunID(ctx)
	runID := infrastructure.GetRunID(ctx)
	start := p.now()
	res = &Result{RunID: runID}

	ctx, span := p.tracer.Start(ctx, "pipeline",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("input.path", p.cfg.Input.SalesDataFile),
			attribute.String("output.dir", p.cfg.Output.ReportDir),
		),
	)
	defer func() {
		res.Duration = p.now().Sub(start)
		p.finish(ctx, res, err)
		infrastructure.EndSpan(span, err)
		if err != nil {
			res = nil
		}
	}()

	p.logger.InfoContext(ctx, "Starting sales report run",
		slog.String("input", p.cfg.Input.SalesDataFile),
		slog.String("output_dir", p.cfg.Output.ReportDir),
		slog.Int("reports", len(p.cfg.Reports)))

	if err = p.validator.ValidateOutputDirectory(ctx, p.cfg.Output.ReportDir); err != nil {
		return res, err
	}

	var raw *dataprocessing.Table
	err = p.stage(ctx, StageLoad, func(ctx context.Context, span trace.Span) error {
		var err error
		raw, err = p.loader.Load(ctx, p.cfg.Input.SalesDataFile)
		if err == nil {
			span.SetAttributes(attribute.Int("rows", raw.Len()))
		}
		return err
	})
	if err != nil {
		return res, err
	}
	res.RowsLoaded = raw.Len()
	p.metrics.RowsLoaded.Set(float64(raw.Len()))

	var (
		cleaned *dataprocessing.Table
		stats   dataprocessing.CleanStats
	)
	err = p.stage(ctx, StageClean, func(ctx context.Context, span trace.Span) error {
		var err error
		cleaned, stats, err = p.cleaner.Clean(ctx, raw)
		if err == nil {
			span.SetAttributes(
				attribute.Int("rows.kept", stats.OutputRows),
				attribute.Int("rows.dropped", stats.DroppedTotal()),
			)
		}
		return err
	})
	if err != nil {
		return res, err
	}
	res.RowsKept = cleaned.Len()
	res.RowsDropped = stats.DroppedTotal()
	p.recordCleaning(stats)

	var reports []dataprocessing.Report
	err = p.stage(ctx, StageAggregate, func(ctx context.Context, span trace.Span) error {
		var err error
		reports, err = p.aggregator.Build(ctx, cleaned, p.cfg.Reports)
		if err == nil {
			span.SetAttributes(attribute.Int("reports", len(reports)))
		}
		return err
	})
	if err != nil {
		return res, err
	}

	fileName := exporter.FileName(p.cfg.Output.FilePrefix, p.cfg.ReportTime(start))
	var out *exporter.Output
	err = p.stage(ctx, StageExport, func(ctx context.Context, span trace.Span) error {
		var err error
		out, err = p.exporter.Export(ctx, p.cfg.Output.ReportDir, fileName, reports)
		if err == nil {
			span.SetAttributes(
				attribute.String("output.path", out.Path),
				attribute.Int("sheets", len(out.Sheets)),
			)
		}
		return err
	})
	if err != nil {
		return res, err
	}

	res.OutputPath = out.Path
	res.Sheets = out.Sheets
	res.CSVFiles = out.CSVFiles
	p.metrics.SheetsWritten.Set(float64(len(out.Sheets)))
	return res, nil
}

// stage runs fn inside a span after checking for cancellation.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context, trace.Span) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled before %s: %w", name, err)
	}

	ctx, span := p.tracer.Start(ctx, "pipeline."+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("stage", name)),
	)
	start := time.Now()
	p.logger.DebugContext(ctx, "Stage started", slog.String("stage", name))

	err := fn(ctx, span)
	infrastructure.EndSpan(span, err)
	if err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "Stage completed",
		slog.String("stage", name),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (p *Pipeline) recordCleaning(stats dataprocessing.CleanStats) {
	p.metrics.RowsKept.Set(float64(stats.OutputRows))
	for _, reason := range []string{
		dataprocessing.DropMissingRequired,
		dataprocessing.DropInvalidDate,
		dataprocessing.DropInvalidNumber,
	} {
		p.metrics.RowsDropped.WithLabelValues(reason).Set(float64(stats.Dropped[reason]))
	}
	for _, kind := range []string{dataprocessing.FillNumeric, dataprocessing.FillCategorical} {
		p.metrics.CellsFilled.WithLabelValues(kind).Set(float64(stats.Filled[kind]))
	}
}

// finish stamps the run outcome and writes the metrics textfile. A textfile
// failure is logged but never fails the run.
func (p *Pipeline) finish(ctx context.Context, res *Result, err error) {
	p.metrics.Finish(p.now(), res.Duration, err)
	if werr := p.metrics.WriteTextfile(p.cfg.Metrics.TextfilePath); werr != nil {
		p.logger.WarnContext(ctx, "Failed to write metrics textfile",
			slog.String("path", p.cfg.Metrics.TextfilePath),
			slog.String("error", werr.Error()))
	}

	if err != nil {
		return
	}
	p.logger.InfoContext(ctx, "Sales report run completed",
		slog.String("output", res.OutputPath),
		slog.Int("rows_loaded", res.RowsLoaded),
		slog.Int("rows_kept", res.RowsKept),
		slog.Int("rows_dropped", res.RowsDropped),
		slog.Any("sheets", res.Sheets),
		slog.Duration("duration", res.Duration))
}
