// Package pipeline runs the RFM segmentation end to end:
// load records, aggregate metrics, score, segment, select campaign targets,
// and write the target lists and report artifacts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"customer-rfm-lab/internal/campaign"
	"customer-rfm-lab/internal/domain"
	"customer-rfm-lab/internal/export"
	"customer-rfm-lab/internal/idhash"
	"customer-rfm-lab/internal/metrics"
	"customer-rfm-lab/internal/observability"
	"customer-rfm-lab/internal/reporting"
	"customer-rfm-lab/internal/scoring"
	"customer-rfm-lab/internal/segment"
	"customer-rfm-lab/internal/storage"
)

// GeneratorVersion identifies the report format.
const GeneratorVersion = "1.0.0"

// Default artifact names.
const (
	DefaultReportFile = "RFM_REPORT.md"
	DefaultScoresFile = "rfm_scores.csv"
)

// Pipeline stage names used in logs and metrics.
const (
	StageLoad      = "load"
	StageAggregate = "aggregate"
	StageScore     = "score"
	StageSegment   = "segment"
	StageCampaign  = "campaign"
	StageWrite     = "write"
)

// ErrNoReferenceDate is returned when Run is called without a reference date.
var ErrNoReferenceDate = errors.New("reference date not set")

// Sink stores one artifact at a destination.
type Sink interface {
	Write(ctx context.Context, dest string, data []byte, contentType string) error
}

// Result describes a finished run.
type Result struct {
	RunID         string
	ReferenceDate time.Time
	Records       int
	Customers     int
	Segmented     []*domain.SegmentedCustomer // sorted by CustomerID
	Targets       []campaign.Target
	Report        *reporting.Report
	Artifacts     []string // destinations written, in write order
}

// Pipeline orchestrates one segmentation run.
type Pipeline struct {
	source      storage.CustomerOrderSource
	sink        Sink
	reportGen   *reporting.Generator
	metrics     *observability.Metrics
	log         logrus.FieldLogger
	campaigns   []campaign.Campaign
	reference   time.Time
	outputDir   string
	reportFile  string
	scoresFile  string
	metricsFile string // empty = no textfile export
	clock       func() time.Time
	newRunID    func() string
	dataSource  string // source kind for reproducibility metadata
	replayCmd   string
}

// NewPipeline creates a pipeline reading from source with the given reference date.
// Artifacts go to outputDir, a local directory or an s3:// prefix.
func NewPipeline(source storage.CustomerOrderSource, reference time.Time, outputDir string) *Pipeline {
	return &Pipeline{
		source:     source,
		sink:       export.NewWriter(""),
		reportGen:  reporting.NewGenerator(),
		metrics:    observability.NewMetrics(""),
		log:        logrus.StandardLogger(),
		campaigns:  campaign.DefaultCampaigns(),
		reference:  reference,
		outputDir:  outputDir,
		reportFile: DefaultReportFile,
		scoresFile: DefaultScoresFile,
		clock:      func() time.Time { return time.Now().UTC() },
		newRunID:   func() string { return uuid.NewString() },
	}
}

// WithClock sets a custom clock function for deterministic output.
// The clock only stamps the report; it never decides the reference date.
func (p *Pipeline) WithClock(clock func() time.Time) *Pipeline {
	p.clock = clock
	p.reportGen = p.reportGen.WithClock(clock)
	return p
}

// WithRunID sets a custom run id generator.
func (p *Pipeline) WithRunID(newRunID func() string) *Pipeline {
	p.newRunID = newRunID
	return p
}

// WithSink sets where artifacts are written.
func (p *Pipeline) WithSink(sink Sink) *Pipeline {
	p.sink = sink
	return p
}

// WithCampaigns replaces the default campaigns.
func (p *Pipeline) WithCampaigns(campaigns []campaign.Campaign) *Pipeline {
	p.campaigns = campaigns
	return p
}

// WithArtifactNames sets the report and scores file names.
func (p *Pipeline) WithArtifactNames(reportFile, scoresFile string) *Pipeline {
	p.reportFile = reportFile
	p.scoresFile = scoresFile
	return p
}

// WithMetrics sets the metrics instance and, when path is not empty,
// the node-exporter textfile written at the end of every run.
func (p *Pipeline) WithMetrics(m *observability.Metrics, path string) *Pipeline {
	p.metrics = m
	p.metricsFile = path
	return p
}

// WithLogger sets the logger.
func (p *Pipeline) WithLogger(log logrus.FieldLogger) *Pipeline {
	p.log = log
	return p
}

// WithDataSource records the source kind and the command that reproduces the run.
func (p *Pipeline) WithDataSource(source, replayCommand string) *Pipeline {
	p.dataSource = source
	p.replayCmd = replayCommand
	return p
}

// Run executes the full pipeline and writes:
// - one CSV per campaign (header master_id)
// - rfm_scores.csv
// - RFM_REPORT.md
// Nothing is written unless every computation stage succeeds.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := p.newRunID()
	log := p.log.WithField("run_id", runID)

	result, err := p.run(ctx, runID, log)

	status := observability.StatusSuccess
	if err != nil {
		status = observability.StatusFailure
		log.WithError(err).Error("segmentation run failed")
	}
	p.metrics.RecordPipelineRun(status, p.clock())
	if p.metricsFile != "" {
		if werr := p.metrics.WriteTextfile(p.metricsFile); werr != nil {
			log.WithError(werr).WithField("path", p.metricsFile).Warn("failed to write metrics textfile")
		}
	}
	return result, err
}

func (p *Pipeline) run(ctx context.Context, runID string, log logrus.FieldLogger) (*Result, error) {
	if p.reference.IsZero() {
		return nil, ErrNoReferenceDate
	}
	if err := campaign.CheckOutputs(p.campaigns, p.reportFile, p.scoresFile); err != nil {
		return nil, err
	}
	log = log.WithField("reference_date", p.reference.Format("2006-01-02"))

	// 1. Load
	start := time.Now()
	records, err := p.source.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	p.stageDone(log, StageLoad, start, logrus.Fields{"records": len(records)})
	p.metrics.RecordsLoaded.WithLabelValues(p.sourceLabel()).Add(float64(len(records)))

	// 2. Sufficiency
	sufficiency := CheckSufficiency(records)
	if !sufficiency.Scorable() {
		return nil, &domain.InsufficientDataError{Customers: sufficiency.Customers, Required: scoring.MinCustomers}
	}
	if !sufficiency.AllPass {
		log.WithField("errors", len(sufficiency.Errors)).Warn("data quality checks failed, continuing")
	}

	// 3. Aggregate
	start = time.Now()
	customerMetrics, err := metrics.Aggregate(records, p.reference)
	if err != nil {
		return nil, err
	}
	p.stageDone(log, StageAggregate, start, logrus.Fields{"customers": len(customerMetrics)})

	// 4. Score
	start = time.Now()
	scored, err := scoring.Score(customerMetrics)
	if err != nil {
		return nil, err
	}
	p.stageDone(log, StageScore, start, nil)
	p.metrics.CustomersScored.Set(float64(len(scored)))

	// 5. Segment
	start = time.Now()
	segmented, err := segment.Assign(scored)
	if err != nil {
		return nil, err
	}
	p.stageDone(log, StageSegment, start, nil)

	// 6. Campaigns
	start = time.Now()
	targets, err := campaign.Run(p.campaigns, records, segment.Index(segmented))
	if err != nil {
		return nil, err
	}
	campaignFields := logrus.Fields{}
	for _, t := range targets {
		campaignFields[t.Campaign.Name] = len(t.CustomerIDs)
	}
	p.stageDone(log, StageCampaign, start, campaignFields)

	// 7. Report
	report := p.reportGen.Generate(reporting.Input{
		Records:       records,
		Segmented:     segmented,
		Targets:       targets,
		ReferenceDate: p.reference,
	})
	report.DataQuality = convertToDataQuality(sufficiency)
	report.Reproducibility = reporting.ReproducibilityMetadata{
		RunID:            runID,
		ReportTimestamp:  p.clock(),
		GeneratorVersion: GeneratorVersion,
		DataVersion:      idhash.ComputeDataVersion(records),
		Source:           p.sourceLabel(),
		ReplayCommand:    p.replayCmd,
	}
	p.recordSegmentation(report)

	// 8. Write
	start = time.Now()
	artifacts, err := p.writeArtifacts(ctx, targets, segmented, report)
	if err != nil {
		return nil, err
	}
	p.stageDone(log, StageWrite, start, logrus.Fields{"artifacts": len(artifacts)})

	return &Result{
		RunID:         runID,
		ReferenceDate: p.reference,
		Records:       len(records),
		Customers:     len(segmented),
		Segmented:     segmented,
		Targets:       targets,
		Report:        report,
		Artifacts:     artifacts,
	}, nil
}

// writeArtifacts writes campaign lists first, then scores and report.
func (p *Pipeline) writeArtifacts(
	ctx context.Context,
	targets []campaign.Target,
	segmented []*domain.SegmentedCustomer,
	report *reporting.Report,
) ([]string, error) {
	type artifact struct {
		kind        string
		dest        string
		data        string
		contentType string
	}

	var artifacts []artifact
	for _, t := range targets {
		artifacts = append(artifacts, artifact{
			kind:        "campaign",
			dest:        export.Join(p.outputDir, t.Campaign.Output),
			data:        reporting.RenderCampaignCSV(t.CustomerIDs),
			contentType: export.ContentTypeCSV,
		})
	}
	artifacts = append(artifacts,
		artifact{"scores", export.Join(p.outputDir, p.scoresFile), reporting.RenderScoresCSV(segmented), export.ContentTypeCSV},
		artifact{"report", export.Join(p.outputDir, p.reportFile), reporting.RenderMarkdown(report), export.ContentTypeMarkdown},
	)

	written := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		if err := p.sink.Write(ctx, a.dest, []byte(a.data), a.contentType); err != nil {
			return nil, err
		}
		p.metrics.ArtifactsWritten.WithLabelValues(a.kind).Inc()
		written = append(written, a.dest)
	}
	return written, nil
}

func (p *Pipeline) recordSegmentation(report *reporting.Report) {
	for _, s := range report.Segments {
		p.metrics.SegmentCustomers.WithLabelValues(string(s.Segment)).Set(float64(s.Count))
	}
	for _, c := range report.Campaigns {
		p.metrics.CampaignTargets.WithLabelValues(c.Name).Set(float64(c.Customers))
	}
}

func (p *Pipeline) stageDone(log logrus.FieldLogger, stage string, start time.Time, fields logrus.Fields) {
	elapsed := time.Since(start)
	p.metrics.ObserveStage(stage, elapsed)
	log.WithFields(fields).WithFields(logrus.Fields{
		"stage":    stage,
		"duration": elapsed.String(),
	}).Info("stage complete")
}

func (p *Pipeline) sourceLabel() string {
	if p.dataSource == "" {
		return "unknown"
	}
	return p.dataSource
}

// convertToDataQuality converts SufficiencyResult to reporting.DataQualitySection.
func convertToDataQuality(result *SufficiencyResult) reporting.DataQualitySection {
	checks := make([]reporting.SufficiencyCheckRow, len(result.Checks))
	for i, c := range result.Checks {
		checks[i] = reporting.SufficiencyCheckRow{
			Name:      c.Name,
			Threshold: c.Threshold,
			Actual:    c.Actual,
			Pass:      c.Pass,
		}
	}
	return reporting.DataQualitySection{
		SufficiencyChecks: checks,
		IntegrityErrors:   result.Errors,
		AllChecksPassed:   result.AllPass,
	}
}
