package config

import (
	"context"
	"fmt"

	"mercagasto/internal/extractor"
	"mercagasto/internal/source"
	"mercagasto/internal/utils"
	"mercagasto/internal/utils/mailing"
	"mercagasto/internal/utils/storage"
	"mercagasto/pkg/catalog"
	"mercagasto/pkg/matching"
	"mercagasto/pkg/parser"
	"mercagasto/pkg/processing"
	"mercagasto/pkg/receipt"
	"mercagasto/pkg/report"

	"gorm.io/gorm"
)

type SourceKind string

const (
	SourceDir SourceKind = "dir"
	SourceS3  SourceKind = "s3"
)

// Source is an inbox that can also archive what it served.
type Source interface {
	processing.MessageSource
	processing.Archiver
}

type Services struct {
	Engine     *matching.Engine
	Catalog    catalog.CatalogService
	Processing processing.ProcessingService
	Receipts   receipt.ReceiptService
	Reports    report.ReportService
	Source     Source
}

// NewServices wires repositories and services over db. source may be nil
// for commands that never read the inbox.
func NewServices(db *gorm.DB, src Source) *Services {
	pipeline := utils.PipelineConfig()
	engine := matching.NewEngine(matching.Config{
		FuzzyMinRatio:        pipeline.FuzzyMinRatio,
		KeywordMinScore:      pipeline.KeywordMinScore,
		AutoAcceptConfidence: pipeline.AutoAcceptConfidence,
		ReviewConfidence:     pipeline.ReviewConfidence,
	})

	// Repository
	processingRepository := processing.NewProcessingRepository(db)
	catalogRepository := catalog.NewCatalogRepository(db)
	receiptRepository := receipt.NewReceiptRepository(db)

	// Service
	catalogService := catalog.NewCatalogService(catalogRepository)
	var archiver processing.Archiver
	if src != nil {
		archiver = src
	}
	processingService := processing.NewProcessingService(
		processingRepository,
		extractor.NewPDFExtractor(),
		parser.NewMercadonaParser(),
		engine,
		catalogService,
		archiver,
		processing.Config{
			MaxRetries:   pipeline.MaxRetries,
			Workers:      pipeline.Workers,
			StageTimeout: pipeline.StageTimeout,
		},
	)
	receiptService := receipt.NewReceiptService(receiptRepository, engine, catalogService)
	reportService := report.NewReportService(
		receiptService,
		mailing.NewMailer(mailing.LoadMailConfig()),
		utils.GetConfig("REPORT_RECIPIENT"),
	)

	return &Services{
		Engine:     engine,
		Catalog:    catalogService,
		Processing: processingService,
		Receipts:   receiptService,
		Reports:    reportService,
		Source:     src,
	}
}

// NewSource opens the configured inbox. dir overrides INBOX_DIR.
func NewSource(ctx context.Context, kind SourceKind, dir string) (Source, error) {
	switch kind {
	case SourceS3:
		s3, err := storage.NewAwsS3(ctx)
		if err != nil {
			return nil, err
		}
		return source.NewS3Source(s3, utils.GetConfig("AWS_S3_INBOX_PREFIX"), utils.GetConfig("AWS_S3_ARCHIVE_PREFIX")), nil
	case SourceDir, "":
		if dir == "" {
			dir = utils.GetConfig("INBOX_DIR")
		}
		if dir == "" {
			return nil, fmt.Errorf("no inbox directory, set INBOX_DIR or pass --dir")
		}
		return source.NewDirSource(dir, utils.GetConfig("ARCHIVE_DIR")), nil
	default:
		return nil, fmt.Errorf("unknown source %q", kind)
	}
}
