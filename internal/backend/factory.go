package backend

import (
	"context"
	"fmt"

	"famspese/internal/amqp"
	applog "famspese/internal/log"
	gsheet "famspese/internal/sheets/google"
	memsheet "famspese/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new integration factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger}
}

// CreateExporter implements Factory.CreateExporter
func (f *DefaultFactory) CreateExporter(ctx context.Context, config Config) (*ExporterResult, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid integration config: %w", err)
	}

	switch config.Kind() {
	case SheetsExporter:
		return f.createSheetsExporter(ctx, config)
	default:
		f.logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting in memory")
		return &ExporterResult{Exporter: memsheet.New(), Kind: MemoryExporter}, nil
	}
}

func (f *DefaultFactory) createSheetsExporter(ctx context.Context, config Config) (*ExporterResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		SheetName:          config.GoogleSheetName,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Google Sheets export enabled",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheet", config.GoogleSheetName)

	return &ExporterResult{Exporter: cli, Kind: SheetsExporter}, nil
}

// CreateEvents implements Factory.CreateEvents
func (f *DefaultFactory) CreateEvents(config Config) (*amqp.Client, error) {
	if !config.EventsEnabled() {
		f.logger.Info("AMQP disabled - changes are picked up by periodic passes only")
		return nil, nil
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid integration config: %w", err)
	}

	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.Routes)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
	}

	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"installment_queue", config.Routes.Installments,
		"export_queue", config.Routes.Export)
	return client, nil
}
