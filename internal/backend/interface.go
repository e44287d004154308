package backend

import (
	"context"

	"famspese/internal/amqp"
	"famspese/internal/sheets"
)

// CleanupFunc releases resources held by a created integration.
type CleanupFunc func() error

// ExporterResult contains the payment exporter and optional cleanup function.
type ExporterResult struct {
	Exporter sheets.PaymentExporter
	Kind     ExporterKind
	Cleanup  CleanupFunc
}

// Factory creates the outbound integrations shared by the binaries.
type Factory interface {
	// CreateExporter returns the Google Sheets exporter when a spreadsheet is
	// configured, and an in-memory one otherwise.
	CreateExporter(ctx context.Context, config Config) (*ExporterResult, error)
	// CreateEvents connects to the broker. It returns a nil client when AMQP
	// is not configured.
	CreateEvents(config Config) (*amqp.Client, error)
}

// Config holds configuration for integration creation.
type Config struct {
	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	Routes       amqp.Routes
}

// ExporterKind names the exporter implementation in use.
type ExporterKind string

const (
	SheetsExporter ExporterKind = "sheets"
	MemoryExporter ExporterKind = "memory"
)

// String implements fmt.Stringer
func (k ExporterKind) String() string {
	return string(k)
}

// Kind reports which exporter the configuration selects.
func (c Config) Kind() ExporterKind {
	if c.GoogleSpreadsheetID != "" {
		return SheetsExporter
	}
	return MemoryExporter
}

// EventsEnabled reports whether a broker is configured.
func (c Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}
