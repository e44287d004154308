package backend

import (
	"errors"
	"fmt"

	"famspese/internal/amqp"
	"famspese/internal/config"
)

// FromAppConfig converts the application config to integration config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	c := Config{
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		Routes: amqp.Routes{
			Installments: appConfig.AMQPInstallmentQueue,
			Export:       appConfig.AMQPExportQueue,
		},
	}
	return c, c.Validate()
}

// Validate validates the integration configuration
func (c Config) Validate() error {
	var errs []error

	if c.Kind() == SheetsExporter {
		if c.GoogleSheetName == "" {
			errs = append(errs, errors.New("Google Sheet name is required when a spreadsheet is configured"))
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errs = append(errs, errors.New("Google service account credentials are required when a spreadsheet is configured"))
		}
	}

	if c.EventsEnabled() {
		if c.AMQPExchange == "" {
			errs = append(errs, errors.New("AMQP exchange is required when AMQP_URL is set"))
		}
		if c.Routes.Installments == "" || c.Routes.Export == "" {
			errs = append(errs, errors.New("AMQP queues are required when AMQP_URL is set"))
		}
	}

	return errors.Join(errs...)
}
