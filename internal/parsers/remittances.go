package parsers

import (
	"context"
	"fmt"
	"io"
	"time"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/normalize"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"

	"github.com/google/uuid"
)

// RemittanceParser handles parsing of insurer payment-advice statements
type RemittanceParser struct {
	*BaseParser
	config *RemittanceParserConfig
	logger logger.Logger
}

// NewRemittanceParser creates a new RemittanceParser with the given
// configuration
func NewRemittanceParser(config *RemittanceParserConfig) (*RemittanceParser, error) {
	if config == nil {
		config = StandardRemittanceConfig
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"remittance_parser_config",
			config,
			err,
		).WithSuggestion("Check the remittance parser column configuration")
	}

	parseConfig := DefaultParseConfig()
	parseConfig.HasHeader = config.HasHeader
	parseConfig.Delimiter = config.Delimiter
	parseConfig.HeaderAliases = config.ColumnAliases

	log := logger.GetGlobalLogger().WithComponent("remittance_parser")
	log.WithFields(logger.Fields{
		"format":    config.Name,
		"delimiter": string(config.Delimiter),
	}).Debug("Created remittance parser")

	return &RemittanceParser{
		BaseParser: NewBaseParser(parseConfig),
		config:     config,
		logger:     log,
	}, nil
}

// ParseRemittances parses an insurer statement. Every line is stamped with
// the given provider and filing period.
func (rp *RemittanceParser) ParseRemittances(filePath, provider string, period models.Period) ([]*models.RemittanceLine, *ParseStats, error) {
	return rp.ParseRemittancesWithContext(context.Background(), filePath, provider, period)
}

// ParseRemittancesWithContext parses remittance lines with cancellation
// support
func (rp *RemittanceParser) ParseRemittancesWithContext(ctx context.Context, filePath, provider string, period models.Period) ([]*models.RemittanceLine, *ParseStats, error) {
	rp.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"provider":  provider,
		"period":    period.String(),
		"format":    rp.config.Name,
	}).Info("Starting remittance parsing")

	file, reader, err := rp.OpenFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx)
	stats := NewParseStats()

	requiredHeaders := []string{
		rp.config.GetColumnName("member"),
		rp.config.GetColumnName("service_date"),
		rp.config.GetColumnName("paid_amount"),
	}
	if err := rp.ReadHeaders(reader, parseCtx, requiredHeaders); err != nil {
		return nil, stats, err
	}

	progress := logger.NewProgressTracker(rp.logger, "parse_remittances", 0, 0)
	defer progress.Done()

	var lines []*models.RemittanceLine

	for {
		record, err := rp.ReadRecord(reader, parseCtx)
		if err != nil {
			if err == io.EOF {
				break
			}
			if reconcilerErr, ok := errors.AsReconcilerError(err); ok && reconcilerErr.Category == errors.CategoryInternal {
				return lines, stats, err // cancelled
			}

			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Message: "failed to read record",
				Err:     err,
			})
			continue
		}

		stats.RecordsParsed++
		progress.Add(1)

		line, parseErr := rp.parseLineFromRecord(record, parseCtx, provider, period)
		if parseErr != nil {
			stats.AddError(parseErr)
			continue
		}

		if err := line.Validate(); err != nil {
			rp.logger.WithError(err).WithFields(logger.Fields{
				"line_number": parseCtx.LineNumber,
				"member":      line.MemberNumber,
			}).Warn("Remittance line validation failed")

			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Message: err.Error(),
				Err:     err,
			})
			continue
		}

		lines = append(lines, line)
		stats.RecordsValid++
	}

	stats.TotalLines = parseCtx.LineNumber

	rp.logger.WithFields(logger.Fields{
		"file_path":      filePath,
		"total_lines":    stats.TotalLines,
		"records_parsed": stats.RecordsParsed,
		"records_valid":  stats.RecordsValid,
		"error_count":    stats.ErrorCount,
	}).Info("Remittance parsing completed")

	if stats.HasErrors() {
		rp.logger.WithField("sample_errors", stats.GetSampleErrors(3)).Warn("Encountered errors during parsing")
	}

	return lines, stats, nil
}

// parseLineFromRecord builds a RemittanceLine from one statement row. The
// claim number and bill number are both normalized here because either may
// carry the clinic's invoice number depending on the insurer.
func (rp *RemittanceParser) parseLineFromRecord(record []string, parseCtx *ParseContext, provider string, period models.Period) (*models.RemittanceLine, *ParseError) {
	memberRaw, err := rp.GetFieldValue(record, parseCtx, rp.config.GetColumnName("member"))
	if err != nil {
		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Field:   rp.config.GetColumnName("member"),
			Message: "missing member number",
			Err:     err,
		}
	}
	member := normalize.Member(memberRaw)
	if member == "" {
		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Field:   rp.config.GetColumnName("member"),
			Value:   memberRaw,
			Message: "member number normalizes to empty",
		}
	}

	dateRaw, err := rp.GetFieldValue(record, parseCtx, rp.config.GetColumnName("service_date"))
	if err != nil {
		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Field:   rp.config.GetColumnName("service_date"),
			Message: "missing service date",
			Err:     err,
		}
	}
	canonical := normalize.Date(dateRaw)
	if canonical == "" {
		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Field:   rp.config.GetColumnName("service_date"),
			Value:   dateRaw,
			Message: "unparsable service date",
			Err:     fmt.Errorf("no known date format matched %q", dateRaw),
		}
	}
	serviceDate, _ := time.Parse("2006-01-02", canonical)

	paidRaw, err := rp.GetFieldValue(record, parseCtx, rp.config.GetColumnName("paid_amount"))
	if err != nil {
		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Field:   rp.config.GetColumnName("paid_amount"),
			Message: "missing paid amount",
			Err:     err,
		}
	}

	claimNumber := ""
	if raw := rp.OptionalFieldValue(record, parseCtx, rp.config.GetColumnName("claim_number")); raw != "" {
		claimNumber, _ = normalize.Invoice(raw)
	}
	billNumber := ""
	if raw := rp.OptionalFieldValue(record, parseCtx, rp.config.GetColumnName("bill_number")); raw != "" {
		billNumber, _ = normalize.Invoice(raw)
	}

	return &models.RemittanceLine{
		ID:           uuid.New().String(),
		Provider:     provider,
		EmployerName: rp.OptionalFieldValue(record, parseCtx, rp.config.GetColumnName("employer")),
		PatientName:  rp.OptionalFieldValue(record, parseCtx, rp.config.GetColumnName("patient")),
		MemberNumber: member,
		ClaimNumber:  claimNumber,
		BillNumber:   billNumber,
		Relationship: rp.OptionalFieldValue(record, parseCtx, rp.config.GetColumnName("relationship")),
		ServiceDate:  serviceDate,
		ClaimAmount:  normalize.Amount(rp.OptionalFieldValue(record, parseCtx, rp.config.GetColumnName("claim_amount"))),
		PaidAmount:   normalize.Amount(paidRaw),
		PaymentNo:    rp.OptionalFieldValue(record, parseCtx, rp.config.GetColumnName("payment_no")),
		PaymentMode:  rp.OptionalFieldValue(record, parseCtx, rp.config.GetColumnName("payment_mode")),
		Period:       period,
	}, nil
}
