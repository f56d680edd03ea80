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

// ClaimParser handles parsing of clinic claim export CSV files
type ClaimParser struct {
	*BaseParser
	config *ClaimParserConfig
	logger logger.Logger
}

// NewClaimParser creates a new ClaimParser with the given configuration
func NewClaimParser(config *ClaimParserConfig) (*ClaimParser, error) {
	if config == nil {
		config = DefaultClaimParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"claim_parser_config",
			config,
			err,
		).WithSuggestion("Check the claim parser column configuration")
	}

	parseConfig := DefaultParseConfig()
	parseConfig.HasHeader = config.HasHeader
	parseConfig.Delimiter = config.Delimiter
	parseConfig.HeaderAliases = config.ColumnAliases

	log := logger.GetGlobalLogger().WithComponent("claim_parser")

	return &ClaimParser{
		BaseParser: NewBaseParser(parseConfig),
		config:     config,
		logger:     log,
	}, nil
}

// ParseClaims parses a clinic claim export. Every claim is stamped with
// the given provider and filing period and starts in awaiting-payment.
func (cp *ClaimParser) ParseClaims(filePath, provider string, period models.Period) ([]*models.Claim, *ParseStats, error) {
	return cp.ParseClaimsWithContext(context.Background(), filePath, provider, period)
}

// ParseClaimsWithContext parses claims with cancellation support
func (cp *ClaimParser) ParseClaimsWithContext(ctx context.Context, filePath, provider string, period models.Period) ([]*models.Claim, *ParseStats, error) {
	cp.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"provider":  provider,
		"period":    period.String(),
	}).Info("Starting claim parsing")

	file, reader, err := cp.OpenFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx)
	stats := NewParseStats()

	requiredHeaders := []string{
		cp.config.GetColumnName("member"),
		cp.config.GetColumnName("service_date"),
		cp.config.GetColumnName("amount"),
	}
	if err := cp.ReadHeaders(reader, parseCtx, requiredHeaders); err != nil {
		return nil, stats, err
	}

	progress := logger.NewProgressTracker(cp.logger, "parse_claims", 0, 0)
	defer progress.Done()

	var claims []*models.Claim

	for {
		record, err := cp.ReadRecord(reader, parseCtx)
		if err != nil {
			if err == io.EOF {
				break
			}
			if reconcilerErr, ok := errors.AsReconcilerError(err); ok && reconcilerErr.Category == errors.CategoryInternal {
				return claims, stats, err // cancelled
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

		claim, parseErr := cp.parseClaimFromRecord(record, parseCtx, provider, period)
		if parseErr != nil {
			stats.AddError(parseErr)
			continue
		}

		if err := claim.Validate(); err != nil {
			cp.logger.WithError(err).WithFields(logger.Fields{
				"line_number": parseCtx.LineNumber,
				"member":      claim.MemberNumber,
			}).Warn("Claim validation failed")

			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Message: err.Error(),
				Err:     err,
			})
			continue
		}

		claims = append(claims, claim)
		stats.RecordsValid++
	}

	stats.TotalLines = parseCtx.LineNumber

	cp.logger.WithFields(logger.Fields{
		"file_path":      filePath,
		"total_lines":    stats.TotalLines,
		"records_parsed": stats.RecordsParsed,
		"records_valid":  stats.RecordsValid,
		"error_count":    stats.ErrorCount,
	}).Info("Claim parsing completed")

	if stats.HasErrors() {
		cp.logger.WithField("sample_errors", stats.GetSampleErrors(3)).Warn("Encountered errors during parsing")
	}

	return claims, stats, nil
}

// parseClaimFromRecord builds a Claim from one CSV record, normalizing the
// fields used in matching at the boundary.
func (cp *ClaimParser) parseClaimFromRecord(record []string, parseCtx *ParseContext, provider string, period models.Period) (*models.Claim, *ParseError) {
	memberRaw, err := cp.GetFieldValue(record, parseCtx, cp.config.GetColumnName("member"))
	if err != nil {
		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Field:   cp.config.GetColumnName("member"),
			Message: "missing member number",
			Err:     err,
		}
	}
	member := normalize.Member(memberRaw)
	if member == "" {
		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Field:   cp.config.GetColumnName("member"),
			Value:   memberRaw,
			Message: "member number normalizes to empty",
		}
	}

	dateRaw, err := cp.GetFieldValue(record, parseCtx, cp.config.GetColumnName("service_date"))
	if err != nil {
		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Field:   cp.config.GetColumnName("service_date"),
			Message: "missing service date",
			Err:     err,
		}
	}
	canonical := normalize.Date(dateRaw)
	if canonical == "" {
		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Field:   cp.config.GetColumnName("service_date"),
			Value:   dateRaw,
			Message: "unparsable service date",
			Err:     fmt.Errorf("no known date format matched %q", dateRaw),
		}
	}
	serviceDate, _ := time.Parse("2006-01-02", canonical)

	amountRaw, err := cp.GetFieldValue(record, parseCtx, cp.config.GetColumnName("amount"))
	if err != nil {
		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Field:   cp.config.GetColumnName("amount"),
			Message: "missing billed amount",
			Err:     err,
		}
	}
	billed := normalize.Amount(amountRaw)

	invoice := ""
	if raw := cp.OptionalFieldValue(record, parseCtx, cp.config.GetColumnName("invoice")); raw != "" {
		if normalized, ok := normalize.Invoice(raw); ok {
			invoice = normalized
		}
	}

	return &models.Claim{
		ID:            uuid.New().String(),
		Provider:      provider,
		MemberNumber:  member,
		PatientName:   cp.OptionalFieldValue(record, parseCtx, cp.config.GetColumnName("patient")),
		ServiceDate:   serviceDate,
		InvoiceNumber: invoice,
		ClaimType:     cp.OptionalFieldValue(record, parseCtx, cp.config.GetColumnName("claim_type")),
		SchemeName:    cp.OptionalFieldValue(record, parseCtx, cp.config.GetColumnName("scheme")),
		BenefitDesc:   cp.OptionalFieldValue(record, parseCtx, cp.config.GetColumnName("benefit")),
		BilledAmount:  billed,
		Currency:      cp.OptionalFieldValue(record, parseCtx, cp.config.GetColumnName("currency")),
		Period:        period,
		Status:        models.StatusAwaitingPayment,
	}, nil
}
