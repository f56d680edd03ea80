package cmd

import (
	"fmt"
	"os"

	"claims-reconciliation-service/cmd/reconciler/config"
	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/reconciler"
	"claims-reconciliation-service/internal/store"

	"github.com/spf13/viper"
)

// openService opens the claims database and builds the reconciliation
// service around it. The caller must call the returned cleanup function.
func openService(strict bool) (*reconciler.Service, func(), error) {
	path := viper.GetString("db")
	if path == "" {
		path = dbPath
	}

	st, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, nil, err
	}

	matcherConfig := config.CreateMatcherConfig(strict, nil)
	service := reconciler.NewService(st, matcherConfig)

	return service, func() { st.Close() }, nil
}

// parsePeriodFlag validates a --period value.
func parsePeriodFlag(raw string) (models.Period, error) {
	if raw == "" {
		return models.Period{}, fmt.Errorf("period is required (YYYY-MM)")
	}
	period, err := models.ParsePeriod(raw)
	if err != nil {
		return models.Period{}, fmt.Errorf("invalid period %q, use YYYY-MM: %w", raw, err)
	}
	return period, nil
}

// validateFileExists checks a file flag points at a readable file.
func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}
