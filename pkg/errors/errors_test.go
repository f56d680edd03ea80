package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		want     int
	}{
		{CategoryFile, 2},
		{CategoryParse, 3},
		{CategoryValidation, 3},
		{CategoryConfiguration, 4},
		{CategoryPrecondition, 5},
		{CategoryStorage, 6},
		{CategoryReconciliation, 7},
		{CategoryInternal, 7},
		{ErrorCategory("unknown"), 1},
	}

	for _, tt := range tests {
		err := New(tt.category, CodeUnexpectedError, "boom")
		if got := err.GetExitCode(); got != tt.want {
			t.Errorf("GetExitCode(%s) = %d, want %d", tt.category, got, tt.want)
		}
	}
}

func TestErrorIncludesSuggestion(t *testing.T) {
	err := New(CategoryFile, CodeFileNotFound, "file not found").
		WithSuggestion("check the path")
	if got := err.Error(); !strings.Contains(got, "check the path") {
		t.Errorf("Error() = %q, want suggestion included", got)
	}

	bare := New(CategoryFile, CodeFileNotFound, "file not found")
	if got := bare.Error(); got != "file not found" {
		t.Errorf("Error() = %q, want message only", got)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(cause, CategoryStorage, CodeStorageFailure, "insert failed")
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the wrapped cause")
	}
	if Wrap(nil, CategoryStorage, CodeStorageFailure, "x") != nil {
		t.Error("wrapping nil should yield nil")
	}
}

func TestPreconditionErrorMessages(t *testing.T) {
	tests := []struct {
		code        ErrorCode
		wantMessage string
	}{
		{CodeNoClaimsForProvider, "no claims found for provider LIBERTY"},
		{CodeNoOutstandingClaims, "no outstanding claims for provider LIBERTY"},
		{CodeNoRemittanceLines, "no new remittance lines for provider LIBERTY"},
	}

	for _, tt := range tests {
		err := PreconditionError(tt.code, "LIBERTY")
		if err.Message != tt.wantMessage {
			t.Errorf("PreconditionError(%s) message = %q, want %q", tt.code, err.Message, tt.wantMessage)
		}
		if err.Suggestion == "" {
			t.Errorf("PreconditionError(%s) should carry a suggestion", tt.code)
		}
		if err.Context["provider"] != "LIBERTY" {
			t.Errorf("PreconditionError(%s) should carry the provider in context", tt.code)
		}
		if !IsPrecondition(err) {
			t.Errorf("IsPrecondition(PreconditionError(%s)) = false", tt.code)
		}
	}
}

func TestAsReconcilerErrorThroughChain(t *testing.T) {
	inner := PreconditionError(CodeNoClaimsForProvider, "LIBERTY")
	wrapped := fmt.Errorf("upload failed: %w", inner)

	extracted, ok := AsReconcilerError(wrapped)
	if !ok {
		t.Fatal("AsReconcilerError should find the error through the chain")
	}
	if extracted.Code != CodeNoClaimsForProvider {
		t.Errorf("code = %s, want %s", extracted.Code, CodeNoClaimsForProvider)
	}
	if !IsPrecondition(wrapped) {
		t.Error("IsPrecondition should see through wrapping")
	}
}

func TestIsPreconditionRejectsOthers(t *testing.T) {
	if IsPrecondition(nil) {
		t.Error("nil is not a precondition failure")
	}
	if IsPrecondition(fmt.Errorf("plain error")) {
		t.Error("plain errors are not precondition failures")
	}
	if IsPrecondition(New(CategoryStorage, CodeStorageFailure, "boom")) {
		t.Error("storage errors are not precondition failures")
	}
}

func TestWithContext(t *testing.T) {
	err := New(CategoryValidation, CodeInvalidPeriod, "bad period").
		WithContext("field", "period").
		WithContext("value", "2025-13")
	if err.Context["field"] != "period" || err.Context["value"] != "2025-13" {
		t.Errorf("context = %v, want both keys", err.Context)
	}
}

func TestErrorSummary(t *testing.T) {
	errs := []*ReconcilerError{
		New(CategoryParse, CodeInvalidData, "bad row"),
		New(CategoryParse, CodeInvalidDate, "bad date"),
		New(CategoryStorage, CodeStorageFailure, "insert failed"),
	}
	summary := NewErrorSummary(errs)

	if summary.Total != 3 {
		t.Errorf("total = %d, want 3", summary.Total)
	}
	if summary.ByCategory[CategoryParse] != 2 {
		t.Errorf("parse count = %d, want 2", summary.ByCategory[CategoryParse])
	}
	if !summary.HasCategory(CategoryStorage) {
		t.Error("summary should report the storage category")
	}
	if summary.HasCategory(CategoryFile) {
		t.Error("summary should not report absent categories")
	}
	// Storage outranks parse
	if got := summary.GetExitCode(); got != 6 {
		t.Errorf("exit code = %d, want 6", got)
	}
}

func TestErrorSummaryEmpty(t *testing.T) {
	summary := NewErrorSummary(nil)
	if summary.GetExitCode() != 0 {
		t.Errorf("empty summary exit code = %d, want 0", summary.GetExitCode())
	}
	if summary.Error() != "no errors" {
		t.Errorf("empty summary message = %q", summary.Error())
	}
}

func TestValidationError(t *testing.T) {
	err := ValidationError(CodeInvalidPeriod, "period", "2025-13", fmt.Errorf("month out of range"))
	if err.Category != CategoryValidation {
		t.Errorf("category = %s, want validation", err.Category)
	}
	if err.Code != CodeInvalidPeriod {
		t.Errorf("code = %s, want %s", err.Code, CodeInvalidPeriod)
	}
	if err.Unwrap() == nil {
		t.Error("validation error should keep its cause")
	}
}
