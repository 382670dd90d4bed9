package errors

import (
	"errors"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "symbol not found")
		if err.Error() != "[NOT_FOUND] symbol not found" {
			t.Errorf("expected [NOT_FOUND] symbol not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeParseFailed, "extraction failed")
		expected := "[PARSE_FAILED] extraction failed: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidationError, "invalid input")
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to return true for CodeValidationError")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeWithWrapped", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeEngineFault, "parser crashed")
		if !IsCode(err, CodeEngineFault) {
			t.Error("expected IsCode to return true for wrapped CodeEngineFault")
		}
	})

	t.Run("ChainedContext", func(t *testing.T) {
		err := New(CodeNotSupported, "unsupported language").
			WithContext(CtxPath, "main.zig").
			WithContext(CtxOperation, "parse")
		if !IsCode(err, CodeNotSupported) {
			t.Error("expected IsCode to return true for chained constructor")
		}
		if err.Context[CtxPath] != "main.zig" || err.Context[CtxOperation] != "parse" {
			t.Errorf("expected both context keys, got %v", err.Context)
		}
	})

	t.Run("WithContext", func(t *testing.T) {
		var err error = New(CodeNotSupported, "no resolver")
		err = AddContext(err, CtxLanguage, "rust")
		var de *DomainError
		if !errors.As(err, &de) {
			t.Fatal("expected DomainError")
		}
		if de.Context[CtxLanguage] != "rust" {
			t.Errorf("expected language context, got %v", de.Context)
		}
	})
}
