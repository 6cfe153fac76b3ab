package security

import (
	"errors"
	"testing"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

func TestDefaultPasswordValidatorSuccess(t *testing.T) {
	validator := DefaultPasswordValidator()

	password := "C0mplex!Passphrase#2025"
	if strength := zxcvbn.PasswordStrength(password, nil); strength.Score < 2 {
		t.Fatalf("test password unexpectedly weak: score=%d", strength.Score)
	}
	if err := validator.Validate(password); err != nil {
		t.Fatalf("expected password to pass validation, got %v", err)
	}
}

func TestDefaultPasswordValidatorViolations(t *testing.T) {
	validator := DefaultPasswordValidator()

	assertViolation := func(password, expectedCode string) {
		t.Helper()
		err := validator.Validate(password)
		if err == nil {
			t.Fatalf("expected validation error for %s", expectedCode)
		}
		var vErr *PasswordValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected PasswordValidationError, got %T", err)
		}
		if vErr.Code != expectedCode {
			t.Fatalf("expected %s code, got %s", expectedCode, vErr.Code)
		}
	}

	assertViolation("Short1!", "min_length")
	assertViolation("lowercasepassword", "character_classes")
	assertViolation("Password123", "strength")
}

func TestCustomPasswordValidator(t *testing.T) {
	validator := NewPasswordValidator(
		MinLengthRule(4),
		RequireCharacterClassesRule(3),
	)

	if err := validator.Validate("Ab1x"); err != nil {
		t.Fatalf("expected password to pass custom rules, got %v", err)
	}

	err := validator.Validate("abcdef")
	var vErr *PasswordValidationError
	if !errors.As(err, &vErr) || vErr.Code != "character_classes" {
		t.Fatalf("expected character_classes violation, got %v", err)
	}
}

func TestRequirePasswordStrengthRuleUserInputs(t *testing.T) {
	rule := RequirePasswordStrengthRule(3, "reelapps", "user@reelapps.co.za")

	if err := rule.Validate("reelapps2025"); err == nil {
		t.Fatal("expected password built from known inputs to be rejected")
	}

	if err := rule.Validate("tangerine-orbit-ПЯТЬ-91"); err != nil {
		t.Fatalf("expected strong passphrase to pass, got %v", err)
	}
}

func TestNilValidatorRejects(t *testing.T) {
	var validator *PasswordValidator
	if err := validator.Validate("anything"); err == nil {
		t.Fatal("nil validator must not accept passwords")
	}
}
