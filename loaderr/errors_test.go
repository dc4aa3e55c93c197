package loaderr

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

func TestClassCodesAreDistinctBits(t *testing.T) {
	classes := []Class{ClassGeneral, ClassCustom, ClassAccessDenied, ClassAccess, ClassParse, ClassNoSources}
	seen := 0
	for _, class := range classes {
		code := class.Code()
		if code&(code-1) != 0 {
			t.Fatalf("%s code %d is not a single bit", class, code)
		}
		if seen&code != 0 {
			t.Fatalf("%s code %d overlaps another class", class, code)
		}
		seen |= code
	}
}

func TestErrorMatchesSentinelByClass(t *testing.T) {
	base := errors.New("unexpected token")
	err := fmt.Errorf("load: %w", Parse("a.js", base))

	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected parse sentinel to match, got %v", err)
	}
	if errors.Is(err, ErrAccess) {
		t.Fatalf("parse error must not match access sentinel")
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped diagnostic to unwrap")
	}
	if Code(err) != ClassParse.Code() {
		t.Fatalf("expected code %d, got %d", ClassParse.Code(), Code(err))
	}
}

func TestCustomErrorAppendsDetail(t *testing.T) {
	err := Custom("extension rejected")
	if got := err.Error(); got != "Application error occurred: extension rejected" {
		t.Fatalf("unexpected message %q", got)
	}
	if err.Code() != 128 {
		t.Fatalf("expected code 128, got %d", err.Code())
	}
}

func TestErrorMessageIncludesPathAndCause(t *testing.T) {
	err := AccessDenied("/srv/scripts", fs.ErrPermission)
	msg := err.Error()
	if !strings.HasPrefix(msg, ClassAccessDenied.Message()) {
		t.Fatalf("expected fixed message prefix, got %q", msg)
	}
	if !strings.Contains(msg, `path="/srv/scripts"`) {
		t.Fatalf("expected path in message, got %q", msg)
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("expected cause to unwrap")
	}
}

func TestCombineOrsCodes(t *testing.T) {
	status := Combine(Parse("a.js", nil), NoSources("/tmp"), errors.New("plain"), nil)
	want := ClassParse.Code() | ClassNoSources.Code()
	if status != want {
		t.Fatalf("expected status %d, got %d", want, status)
	}
}

func TestClassOfPlainError(t *testing.T) {
	if _, ok := ClassOf(errors.New("plain")); ok {
		t.Fatalf("plain error should not classify")
	}
	if Code(nil) != 0 {
		t.Fatalf("nil error should have code 0")
	}
}
