package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorStringIncludesCodeAndContext(t *testing.T) {
	err := AddContext(New(CodeNotSupported, "unsupported language"), CtxPath, "a.txt")

	msg := err.Error()
	if !strings.Contains(msg, "[NOT_SUPPORTED]") {
		t.Errorf("missing code in %q", msg)
	}
	if !strings.Contains(msg, "a.txt") {
		t.Errorf("missing context in %q", msg)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk gone")
	err := Wrap(cause, CodeInternal, "scan failed")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
	if !IsCode(err, CodeInternal) {
		t.Error("IsCode failed for wrapped error")
	}
	if IsCode(err, CodeNotFound) {
		t.Error("IsCode matched the wrong code")
	}
}

func TestAddContextWrapsForeignErrors(t *testing.T) {
	err := AddContext(stderrors.New("boom"), CtxOperation, "scan")

	var de *DomainError
	if !stderrors.As(err, &de) {
		t.Fatal("expected DomainError")
	}
	if de.Context[CtxOperation] != "scan" {
		t.Errorf("context = %v", de.Context)
	}
}
