package passphrase

import (
	"errors"
	"testing"
)

func TestSourcePrefersEnvironment(t *testing.T) {
	t.Setenv("SWT_TEST_PASS", "hunter22")
	src := NewSource("SWT_TEST_PASS")
	src.isTerminal = func() bool { t.Fatal("terminal must not be consulted"); return false }
	got, err := src.Get()
	if err != nil || got != "hunter22" {
		t.Fatalf("unexpected passphrase %q %v", got, err)
	}
}

func TestSourceRejectsEmptyEnvironment(t *testing.T) {
	t.Setenv("SWT_TEST_PASS", "  ")
	if _, err := NewSource("SWT_TEST_PASS").Get(); err == nil {
		t.Fatalf("expected blank env passphrase to fail")
	}
}

func TestSourceWithoutTerminal(t *testing.T) {
	src := NewSource("")
	src.isTerminal = func() bool { return false }
	if _, err := src.Get(); err == nil {
		t.Fatalf("expected error without terminal")
	}
}

func TestSourceConfirmation(t *testing.T) {
	answers := []string{"first", "second"}
	src := NewSource("").WithConfirmation()
	src.isTerminal = func() bool { return true }
	src.read = func(string) (string, error) {
		next := answers[0]
		answers = answers[1:]
		return next, nil
	}
	if _, err := src.Get(); err == nil {
		t.Fatalf("expected mismatch error")
	}

	calls := 0
	src = NewSource("").WithConfirmation()
	src.isTerminal = func() bool { return true }
	src.read = func(string) (string, error) {
		calls++
		return "same", nil
	}
	got, err := src.Get()
	if err != nil || got != "same" || calls != 2 {
		t.Fatalf("unexpected result %q %v calls=%d", got, err, calls)
	}
	if again, _ := src.Get(); again != "same" || calls != 2 {
		t.Fatalf("passphrase must be cached")
	}

	src = NewSource("")
	src.isTerminal = func() bool { return true }
	src.read = func(string) (string, error) { return "", errors.New("tty closed") }
	if _, err := src.Get(); err == nil {
		t.Fatalf("expected read failure")
	}
}
