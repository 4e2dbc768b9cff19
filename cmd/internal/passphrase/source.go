package passphrase

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Source lazily resolves a keystore passphrase from an environment variable or
// by prompting on the terminal. The value is cached after the first successful
// retrieval.
type Source struct {
	envVar  string
	confirm bool

	once  sync.Once
	value string
	err   error

	isTerminal func() bool
	read       func(prompt string) (string, error)
}

// NewSource constructs a passphrase source that checks envVar before
// prompting.
func NewSource(envVar string) *Source {
	return &Source{
		envVar:     strings.TrimSpace(envVar),
		isTerminal: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
		read:       readTerminal,
	}
}

// WithConfirmation makes interactive prompts ask twice. Used when a new
// keystore is written.
func (s *Source) WithConfirmation() *Source {
	s.confirm = true
	return s
}

// Get returns the cached passphrase or resolves it on first use. Blank
// passphrases are rejected.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		if s.envVar != "" {
			if value, ok := os.LookupEnv(s.envVar); ok {
				if strings.TrimSpace(value) == "" {
					s.err = fmt.Errorf("%s is set but empty", s.envVar)
					return
				}
				s.value = value
				return
			}
		}

		if !s.isTerminal() {
			if s.envVar != "" {
				s.err = fmt.Errorf("keystore passphrase required; set %s or run interactively", s.envVar)
			} else {
				s.err = errors.New("keystore passphrase required and no terminal available")
			}
			return
		}

		passphrase, err := s.read("Enter keystore passphrase: ")
		if err != nil {
			s.err = fmt.Errorf("failed to read passphrase: %w", err)
			return
		}
		if strings.TrimSpace(passphrase) == "" {
			s.err = errors.New("keystore passphrase cannot be empty")
			return
		}
		if s.confirm {
			again, err := s.read("Repeat keystore passphrase: ")
			if err != nil {
				s.err = fmt.Errorf("failed to read passphrase: %w", err)
				return
			}
			if again != passphrase {
				s.err = errors.New("passphrases do not match")
				return
			}
		}
		s.value = passphrase
	})

	return s.value, s.err
}

func readTerminal(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
