// Package genesis describes the bootstrap state of a securewrap node.
package genesis

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"securewrap/crypto"
	"securewrap/native/securewrap"
)

// GenesisSpec is the YAML document applied on first boot.
type GenesisSpec struct {
	GenesisTime        string                       `yaml:"genesisTime"`
	Authority          string                       `yaml:"authority"`
	UnwrapDelaySeconds *uint64                      `yaml:"unwrapDelaySeconds,omitempty"`
	Mints              []MintSpec                   `yaml:"mints"`
	Alloc              map[string]map[string]uint64 `yaml:"alloc"` // addr -> symbol -> amount
	Pairs              []string                     `yaml:"pairs"` // symbols of original mints to wrap

	genesisTimestamp time.Time
	authority        [20]byte
	mintsBySymbol    map[string]*MintSpec
}

// MintSpec describes an original mint created at genesis.
type MintSpec struct {
	Symbol          string `yaml:"symbol"`
	ID              string `yaml:"id"`
	Decimals        uint8  `yaml:"decimals"`
	MintAuthority   string `yaml:"mintAuthority"`
	FreezeAuthority string `yaml:"freezeAuthority"`

	id              [20]byte
	mintAuthority   [20]byte
	freezeAuthority [20]byte
}

// Allocation is one initial balance in deterministic order.
type Allocation struct {
	Owner  [20]byte
	Mint   [20]byte
	Amount uint64
}

func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseGenesisSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseGenesisSpec decodes and validates a YAML genesis document. Unknown
// fields are rejected.
func ParseGenesisSpec(raw []byte) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

func (s *GenesisSpec) GenesisTimestamp() time.Time { return s.genesisTimestamp }

func (s *GenesisSpec) AuthorityAddress() [20]byte { return s.authority }

// MintSpecs returns the validated mints in declaration order.
func (s *GenesisSpec) MintSpecs() []MintSpec { return append([]MintSpec(nil), s.Mints...) }

func (m MintSpec) IDBytes() [20]byte              { return m.id }
func (m MintSpec) MintAuthorityBytes() [20]byte   { return m.mintAuthority }
func (m MintSpec) FreezeAuthorityBytes() [20]byte { return m.freezeAuthority }

// PairMints returns the original mint ids to pair, in declaration order.
func (s *GenesisSpec) PairMints() [][20]byte {
	out := make([][20]byte, 0, len(s.Pairs))
	for _, symbol := range s.Pairs {
		out = append(out, s.mintsBySymbol[normalizeSymbol(symbol)].id)
	}
	return out
}

// Allocations flattens Alloc sorted by owner text then symbol.
func (s *GenesisSpec) Allocations() []Allocation {
	owners := make([]string, 0, len(s.Alloc))
	for owner := range s.Alloc {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	var out []Allocation
	for _, owner := range owners {
		raw, _ := crypto.ParseRaw(strings.TrimSpace(owner))
		symbols := make([]string, 0, len(s.Alloc[owner]))
		for symbol := range s.Alloc[owner] {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
		for _, symbol := range symbols {
			amount := s.Alloc[owner][symbol]
			if amount == 0 {
				continue
			}
			out = append(out, Allocation{
				Owner:  raw,
				Mint:   s.mintsBySymbol[normalizeSymbol(symbol)].id,
				Amount: amount,
			})
		}
	}
	return out
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (s *GenesisSpec) validate() error {
	parsedTime, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = parsedTime

	if strings.TrimSpace(s.Authority) == "" {
		return fmt.Errorf("authority must be provided")
	}
	s.authority, err = crypto.ParseRaw(strings.TrimSpace(s.Authority))
	if err != nil {
		return fmt.Errorf("authority: %w", err)
	}
	if s.UnwrapDelaySeconds != nil && *s.UnwrapDelaySeconds > uint64(securewrap.MaxUnwrapDelaySeconds) {
		return fmt.Errorf("unwrapDelaySeconds must be <= %d", securewrap.MaxUnwrapDelaySeconds)
	}

	s.mintsBySymbol = make(map[string]*MintSpec, len(s.Mints))
	ids := make(map[[20]byte]struct{}, len(s.Mints))
	for i := range s.Mints {
		m := &s.Mints[i]
		if err := m.validate(); err != nil {
			return fmt.Errorf("mint[%d]: %w", i, err)
		}
		key := normalizeSymbol(m.Symbol)
		if _, exists := s.mintsBySymbol[key]; exists {
			return fmt.Errorf("mint[%d]: duplicate symbol %q", i, m.Symbol)
		}
		if _, exists := ids[m.id]; exists {
			return fmt.Errorf("mint[%d]: duplicate id %q", i, m.ID)
		}
		s.mintsBySymbol[key] = m
		ids[m.id] = struct{}{}
	}

	for owner, balances := range s.Alloc {
		if _, err := crypto.ParseRaw(strings.TrimSpace(owner)); err != nil {
			return fmt.Errorf("alloc %q: %w", owner, err)
		}
		for symbol := range balances {
			if _, ok := s.mintsBySymbol[normalizeSymbol(symbol)]; !ok {
				return fmt.Errorf("alloc %q: unknown mint %q", owner, symbol)
			}
		}
	}

	paired := make(map[string]struct{}, len(s.Pairs))
	for i, symbol := range s.Pairs {
		key := normalizeSymbol(symbol)
		if _, ok := s.mintsBySymbol[key]; !ok {
			return fmt.Errorf("pair[%d]: unknown mint %q", i, symbol)
		}
		if _, dup := paired[key]; dup {
			return fmt.Errorf("pair[%d]: duplicate mint %q", i, symbol)
		}
		paired[key] = struct{}{}
	}
	return nil
}

func (m *MintSpec) validate() error {
	if normalizeSymbol(m.Symbol) == "" {
		return fmt.Errorf("symbol must be provided")
	}
	var err error
	if m.id, err = crypto.ParseRaw(strings.TrimSpace(m.ID)); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	if m.mintAuthority, err = crypto.ParseRaw(strings.TrimSpace(m.MintAuthority)); err != nil {
		return fmt.Errorf("mintAuthority: %w", err)
	}
	if strings.TrimSpace(m.FreezeAuthority) != "" {
		if m.freezeAuthority, err = crypto.ParseRaw(strings.TrimSpace(m.FreezeAuthority)); err != nil {
			return fmt.Errorf("freezeAuthority: %w", err)
		}
	}
	return nil
}

func parseGenesisTime(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("genesisTime: %w", err)
	}
	if ts.Unix() <= 0 {
		return time.Time{}, fmt.Errorf("genesisTime must be after the unix epoch")
	}
	return ts.UTC(), nil
}
