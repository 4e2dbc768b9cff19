package genesis

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"securewrap/crypto"
)

func addr(fill byte) string {
	return crypto.NewAddress(crypto.SWTPrefix, bytes.Repeat([]byte{fill}, 20)).String()
}

func sampleYAML() string {
	return fmt.Sprintf(`genesisTime: "2024-01-01T00:00:00Z"
authority: %s
unwrapDelaySeconds: 600
mints:
  - symbol: usdx
    id: %s
    decimals: 6
    mintAuthority: %s
    freezeAuthority: %s
  - symbol: GLD
    id: %s
    decimals: 8
    mintAuthority: %s
alloc:
  %s:
    USDX: 1000
    GLD: 0
  %s:
    GLD: 7
pairs: [USDX]
`, addr(1), addr(0x10), addr(2), addr(3), addr(0x11), addr(2), addr(0xB0), addr(0xA0))
}

func TestLoadGenesisSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML()), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	spec, err := LoadGenesisSpec(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if spec.GenesisTimestamp().Unix() != 1704067200 {
		t.Fatalf("unexpected genesis time %v", spec.GenesisTimestamp())
	}
	if got := crypto.Format(spec.AuthorityAddress()); got != addr(1) {
		t.Fatalf("unexpected authority %s", got)
	}
	if spec.UnwrapDelaySeconds == nil || *spec.UnwrapDelaySeconds != 600 {
		t.Fatalf("unexpected unwrap delay %v", spec.UnwrapDelaySeconds)
	}
	pairs := spec.PairMints()
	if len(pairs) != 1 || crypto.Format(pairs[0]) != addr(0x10) {
		t.Fatalf("unexpected pairs %v", pairs)
	}
	allocs := spec.Allocations()
	if len(allocs) != 2 {
		t.Fatalf("zero balances must be skipped, got %+v", allocs)
	}
	if crypto.Format(allocs[0].Owner) != addr(0xA0) || allocs[0].Amount != 7 {
		t.Fatalf("allocations must be sorted by owner, got %+v", allocs)
	}
	mints := spec.MintSpecs()
	if mints[1].FreezeAuthorityBytes() != ([20]byte{}) {
		t.Fatalf("freeze authority should default to none")
	}
}

func TestParseGenesisSpecRejectsInvalid(t *testing.T) {
	base := sampleYAML()
	cases := []struct {
		name   string
		mutate func(string) string
		want   string
	}{
		{"unknown field", func(s string) string { return s + "extra: 1\n" }, "decode"},
		{"bad time", func(s string) string { return strings.Replace(s, "2024-01-01T00:00:00Z", "yesterday", 1) }, "genesisTime"},
		{"delay too long", func(s string) string { return strings.Replace(s, "unwrapDelaySeconds: 600", "unwrapDelaySeconds: 86401", 1) }, "unwrapDelaySeconds"},
		{"unknown pair", func(s string) string { return strings.Replace(s, "pairs: [USDX]", "pairs: [EUR]", 1) }, "unknown mint"},
		{"duplicate pair", func(s string) string { return strings.Replace(s, "pairs: [USDX]", "pairs: [USDX, usdx]", 1) }, "duplicate mint"},
		{"unknown alloc mint", func(s string) string { return strings.Replace(s, "GLD: 7", "EUR: 7", 1) }, "unknown mint"},
		{"duplicate symbol", func(s string) string { return strings.Replace(s, "symbol: GLD", "symbol: USDX", 1) }, "duplicate symbol"},
		{"bad authority", func(s string) string { return strings.Replace(s, "authority: "+addr(1), "authority: nope", 1) }, "authority"},
	}
	for _, tc := range cases {
		_, err := ParseGenesisSpec([]byte(tc.mutate(base)))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}
