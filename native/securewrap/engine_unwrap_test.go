package securewrap

import (
	"testing"

	"securewrap/core/ledger"
)

func TestWrapRequiresAmountAndBalance(t *testing.T) {
	f := newFixture(t)
	expectErr(t, f.engine.Wrap(alice, f.wrapped, 0), ErrInvalidTokenAmount)
	expectErr(t, f.engine.Wrap(alice, f.wrapped, 5), ledger.ErrInsufficientBalance)
	expectErr(t, f.engine.Wrap(alice, newTestAddress(0x77), 5), ErrMintPairNotFound)
}

func TestWrapUnwrapRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 1_000)
	if err := f.engine.Wrap(alice, f.wrapped, 1_000); err != nil {
		t.Fatalf("wrap: %v", err)
	}
	if f.originalBalance(alice) != 0 || f.wrappedBalance(alice) != 1_000 {
		t.Fatalf("unexpected balances after wrap")
	}
	report := f.requireHealthy()
	if report.WrappedSupply != 1_000 || report.CustodyOriginal != 1_000 {
		t.Fatalf("unexpected supply report %+v", report)
	}

	_, err := f.engine.RequestUnwrap(alice, f.wrapped, 0)
	expectErr(t, err, ErrInvalidTokenAmount)

	pending, err := f.engine.RequestUnwrap(alice, f.wrapped, 1_000)
	if err != nil {
		t.Fatalf("request unwrap: %v", err)
	}
	if pending.ReleaseTimestamp != testStart+MaxUnwrapDelaySeconds {
		t.Fatalf("unexpected release timestamp %d", pending.ReleaseTimestamp)
	}
	if f.wrappedBalance(alice) != 0 || f.wrappedBalance(CustodyAddress(f.wrapped)) != 1_000 {
		t.Fatalf("wrapped amount not escrowed")
	}
	f.requireHealthy()

	f.now = pending.ReleaseTimestamp - 1
	expectErr(t, f.engine.ReleaseUnwrap(alice, f.wrapped), ErrPrematurePendingUnwrap)

	f.now = pending.ReleaseTimestamp
	if err := f.engine.ReleaseUnwrap(alice, f.wrapped); err != nil {
		t.Fatalf("release: %v", err)
	}
	if f.originalBalance(alice) != 1_000 || f.wrappedBalance(alice) != 0 {
		t.Fatalf("round trip must restore the original balance")
	}
	report = f.requireHealthy()
	if report.WrappedSupply != 0 || report.CustodyOriginal != 0 {
		t.Fatalf("unexpected supply after release %+v", report)
	}
	_, err = f.engine.PendingUnwrap(f.wrapped, alice)
	expectErr(t, err, ErrPendingUnwrapNotInitialized)
	expectErr(t, f.engine.ReleaseUnwrap(alice, f.wrapped), ErrPendingUnwrapNotInitialized)
}

func TestSingleLivePendingUnwrap(t *testing.T) {
	f := newFixture(t)
	f.wrap(alice, 100)
	if _, err := f.engine.RequestUnwrap(alice, f.wrapped, 40); err != nil {
		t.Fatalf("request: %v", err)
	}
	_, err := f.engine.RequestUnwrap(alice, f.wrapped, 10)
	expectErr(t, err, ErrPendingUnwrapExists)
	if f.wrappedBalance(alice) != 60 {
		t.Fatalf("second request must not escrow funds")
	}
}

func TestUnwrapDelayIsSnapshotted(t *testing.T) {
	f := newFixture(t)
	f.wrap(alice, 100)
	pending, err := f.engine.RequestUnwrap(alice, f.wrapped, 100)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := f.engine.SetUnwrapDelay(testAuthority, 0); err != nil {
		t.Fatalf("set delay: %v", err)
	}
	f.now++
	expectErr(t, f.engine.ReleaseUnwrap(alice, f.wrapped), ErrPrematurePendingUnwrap)

	f.wrap(bob, 10)
	immediate, err := f.engine.RequestUnwrap(bob, f.wrapped, 10)
	if err != nil {
		t.Fatalf("request with zero delay: %v", err)
	}
	if immediate.ReleaseTimestamp != f.now {
		t.Fatalf("zero delay must release immediately, got %d", immediate.ReleaseTimestamp)
	}
	if err := f.engine.ReleaseUnwrap(bob, f.wrapped); err != nil {
		t.Fatalf("release with zero delay: %v", err)
	}
	f.now = pending.ReleaseTimestamp
	if err := f.engine.ReleaseUnwrap(alice, f.wrapped); err != nil {
		t.Fatalf("release: %v", err)
	}
	f.requireHealthy()
}

func TestUnwrapHaltBlocksRequestAndReleaseButNotCancel(t *testing.T) {
	f := newFixture(t)
	f.wrap(alice, 100)
	if _, err := f.engine.RequestUnwrap(alice, f.wrapped, 70); err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := f.engine.HaltUnwrap(testAuthority); err != nil {
		t.Fatalf("halt: %v", err)
	}
	_, err := f.engine.RequestUnwrap(alice, f.wrapped, 10)
	expectErr(t, err, ErrUnwrapHalted)
	f.now += MaxUnwrapDelaySeconds
	expectErr(t, f.engine.ReleaseUnwrap(alice, f.wrapped), ErrUnwrapHalted)

	if err := f.engine.CancelUnwrap(alice, f.wrapped); err != nil {
		t.Fatalf("cancel while halted: %v", err)
	}
	if f.wrappedBalance(alice) != 100 {
		t.Fatalf("cancel must return the escrow, got %d", f.wrappedBalance(alice))
	}
	expectErr(t, f.engine.CancelUnwrap(alice, f.wrapped), ErrPendingUnwrapNotInitialized)
	f.requireHealthy()
}

func TestReleaseRejectsFrozenAccounts(t *testing.T) {
	f := newFixture(t)
	f.wrap(alice, 100)
	pending, err := f.engine.RequestUnwrap(alice, f.wrapped, 50)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	f.now = pending.ReleaseTimestamp

	if err := f.ledger.Freeze(testOriginal, alice, testOriginalFreeze); err != nil {
		t.Fatalf("freeze original: %v", err)
	}
	expectErr(t, f.engine.ReleaseUnwrap(alice, f.wrapped), ErrUnwrapFrozenAccount)
	if err := f.ledger.Thaw(testOriginal, alice, testOriginalFreeze); err != nil {
		t.Fatalf("thaw original: %v", err)
	}

	if _, err := f.engine.Freeze(testAuthority, f.wrapped, alice, 60); err != nil {
		t.Fatalf("freeze wrapped: %v", err)
	}
	expectErr(t, f.engine.ReleaseUnwrap(alice, f.wrapped), ErrUnwrapFrozenAccount)
	expectErr(t, f.engine.CancelUnwrap(alice, f.wrapped), ledger.ErrAccountFrozen)

	f.now += 60
	if _, err := f.engine.Thaw(f.wrapped, alice); err != nil {
		t.Fatalf("thaw: %v", err)
	}
	if err := f.engine.ReleaseUnwrap(alice, f.wrapped); err != nil {
		t.Fatalf("release after thaw: %v", err)
	}
	if f.originalBalance(alice) != 50 {
		t.Fatalf("unexpected original balance %d", f.originalBalance(alice))
	}
}

func TestCancelUnwrapProgramRequiresPermanentFreeze(t *testing.T) {
	f := newFixture(t)
	f.wrap(alice, 1_000)
	if _, err := f.engine.RequestUnwrap(alice, f.wrapped, 300); err != nil {
		t.Fatalf("request: %v", err)
	}
	expectErr(t, f.engine.CancelUnwrapProgram(testAuthority, f.wrapped, alice), ErrProgramCancelUnwrap)
	expectErr(t, f.engine.CancelUnwrapProgram(testAuthority, f.wrapped, bob), ErrPendingUnwrapNotInitialized)

	f.permanentlyFreeze(alice)
	pair, _ := f.engine.MintPair(f.wrapped)
	if pair.PermanentlyFrozenTokenSupply != 700 {
		t.Fatalf("expected 700 permanently frozen, got %d", pair.PermanentlyFrozenTokenSupply)
	}

	if err := f.engine.CancelUnwrapProgram(testAuthority, f.wrapped, alice); err != nil {
		t.Fatalf("cancel program: %v", err)
	}
	if f.wrappedBalance(alice) != 1_000 || !f.wrappedFrozen(alice) {
		t.Fatalf("escrow must return into the still frozen account")
	}
	pair, _ = f.engine.MintPair(f.wrapped)
	if pair.PermanentlyFrozenTokenSupply != 1_000 {
		t.Fatalf("returned escrow must join the frozen supply, got %d", pair.PermanentlyFrozenTokenSupply)
	}
	_, err := f.engine.PendingUnwrap(f.wrapped, alice)
	expectErr(t, err, ErrPendingUnwrapNotInitialized)
	f.requireHealthy()
}

func (f *fixture) permanentlyFreeze(owner [20]byte) {
	f.t.Helper()
	if _, err := f.engine.Freeze(testAuthority, f.wrapped, owner, MaxFreezePeriodSeconds); err != nil {
		f.t.Fatalf("freeze: %v", err)
	}
	if err := f.ledger.Freeze(testOriginal, owner, testOriginalFreeze); err != nil {
		f.t.Fatalf("freeze original: %v", err)
	}
	if _, err := f.engine.PermanentFreeze(testAuthority, f.wrapped, owner); err != nil {
		f.t.Fatalf("permanent freeze: %v", err)
	}
}
