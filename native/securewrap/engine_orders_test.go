package securewrap

import (
	"errors"
	"testing"

	"securewrap/core/ledger"
)

func TestOrderDiscountDirection(t *testing.T) {
	f := newFixture(t)
	f.wrap(alice, 1_000)
	f.fund(alice, 1_000)

	cases := []struct {
		name     string
		side     Side
		in, out  uint64
		expected error
	}{
		{"unwrap inverted", SideUnwrap, 90, 100, ErrInvalidOrderAmount},
		{"unwrap equal", SideUnwrap, 100, 100, ErrInvalidOrderAmount},
		{"wrap inverted", SideWrap, 100, 90, ErrInvalidOrderAmount},
		{"no side", SideNone, 100, 90, ErrOrderSideInvalid},
		{"zero in", SideUnwrap, 0, 90, ErrInvalidTokenAmount},
		{"zero out", SideWrap, 90, 0, ErrInvalidTokenAmount},
	}
	for _, tc := range cases {
		_, err := f.engine.PlaceOrder(alice, f.wrapped, tc.side, tc.in, tc.out)
		if !errors.Is(err, tc.expected) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.expected, err)
		}
	}

	if _, err := f.engine.PlaceOrder(alice, f.wrapped, SideUnwrap, 100, 90); err != nil {
		t.Fatalf("unwrap order: %v", err)
	}
	if _, err := f.engine.PlaceOrder(alice, f.wrapped, SideWrap, 90, 100); err != nil {
		t.Fatalf("wrap order: %v", err)
	}
	_, err := f.engine.PlaceOrder(alice, f.wrapped, SideUnwrap, 50, 40)
	expectErr(t, err, ErrOrderExists)

	if f.wrappedBalance(alice) != 900 || f.originalBalance(alice) != 910 {
		t.Fatalf("unexpected escrow: wrapped=%d original=%d", f.wrappedBalance(alice), f.originalBalance(alice))
	}
	report := f.requireHealthy()
	if report.OrderEscrowedOriginal != 90 {
		t.Fatalf("wrap order escrow not tracked, got %d", report.OrderEscrowedOriginal)
	}
}

func TestUnwrapOrderFillScenario(t *testing.T) {
	f := newFixture(t)
	f.wrap(alice, 1_000)
	if _, err := f.engine.PlaceOrder(alice, f.wrapped, SideUnwrap, 1_000, 950); err != nil {
		t.Fatalf("place: %v", err)
	}
	f.fund(bob, 950)

	order, err := f.engine.FillOrder(bob, f.wrapped, alice, SideUnwrap)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if order.AmountIn != 1_000 || order.AmountOut != 950 {
		t.Fatalf("unexpected filled order %+v", order)
	}
	if f.originalBalance(bob) != 0 || f.wrappedBalance(bob) != 1_000 {
		t.Fatalf("unexpected filler balances original=%d wrapped=%d", f.originalBalance(bob), f.wrappedBalance(bob))
	}
	if f.originalBalance(alice) != 950 || f.wrappedBalance(alice) != 0 {
		t.Fatalf("unexpected maker balances")
	}
	_, err = f.engine.Order(f.wrapped, alice, SideUnwrap)
	expectErr(t, err, ErrOrderNotFound)
	_, err = f.engine.FillOrder(bob, f.wrapped, alice, SideUnwrap)
	expectErr(t, err, ErrOrderNotFound)
	f.requireHealthy()
}

func TestWrapOrderFillAndCancel(t *testing.T) {
	f := newFixture(t)
	f.fund(alice, 180)
	if _, err := f.engine.PlaceOrder(alice, f.wrapped, SideWrap, 90, 100); err != nil {
		t.Fatalf("place: %v", err)
	}
	f.requireHealthy()
	f.wrap(bob, 100)

	if _, err := f.engine.FillOrder(bob, f.wrapped, alice, SideWrap); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if f.wrappedBalance(alice) != 100 || f.originalBalance(alice) != 90 {
		t.Fatalf("unexpected maker balances")
	}
	if f.originalBalance(bob) != 90 || f.wrappedBalance(bob) != 0 {
		t.Fatalf("unexpected filler balances")
	}
	report := f.requireHealthy()
	if report.OrderEscrowedOriginal != 0 || report.WrappedSupply != 100 || report.CustodyOriginal != 100 {
		t.Fatalf("unexpected report %+v", report)
	}

	if _, err := f.engine.PlaceOrder(alice, f.wrapped, SideWrap, 90, 95); err != nil {
		t.Fatalf("place again: %v", err)
	}
	if err := f.engine.CancelOrder(alice, f.wrapped, SideWrap); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if f.originalBalance(alice) != 90 {
		t.Fatalf("cancel must return the escrow")
	}
	expectErr(t, f.engine.CancelOrder(alice, f.wrapped, SideWrap), ErrOrderNotFound)
	expectErr(t, f.engine.CancelOrder(alice, f.wrapped, SideNone), ErrOrderSideInvalid)
	f.requireHealthy()
}

func TestOrderCircuitBreakers(t *testing.T) {
	f := newFixture(t)
	f.wrap(alice, 1_000)
	f.fund(alice, 1_000)
	f.fund(bob, 1_000)

	if _, err := f.engine.PlaceOrder(alice, f.wrapped, SideWrap, 10, 20); err != nil {
		t.Fatalf("wrap order: %v", err)
	}
	if err := f.engine.HaltOrders(testAuthority); err != nil {
		t.Fatalf("halt: %v", err)
	}
	_, err := f.engine.PlaceOrder(alice, f.wrapped, SideUnwrap, 100, 90)
	expectErr(t, err, ErrOrdersHalted)
	_, err = f.engine.FillOrder(bob, f.wrapped, alice, SideWrap)
	expectErr(t, err, ErrOrdersHalted)
	if err := f.engine.CancelOrder(alice, f.wrapped, SideWrap); err != nil {
		t.Fatalf("cancel must not be gated: %v", err)
	}
	if err := f.engine.ResumeOrders(testAuthority); err != nil {
		t.Fatalf("resume: %v", err)
	}

	if _, err := f.engine.PlaceOrder(alice, f.wrapped, SideWrap, 10, 20); err != nil {
		t.Fatalf("wrap order: %v", err)
	}
	if err := f.engine.HaltWrapOrders(testAuthority); err != nil {
		t.Fatalf("halt wrap: %v", err)
	}
	_, err = f.engine.FillOrder(bob, f.wrapped, alice, SideWrap)
	expectErr(t, err, ErrWrapOrdersHalted)
	if _, err := f.engine.PlaceOrder(alice, f.wrapped, SideUnwrap, 100, 90); err != nil {
		t.Fatalf("unwrap orders must stay open: %v", err)
	}
	if _, err := f.engine.FillOrder(bob, f.wrapped, alice, SideUnwrap); err != nil {
		t.Fatalf("unwrap fill: %v", err)
	}
}

func TestFrozenMakerCannotTrade(t *testing.T) {
	f := newFixture(t)
	f.wrap(alice, 1_000)
	f.fund(bob, 1_000)
	if _, err := f.engine.PlaceOrder(alice, f.wrapped, SideUnwrap, 100, 90); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := f.ledger.Freeze(testOriginal, alice, testOriginalFreeze); err != nil {
		t.Fatalf("freeze original: %v", err)
	}
	_, err := f.engine.FillOrder(bob, f.wrapped, alice, SideUnwrap)
	expectErr(t, err, ErrFillOrderFrozenAccount)
	_, err = f.engine.PlaceOrder(alice, f.wrapped, SideUnwrap, 50, 40)
	expectErr(t, err, ErrFillOrderFrozenAccount)

	if err := f.ledger.Thaw(testOriginal, alice, testOriginalFreeze); err != nil {
		t.Fatalf("thaw original: %v", err)
	}
	if _, err := f.engine.Freeze(testAuthority, f.wrapped, alice, 60); err != nil {
		t.Fatalf("freeze wrapped: %v", err)
	}
	_, err = f.engine.FillOrder(bob, f.wrapped, alice, SideUnwrap)
	expectErr(t, err, ErrFillOrderFrozenAccount)
	expectErr(t, f.engine.CancelOrder(alice, f.wrapped, SideUnwrap), ledger.ErrAccountFrozen)
}

func TestFillOrderProgram(t *testing.T) {
	f := newFixture(t)
	f.wrap(alice, 1_000)
	f.fund(bob, 100)
	if _, err := f.engine.PlaceOrder(alice, f.wrapped, SideUnwrap, 1_000, 950); err != nil {
		t.Fatalf("place unwrap: %v", err)
	}
	if _, err := f.engine.PlaceOrder(bob, f.wrapped, SideWrap, 50, 60); err != nil {
		t.Fatalf("place wrap: %v", err)
	}
	_, err := f.engine.FillOrderProgram(testAuthority, f.wrapped, bob, carol, SideWrap)
	expectErr(t, err, ErrProgramCannotFillWrapOrders)

	if _, err := f.engine.FillOrderProgram(testAuthority, f.wrapped, alice, carol, SideUnwrap); err != nil {
		t.Fatalf("program fill: %v", err)
	}
	if f.originalBalance(alice) != 950 {
		t.Fatalf("maker must receive amount out, got %d", f.originalBalance(alice))
	}
	if f.wrappedBalance(carol) != 50 {
		t.Fatalf("credit account must receive the spread, got %d", f.wrappedBalance(carol))
	}
	report := f.requireHealthy()
	if report.WrappedSupply != 50 || report.CustodyOriginal != 100 || report.OrderEscrowedOriginal != 50 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestCancelOrderProgram(t *testing.T) {
	f := newFixture(t)
	f.wrap(alice, 1_000)
	f.fund(alice, 100)
	if _, err := f.engine.PlaceOrder(alice, f.wrapped, SideUnwrap, 200, 150); err != nil {
		t.Fatalf("place unwrap: %v", err)
	}
	if _, err := f.engine.PlaceOrder(alice, f.wrapped, SideWrap, 50, 60); err != nil {
		t.Fatalf("place wrap: %v", err)
	}
	expectErr(t, f.engine.CancelOrderProgram(testAuthority, f.wrapped, alice, SideUnwrap), ErrProgramCancelOrder)

	// The failure kind precedes the order lookup.
	expectErr(t, f.engine.CancelOrderProgram(testAuthority, f.wrapped, bob, SideWrap), ErrProgramCancelOrder)
	expectErr(t, f.engine.CancelOrderProgram(testAuthority, f.wrapped, bob, SideUnwrap), ErrProgramCancelOrder)

	f.permanentlyFreeze(alice)
	expectErr(t, f.engine.CancelOrderProgram(testAuthority, f.wrapped, alice, SideWrap), ErrProgramCancelOrder)

	if err := f.engine.CancelOrderProgram(testAuthority, f.wrapped, alice, SideUnwrap); err != nil {
		t.Fatalf("cancel program: %v", err)
	}
	if f.wrappedBalance(alice) != 1_000 || !f.wrappedFrozen(alice) {
		t.Fatalf("escrow must return into the frozen account")
	}
	pair, _ := f.engine.MintPair(f.wrapped)
	if pair.PermanentlyFrozenTokenSupply != 1_000 {
		t.Fatalf("unexpected permanently frozen supply %d", pair.PermanentlyFrozenTokenSupply)
	}
	expectErr(t, f.engine.CancelOrderProgram(testAuthority, f.wrapped, alice, SideUnwrap), ErrOrderNotFound)
	f.requireHealthy()
}
