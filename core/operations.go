package core

import (
	"fmt"
	"strings"

	"securewrap/crypto"
	"securewrap/native/securewrap"
)

// Operation names one state-changing request.
type Operation string

const (
	OpInitialize              Operation = "initialize"
	OpCreateMintPair          Operation = "create_mint_pair"
	OpWrap                    Operation = "wrap"
	OpUnwrapRequest           Operation = "unwrap_request"
	OpUnwrapRelease           Operation = "unwrap_release"
	OpUnwrapCancel            Operation = "unwrap_cancel"
	OpUnwrapCancelProgram     Operation = "unwrap_cancel_program"
	OpFreeze                  Operation = "freeze"
	OpThaw                    Operation = "thaw"
	OpImmediateThaw           Operation = "immediate_thaw"
	OpPermanentFreeze         Operation = "permanent_freeze"
	OpRedistributeFrozenFunds Operation = "redistribute_frozen_funds"
	OpPlaceOrder              Operation = "place_order"
	OpFillOrder               Operation = "fill_order"
	OpFillOrderProgram        Operation = "fill_order_program"
	OpCancelOrder             Operation = "cancel_order"
	OpCancelOrderProgram      Operation = "cancel_order_program"
	OpHaltOrders              Operation = "halt_orders"
	OpResumeOrders            Operation = "resume_orders"
	OpHaltWrapOrders          Operation = "halt_wrap_orders"
	OpResumeWrapOrders        Operation = "resume_wrap_orders"
	OpHaltUnwrap              Operation = "halt_unwrap"
	OpResumeUnwrap            Operation = "resume_unwrap"
	OpSetUnwrapDelay          Operation = "set_unwrap_delay"
	OpLedgerTransfer          Operation = "ledger_transfer"
	OpLedgerFreeze            Operation = "ledger_freeze"
	OpLedgerThaw              Operation = "ledger_thaw"

	opGenesis Operation = "genesis"
)

var operations = []Operation{
	OpInitialize, OpCreateMintPair, OpWrap, OpUnwrapRequest, OpUnwrapRelease,
	OpUnwrapCancel, OpUnwrapCancelProgram, OpFreeze, OpThaw, OpImmediateThaw,
	OpPermanentFreeze, OpRedistributeFrozenFunds, OpPlaceOrder, OpFillOrder,
	OpFillOrderProgram, OpCancelOrder, OpCancelOrderProgram, OpHaltOrders,
	OpResumeOrders, OpHaltWrapOrders, OpResumeWrapOrders, OpHaltUnwrap,
	OpResumeUnwrap, OpSetUnwrapDelay, OpLedgerTransfer, OpLedgerFreeze,
	OpLedgerThaw,
}

// Operations lists every operation accepted by Execute.
func Operations() []Operation { return append([]Operation(nil), operations...) }

// ParseOperation matches raw case-insensitively against the known operations.
func ParseOperation(raw string) (Operation, error) {
	normalized := Operation(strings.ToLower(strings.TrimSpace(raw)))
	for _, op := range operations {
		if op == normalized {
			return op, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOperation, raw)
}

// Request carries the arguments of an operation. Addresses are bech32 text;
// fields an operation does not use are ignored.
type Request struct {
	Mint          string `json:"mint,omitempty"`
	Original      string `json:"original,omitempty"`
	Owner         string `json:"owner,omitempty"`
	Maker         string `json:"maker,omitempty"`
	Receiver      string `json:"receiver,omitempty"`
	Credit        string `json:"credit,omitempty"`
	Side          string `json:"side,omitempty"`
	Amount        uint64 `json:"amount,omitempty"`
	AmountIn      uint64 `json:"amount_in,omitempty"`
	AmountOut     uint64 `json:"amount_out,omitempty"`
	PeriodSeconds uint64 `json:"period_seconds,omitempty"`
	Seconds       uint64 `json:"seconds,omitempty"`
}

func parseField(name, raw string) ([20]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return [20]byte{}, fmt.Errorf("%w: %s required", ErrInvalidRequest, name)
	}
	addr, err := crypto.ParseRaw(trimmed)
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %s: %v", ErrInvalidRequest, name, err)
	}
	return addr, nil
}

// args resolves the address fields of a request once, recording the first
// parse failure.
type args struct {
	req *Request
	err error
}

func (a *args) addr(name, raw string) [20]byte {
	if a.err != nil {
		return [20]byte{}
	}
	addr, err := parseField(name, raw)
	if err != nil {
		a.err = err
	}
	return addr
}

// ownerOr parses owner, falling back to fallback when it is omitted.
func (a *args) ownerOr(fallback [20]byte) [20]byte {
	if strings.TrimSpace(a.req.Owner) == "" {
		return fallback
	}
	return a.addr("owner", a.req.Owner)
}

func (a *args) side() securewrap.Side {
	if a.err != nil {
		return securewrap.SideNone
	}
	side, err := securewrap.ParseSide(a.req.Side)
	if err != nil {
		a.err = err
	}
	return side
}
