package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"securewrap/core/events"
	"securewrap/core/ledger"
	"securewrap/core/state"
	"securewrap/core/types"
	"securewrap/crypto"
	"securewrap/journal"
	"securewrap/native/securewrap"
	"securewrap/observability/metrics"
	"securewrap/observability/otel"
	"securewrap/storage"
)

// Journal durably records executed operations.
type Journal interface {
	Append(ctx context.Context, entry *journal.Entry) error
	LastSequence(ctx context.Context) (uint64, error)
}

// Node orders operations, runs each one against a write overlay and commits
// it atomically. Events are released to subscribers only after commit.
type Node struct {
	state   *state.Manager
	engine  *securewrap.Engine
	journal Journal
	logger  *slog.Logger
	metrics *metrics.EngineMetrics
	clock   func() time.Time

	execMu   sync.RWMutex
	sequence uint64

	streamMu      sync.Mutex
	streamSubs    map[uint64]chan StreamEvent
	streamNextID  uint64
	streamSeq     uint64
	streamHistory []StreamEvent
}

// Option customises a Node.
type Option func(*Node)

func WithJournal(j Journal) Option { return func(n *Node) { n.journal = j } }

func WithLogger(l *slog.Logger) Option {
	return func(n *Node) {
		if l != nil {
			n.logger = l
		}
	}
}

func WithMetrics(m *metrics.EngineMetrics) Option { return func(n *Node) { n.metrics = m } }

// WithClock overrides the wall clock. The clock is read once per operation.
func WithClock(clock func() time.Time) Option {
	return func(n *Node) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// Receipt describes one committed operation.
type Receipt struct {
	ID        uuid.UUID      `json:"id"`
	Sequence  uint64         `json:"sequence"`
	Operation Operation      `json:"operation"`
	Caller    string         `json:"caller"`
	Timestamp int64          `json:"timestamp"`
	Events    []*types.Event `json:"events"`
	Result    any            `json:"result,omitempty"`
}

func NewNode(db storage.Database, opts ...Option) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database must not be nil")
	}
	n := &Node{
		state:  state.NewManager(db),
		engine: securewrap.NewEngine(),
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	if err := n.state.View(func(tx *state.Tx) error {
		seq, err := tx.SequenceGet()
		n.sequence = seq
		return err
	}); err != nil {
		return nil, fmt.Errorf("core: load sequence: %w", err)
	}
	if n.journal != nil {
		last, err := n.journal.LastSequence(context.Background())
		if err != nil {
			return nil, err
		}
		if last > n.sequence {
			n.sequence = last
		}
	}
	return n, nil
}

// Sequence returns the number of operations admitted so far, failed ones
// included.
func (n *Node) Sequence() uint64 {
	n.execMu.RLock()
	defer n.execMu.RUnlock()
	return n.sequence
}

// execution binds the engine and ledger to one overlay.
type execution struct {
	tx      *state.Tx
	engine  *securewrap.Engine
	ledger  *ledger.Ledger
	events  *events.Buffer
	touched map[[20]byte]struct{}
	reports map[[20]byte]*securewrap.SupplyReport
}

func (n *Node) bind(tx *state.Tx, now int64) *execution {
	x := &execution{
		tx:      tx,
		engine:  n.engine,
		ledger:  ledger.New(tx),
		events:  &events.Buffer{},
		touched: make(map[[20]byte]struct{}),
	}
	x.engine.SetState(tx)
	x.engine.SetLedger(x.ledger)
	x.engine.SetEmitter(x.events)
	x.engine.SetNowFunc(func() int64 { return now })
	return x
}

func (x *execution) touch(mints ...[20]byte) {
	for _, mint := range mints {
		x.touched[mint] = struct{}{}
	}
}

// checkSupply evaluates every touched pair before commit. A violated identity
// aborts the operation.
func (x *execution) checkSupply() error {
	x.reports = make(map[[20]byte]*securewrap.SupplyReport, len(x.touched))
	for mint := range x.touched {
		if _, ok, err := x.tx.MintPairGet(mint); err != nil {
			return err
		} else if !ok {
			continue
		}
		report, err := x.engine.CheckInvariants(mint)
		if err != nil {
			return err
		}
		if !report.Healthy() {
			return fmt.Errorf("%w: %v", ErrSupplyViolation, report.Err())
		}
		x.reports[mint] = report
	}
	return nil
}

// Execute runs op on behalf of caller as one atomic step. The returned
// receipt carries the committed events; on failure nothing is written except
// the consumed sequence number.
func (n *Node) Execute(ctx context.Context, op Operation, caller [20]byte, req Request) (*Receipt, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := ParseOperation(string(op)); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started := time.Now()
	ctx, finish := otel.StartOperation(ctx, string(op), crypto.Format(caller))

	n.execMu.Lock()
	receipt, err := n.execute(ctx, op, caller, &req)
	n.execMu.Unlock()

	code := ErrorCode(err)
	finish(code, err)
	n.metrics.ObserveOperation(string(op), code, time.Since(started))
	n.logOperation(receipt, mintOf(&req), code, err, time.Since(started))
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func mintOf(req *Request) string {
	if req.Mint != "" {
		return req.Mint
	}
	return req.Original
}

func (n *Node) execute(ctx context.Context, op Operation, caller [20]byte, req *Request) (*Receipt, error) {
	now := n.clock().Unix()
	seq := n.sequence + 1
	receipt := &Receipt{
		ID:        uuid.New(),
		Sequence:  seq,
		Operation: op,
		Caller:    crypto.Format(caller),
		Timestamp: now,
	}

	tx := n.state.Begin()
	x := n.bind(tx, now)
	result, err := x.run(op, caller, req)
	if err == nil {
		err = n.commit(x, seq)
	}
	if err != nil {
		tx.Discard()
		n.advanceAfterFailure(seq)
		n.appendJournal(ctx, receipt, mintOf(req), err)
		return receipt, err
	}
	n.sequence = seq
	receipt.Events = x.events.Events()
	receipt.Result = result
	n.afterCommit(ctx, receipt, mintOf(req), x)
	return receipt, nil
}

func (n *Node) commit(x *execution, seq uint64) error {
	if err := x.checkSupply(); err != nil {
		return err
	}
	if err := x.tx.SequencePut(seq); err != nil {
		return err
	}
	return x.tx.Commit()
}

// advanceAfterFailure keeps failed operations in the sequence so journal
// entries stay unique.
func (n *Node) advanceAfterFailure(seq uint64) {
	n.sequence = seq
	if err := n.state.Update(func(tx *state.Tx) error { return tx.SequencePut(seq) }); err != nil {
		n.logger.Error("persist sequence", slog.Uint64("sequence", seq), slog.String("error", err.Error()))
	}
}

func (n *Node) afterCommit(ctx context.Context, receipt *Receipt, mint string, x *execution) {
	for _, evt := range receipt.Events {
		n.metrics.RecordEvent(evt.Type)
	}
	n.publish(receipt)
	for wrapped, report := range x.reports {
		n.metrics.SetSupply(crypto.Format(wrapped), metrics.Supply{
			WrappedSupply:     report.WrappedSupply,
			CustodyOriginal:   report.CustodyOriginal,
			OrderEscrowed:     report.OrderEscrowedOriginal,
			PermanentlyFrozen: report.PermanentlyFrozenTokenSupply,
			Redistributed:     report.RedistributedTokenSupply,
			Healthy:           report.Healthy(),
		})
	}
	n.appendJournal(ctx, receipt, mint, nil)
}

func (n *Node) appendJournal(ctx context.Context, receipt *Receipt, mint string, opErr error) {
	if n.journal == nil || receipt == nil {
		return
	}
	entry := &journal.Entry{
		ID:        receipt.ID,
		Sequence:  receipt.Sequence,
		Operation: string(receipt.Operation),
		Caller:    receipt.Caller,
		Mint:      mint,
		Timestamp: receipt.Timestamp,
	}
	if opErr != nil {
		entry.Code = ErrorCode(opErr)
		entry.Message = opErr.Error()
	}
	if err := entry.SetEvents(receipt.Events); err != nil {
		n.logger.Error("journal encode", slog.Uint64("sequence", receipt.Sequence), slog.String("error", err.Error()))
		return
	}
	// The operation is already decided; a journal failure is logged only.
	if err := n.journal.Append(context.WithoutCancel(ctx), entry); err != nil {
		n.logger.Error("journal append", slog.Uint64("sequence", receipt.Sequence), slog.String("error", err.Error()))
	}
}

func (n *Node) logOperation(receipt *Receipt, mint, code string, err error, elapsed time.Duration) {
	if receipt == nil {
		return
	}
	attrs := []any{
		slog.String("operation", string(receipt.Operation)),
		slog.String("caller", receipt.Caller),
		slog.Uint64("sequence", receipt.Sequence),
		slog.Duration("duration", elapsed),
	}
	if mint != "" {
		attrs = append(attrs, slog.String("mint", mint))
	}
	if err == nil {
		n.logger.Info("operation committed", attrs...)
		return
	}
	attrs = append(attrs, slog.String("code", code), slog.String("error", err.Error()))
	if code == CodeInternal || errors.Is(err, ErrSupplyViolation) {
		n.logger.Error("operation failed", attrs...)
		return
	}
	n.logger.Warn("operation rejected", attrs...)
}
