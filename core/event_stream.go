package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"securewrap/core/types"
)

const streamHistoryLimit = 2048

// StreamEvent is one committed event as delivered to subscribers.
type StreamEvent struct {
	Sequence          uint64       `json:"sequence"`
	Cursor            string       `json:"cursor"`
	OperationSequence uint64       `json:"operation_sequence"`
	Operation         Operation    `json:"operation"`
	Timestamp         int64        `json:"timestamp"`
	Event             *types.Event `json:"event"`
}

func cloneStreamEvent(evt StreamEvent) StreamEvent {
	cloned := evt
	cloned.Event = evt.Event.Clone()
	return cloned
}

// publish fans the events of a committed receipt out to subscribers. Slow
// subscribers drop events rather than block execution; the bounded history
// lets them resume from a cursor.
func (n *Node) publish(receipt *Receipt) {
	if n == nil || receipt == nil || len(receipt.Events) == 0 {
		return
	}
	n.streamMu.Lock()
	if n.streamSubs == nil {
		n.streamSubs = make(map[uint64]chan StreamEvent)
	}
	batch := make([]StreamEvent, 0, len(receipt.Events))
	for _, evt := range receipt.Events {
		n.streamSeq++
		entry := StreamEvent{
			Sequence:          n.streamSeq,
			Cursor:            strconv.FormatUint(n.streamSeq, 10),
			OperationSequence: receipt.Sequence,
			Operation:         receipt.Operation,
			Timestamp:         receipt.Timestamp,
			Event:             evt.Clone(),
		}
		batch = append(batch, entry)
		n.streamHistory = append(n.streamHistory, cloneStreamEvent(entry))
	}
	if len(n.streamHistory) > streamHistoryLimit {
		excess := len(n.streamHistory) - streamHistoryLimit
		trimmed := make([]StreamEvent, streamHistoryLimit)
		copy(trimmed, n.streamHistory[excess:])
		n.streamHistory = trimmed
	}
	subscribers := make([]chan StreamEvent, 0, len(n.streamSubs))
	for _, ch := range n.streamSubs {
		subscribers = append(subscribers, ch)
	}
	// Delivery happens under the lock so cancel cannot close a channel
	// mid-send.
	for _, entry := range batch {
		for _, ch := range subscribers {
			select {
			case ch <- cloneStreamEvent(entry):
			default:
			}
		}
	}
	n.streamMu.Unlock()
}

// Subscribe registers a subscriber for committed events after cursor. The
// backlog holds retained events newer than cursor; cancel releases the
// subscription and closes the channel.
func (n *Node) Subscribe(ctx context.Context, cursor string) (<-chan StreamEvent, func(), []StreamEvent, error) {
	if n == nil {
		return nil, nil, nil, fmt.Errorf("node not initialised")
	}
	updates := make(chan StreamEvent, 64)

	var since uint64
	if trimmed := strings.TrimSpace(cursor); trimmed != "" {
		parsed, err := strconv.ParseUint(trimmed, 10, 64)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: cursor: %v", ErrInvalidRequest, err)
		}
		since = parsed
	}

	n.streamMu.Lock()
	if n.streamSubs == nil {
		n.streamSubs = make(map[uint64]chan StreamEvent)
	}
	id := n.streamNextID
	n.streamNextID++
	n.streamSubs[id] = updates
	backlog := make([]StreamEvent, 0, len(n.streamHistory))
	for _, entry := range n.streamHistory {
		if entry.Sequence > since {
			backlog = append(backlog, cloneStreamEvent(entry))
		}
	}
	n.streamMu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			close(done)
			n.streamMu.Lock()
			if sub, ok := n.streamSubs[id]; ok {
				delete(n.streamSubs, id)
				close(sub)
			}
			n.streamMu.Unlock()
		})
	}

	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-done:
			}
		}()
	}

	return updates, cancel, backlog, nil
}
