package state

// Tx buffers the writes of one operation. Reads see the buffered writes on
// top of the committed state. Nothing reaches the database until Commit; a
// discarded Tx leaves no trace.
//
// Tx satisfies ledger.KV and the securewrap engine's record store.
type Tx struct {
	mgr    *Manager
	writes map[string][]byte
	done   bool
}

// Get returns the value under key, or nil when absent.
func (tx *Tx) Get(key []byte) ([]byte, error) {
	if tx.done {
		return nil, errClosedTx
	}
	if value, ok := tx.writes[string(key)]; ok {
		if value == nil {
			return nil, nil
		}
		return append([]byte(nil), value...), nil
	}
	return tx.mgr.get(key)
}

// Put buffers a write.
func (tx *Tx) Put(key, value []byte) error {
	if tx.done {
		return errClosedTx
	}
	if value == nil {
		value = []byte{}
	}
	tx.writes[string(key)] = append([]byte{}, value...)
	return nil
}

// Delete buffers a removal.
func (tx *Tx) Delete(key []byte) error {
	if tx.done {
		return errClosedTx
	}
	tx.writes[string(key)] = nil
	return nil
}

// Pending reports the number of buffered writes.
func (tx *Tx) Pending() int { return len(tx.writes) }

// Commit writes every buffered change in one atomic batch.
func (tx *Tx) Commit() error {
	if tx.done {
		return errClosedTx
	}
	tx.done = true
	writes := tx.writes
	tx.writes = nil
	return tx.mgr.apply(writes)
}

// Discard drops the buffered changes. It is safe to call after Commit.
func (tx *Tx) Discard() {
	tx.done = true
	tx.writes = nil
}
