package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"securewrap/core"
	"securewrap/crypto"
	"securewrap/journal"
	"securewrap/native/securewrap"
)

func (s *Server) handleOperation(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, codeUnauthenticated, errMissingToken.Error())
		return
	}
	op, err := core.ParseOperation(chi.URLParam(r, "operation"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	var req core.Request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeFailure(w, fmt.Errorf("%w: decode body: %v", core.ErrInvalidRequest, err))
		return
	}
	receipt, err := s.node.Execute(r.Context(), op, caller, req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleGlobal(w http.ResponseWriter, r *http.Request) {
	view, err := s.node.GlobalState()
	respond(w, view, err)
}

func (s *Server) handlePairs(w http.ResponseWriter, r *http.Request) {
	views, err := s.node.MintPairs()
	respond(w, views, err)
}

func (s *Server) handlePair(w http.ResponseWriter, r *http.Request) {
	mint, ok := pathAddress(w, r, "mint")
	if !ok {
		return
	}
	view, err := s.node.MintPair(mint)
	respond(w, view, err)
}

func (s *Server) handleInvariants(w http.ResponseWriter, r *http.Request) {
	mint, ok := pathAddress(w, r, "mint")
	if !ok {
		return
	}
	view, err := s.node.Invariants(mint)
	respond(w, view, err)
}

func (s *Server) handleUserState(w http.ResponseWriter, r *http.Request) {
	mint, ok := pathAddress(w, r, "mint")
	if !ok {
		return
	}
	owner, ok := pathAddress(w, r, "owner")
	if !ok {
		return
	}
	view, err := s.node.UserTokenState(mint, owner)
	respond(w, view, err)
}

func (s *Server) handlePendingUnwrap(w http.ResponseWriter, r *http.Request) {
	mint, ok := pathAddress(w, r, "mint")
	if !ok {
		return
	}
	owner, ok := pathAddress(w, r, "owner")
	if !ok {
		return
	}
	view, err := s.node.PendingUnwrap(mint, owner)
	respond(w, view, err)
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	mint, ok := pathAddress(w, r, "mint")
	if !ok {
		return
	}
	owner, ok := pathAddress(w, r, "owner")
	if !ok {
		return
	}
	side, err := securewrap.ParseSide(chi.URLParam(r, "side"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	view, err := s.node.Order(mint, owner, side)
	respond(w, view, err)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	mint, ok := pathAddress(w, r, "mint")
	if !ok {
		return
	}
	owner, ok := pathAddress(w, r, "owner")
	if !ok {
		return
	}
	view, err := s.node.Account(mint, owner)
	respond(w, view, err)
}

// JournalEntry is the API form of a journaled operation.
type JournalEntry struct {
	ID        string      `json:"id"`
	Sequence  uint64      `json:"sequence"`
	Operation string      `json:"operation"`
	Caller    string      `json:"caller"`
	Mint      string      `json:"mint,omitempty"`
	Code      string      `json:"code,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp int64       `json:"timestamp"`
	Events    interface{} `json:"events"`
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, codeNotFound, "journal not configured")
		return
	}
	query := r.URL.Query()
	filter := journal.Filter{
		Mint:      strings.TrimSpace(query.Get("mint")),
		Caller:    strings.TrimSpace(query.Get("caller")),
		Operation: strings.TrimSpace(query.Get("operation")),
	}
	if raw := strings.TrimSpace(query.Get("after")); raw != "" {
		after, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, "InvalidRequest", fmt.Sprintf("invalid after %q", raw))
			return
		}
		filter.AfterSequence = after
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, "InvalidRequest", fmt.Sprintf("invalid limit %q", raw))
			return
		}
		filter.Limit = limit
	}
	entries, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("journal list failed", "error", err)
		writeFailure(w, err)
		return
	}
	out := make([]JournalEntry, 0, len(entries))
	for i := range entries {
		entry := &entries[i]
		events, err := entry.DecodedEvents()
		if err != nil {
			writeFailure(w, err)
			return
		}
		out = append(out, JournalEntry{
			ID:        entry.ID.String(),
			Sequence:  entry.Sequence,
			Operation: entry.Operation,
			Caller:    entry.Caller,
			Mint:      entry.Mint,
			Code:      entry.Code,
			Message:   entry.Message,
			Timestamp: entry.Timestamp,
			Events:    events,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func respond(w http.ResponseWriter, payload interface{}, err error) {
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func pathAddress(w http.ResponseWriter, r *http.Request, name string) ([20]byte, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	addr, err := crypto.ParseRaw(raw)
	if err != nil {
		writeError(w, "InvalidRequest", fmt.Sprintf("invalid %s %q: %v", name, raw, err))
		return [20]byte{}, false
	}
	return addr, true
}
