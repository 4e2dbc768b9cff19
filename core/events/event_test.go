package events

import (
	"testing"

	"securewrap/core/types"
)

func TestBufferClonesPayloads(t *testing.T) {
	var buf Buffer
	payload := &types.Event{Type: "securewrap.wrapped", Attributes: map[string]string{"amount": "10"}}
	buf.Emit(Typed{Payload: payload})
	buf.Emit(Typed{})
	payload.Attributes["amount"] = "99"

	got := buf.Events()
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Attribute("amount") != "10" {
		t.Fatalf("buffer must keep a snapshot, got %s", got[0].Attribute("amount"))
	}
	buf.Reset()
	if len(buf.Events()) != 0 {
		t.Fatalf("expected reset buffer to be empty")
	}
}
