package whatsapp

import (
	"fmt"
	"testing"

	"github.com/mamadbah2/pondwatch/pkg/clients/anthropic"
)

func TestSessionManagerCapsHistory(t *testing.T) {
	sm := NewSessionManager(4)
	for i := range 3 {
		sm.Append("u1", anthropic.User(fmt.Sprintf("q%d", i)), anthropic.Assistant(fmt.Sprintf("a%d", i)))
	}

	got := sm.History("u1")
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[0].Role != "user" || got[0].Content != "q1" {
		t.Errorf("oldest kept = %+v, want q1", got[0])
	}
}

func TestSessionManagerStartsWithUserTurn(t *testing.T) {
	sm := NewSessionManager(3)
	sm.Append("u1", anthropic.User("q0"), anthropic.Assistant("a0"), anthropic.User("q1"), anthropic.Assistant("a1"))

	got := sm.History("u1")
	if len(got) != 2 || got[0].Content != "q1" {
		t.Errorf("history = %+v, want [q1 a1]", got)
	}
}

func TestSessionManagerHistoryIsACopy(t *testing.T) {
	sm := NewSessionManager(0)
	sm.Append("u1", anthropic.User("q0"))

	h := sm.History("u1")
	h[0].Content = "changed"
	if sm.History("u1")[0].Content != "q0" {
		t.Error("History leaked the internal slice")
	}

	sm.ClearSession("u1")
	if len(sm.History("u1")) != 0 {
		t.Error("ClearSession kept messages")
	}
	if len(sm.History("nobody")) != 0 {
		t.Error("unknown user has history")
	}
}
