package room

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/devroom-hq/devroom/internal/ai"
	"github.com/devroom-hq/devroom/internal/filetree"
	"github.com/devroom-hq/devroom/internal/message"
	"github.com/devroom-hq/devroom/internal/models"
)

type stubInvoker struct {
	prompts chan string
	result  message.StructuredResult
	err     error
}

func (s *stubInvoker) Invoke(ctx context.Context, prompt string) (message.StructuredResult, error) {
	s.prompts <- prompt
	return s.result, s.err
}

type stubLog struct {
	saved chan *models.Message
}

func (s *stubLog) SaveMessage(ctx context.Context, msg *models.Message) error {
	s.saved <- msg
	return nil
}

func recvEvent(t *testing.T, m *Member) message.ChatEvent {
	t.Helper()
	select {
	case ev := <-m.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return message.ChatEvent{}
	}
}

func assertNoEvent(t *testing.T, m *Member) {
	t.Helper()
	select {
	case ev := <-m.Events():
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func newTestRegistry(inv Invoker) *Registry {
	return NewRegistry(Options{AI: inv, Logger: zerolog.Nop()})
}

func TestHumanRelayExcludesSender(t *testing.T) {
	reg := newTestRegistry(nil)

	a := reg.Join("p1", "u-a", "a@example.com")
	b := reg.Join("p1", "u-b", "b@example.com")
	c := reg.Join("p1", "u-c", "c@example.com")

	a.Room().HandleInbound(a, "hello everyone")

	for _, m := range []*Member{b, c} {
		ev := recvEvent(t, m)
		if ev.Message.Text() != "hello everyone" {
			t.Errorf("text = %q", ev.Message.Text())
		}
		if ev.IsAI {
			t.Error("human event flagged as AI")
		}
		if ev.Sender.ID != "u-a" || ev.Sender.Email != "a@example.com" {
			t.Errorf("sender = %+v", ev.Sender)
		}
		if ev.Timestamp.IsZero() {
			t.Error("timestamp not stamped")
		}
	}

	assertNoEvent(t, a)
}

func TestRoomsAreIsolated(t *testing.T) {
	reg := newTestRegistry(nil)

	a := reg.Join("p1", "u-a", "a@example.com")
	other := reg.Join("p2", "u-x", "x@example.com")

	a.Room().HandleInbound(a, "only project one")

	assertNoEvent(t, other)
}

func TestDirectiveInvokesAIAndBroadcastsToAll(t *testing.T) {
	inv := &stubInvoker{
		prompts: make(chan string, 1),
		result: message.StructuredResult{
			Text: "a fibonacci server",
			FileTree: filetree.Tree{
				"main.go": {File: &filetree.File{Contents: "package main\n"}},
			},
		},
	}
	reg := newTestRegistry(inv)

	a := reg.Join("p1", "u-a", "a@example.com")
	b := reg.Join("p1", "u-b", "b@example.com")

	a.Room().HandleInbound(a, "@ai write a fibonacci server")

	select {
	case prompt := <-inv.prompts:
		if prompt != "write a fibonacci server" {
			t.Errorf("prompt = %q", prompt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("invoker never called")
	}

	// B sees the human message first, then the AI reply.
	human := recvEvent(t, b)
	if human.IsAI {
		t.Error("first event should be the human message")
	}

	aiEvent := recvEvent(t, b)
	if !aiEvent.IsAI {
		t.Fatalf("second event not AI: %+v", aiEvent)
	}
	if aiEvent.Sender.ID != message.AISenderID {
		t.Errorf("sender = %+v", aiEvent.Sender)
	}
	res := aiEvent.Message.Structured()
	if res == nil || res.Text != "a fibonacci server" {
		t.Errorf("structured = %+v", res)
	}
	if res.FileTree == nil {
		t.Error("file tree dropped from broadcast")
	}

	// The member whose message triggered the reply receives it too.
	senderEvent := recvEvent(t, a)
	if !senderEvent.IsAI {
		t.Errorf("sender received non-AI event: %+v", senderEvent)
	}
}

func TestBareDirectiveDoesNotInvoke(t *testing.T) {
	inv := &stubInvoker{prompts: make(chan string, 1)}
	reg := newTestRegistry(inv)

	a := reg.Join("p1", "u-a", "a@example.com")
	b := reg.Join("p1", "u-b", "b@example.com")

	a.Room().HandleInbound(a, "@ai")

	// The message still relays as ordinary chat.
	ev := recvEvent(t, b)
	if ev.Message.Text() != "@ai" {
		t.Errorf("text = %q", ev.Message.Text())
	}

	select {
	case p := <-inv.prompts:
		t.Fatalf("invoker called with %q", p)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUpstreamFailureBroadcastsApology(t *testing.T) {
	inv := &stubInvoker{
		prompts: make(chan string, 1),
		err:     errors.New("upstream down"),
	}
	reg := newTestRegistry(inv)

	a := reg.Join("p1", "u-a", "a@example.com")

	a.Room().HandleInbound(a, "@ai do something")
	<-inv.prompts

	ev := recvEvent(t, a)
	if !ev.IsAI {
		t.Fatalf("expected AI event, got %+v", ev)
	}
	res := ev.Message.Structured()
	if res == nil {
		t.Fatal("apology not structured")
	}
	if res.Text != ai.ApologyText {
		t.Errorf("text = %q, want apology", res.Text)
	}
	if res.FileTree != nil {
		t.Errorf("apology carries a file tree: %v", res.FileTree)
	}
}

func TestPersistWritesHumanAndAIMessages(t *testing.T) {
	log := &stubLog{saved: make(chan *models.Message, 2)}
	inv := &stubInvoker{
		prompts: make(chan string, 1),
		result:  message.StructuredResult{Text: "done"},
	}
	reg := NewRegistry(Options{Log: log, AI: inv, Logger: zerolog.Nop()})

	a := reg.Join("p1", "u-a", "a@example.com")
	a.Room().HandleInbound(a, "@ai quick one")

	seen := map[bool]*models.Message{}
	for i := 0; i < 2; i++ {
		select {
		case msg := <-log.saved:
			seen[msg.IsAI] = msg
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for persistence")
		}
	}

	human := seen[false]
	if human == nil || human.Body != "@ai quick one" || human.SenderID != "u-a" {
		t.Errorf("human message = %+v", human)
	}
	aiMsg := seen[true]
	if aiMsg == nil || aiMsg.SenderID != message.AISenderID {
		t.Errorf("ai message = %+v", aiMsg)
	}
	if aiMsg != nil && aiMsg.ID == "" {
		t.Error("message id not assigned")
	}
}

func TestLeaveClosesStreamAndCollectsRoom(t *testing.T) {
	reg := newTestRegistry(nil)

	a := reg.Join("p1", "u-a", "a@example.com")
	b := reg.Join("p1", "u-b", "b@example.com")

	if reg.RoomCount() != 1 {
		t.Fatalf("RoomCount = %d", reg.RoomCount())
	}

	reg.Leave(a)
	if _, ok := <-a.Events(); ok {
		t.Error("events channel still open after leave")
	}
	if reg.RoomCount() != 1 {
		t.Errorf("room collected while occupied")
	}

	reg.Leave(b)
	if reg.RoomCount() != 0 {
		t.Errorf("RoomCount = %d after last leave", reg.RoomCount())
	}

	// Leaving twice is harmless.
	reg.Leave(b)
}

func TestJoinDuringLastLeaveStaysReachable(t *testing.T) {
	reg := newTestRegistry(nil)

	for i := 0; i < 100; i++ {
		a := reg.Join("p1", "u-a", "a@example.com")

		done := make(chan struct{})
		go func() {
			reg.Leave(a)
			close(done)
		}()
		b := reg.Join("p1", "u-b", "b@example.com")
		<-done

		// Whatever the interleaving, b must sit in the room the registry
		// hands to later joiners, or it would never see another relay.
		c := reg.Join("p1", "u-c", "c@example.com")
		c.Room().HandleInbound(c, "ping")
		ev := recvEvent(t, b)
		if ev.Message.Text() != "ping" {
			t.Fatalf("text = %q", ev.Message.Text())
		}

		reg.Leave(b)
		reg.Leave(c)
	}

	if reg.RoomCount() != 0 {
		t.Errorf("RoomCount = %d after all leaves", reg.RoomCount())
	}
}

func TestRejoinAfterEmptyCreatesFreshRoom(t *testing.T) {
	reg := newTestRegistry(nil)

	a := reg.Join("p1", "u-a", "a@example.com")
	reg.Leave(a)

	b := reg.Join("p1", "u-b", "b@example.com")
	if reg.RoomCount() != 1 {
		t.Fatalf("RoomCount = %d", reg.RoomCount())
	}
	if b.Room().MemberCount() != 1 {
		t.Errorf("MemberCount = %d", b.Room().MemberCount())
	}
}
