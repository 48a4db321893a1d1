package room

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/devroom-hq/devroom/internal/ai"
	"github.com/devroom-hq/devroom/internal/message"
	"github.com/devroom-hq/devroom/internal/metrics"
	"github.com/devroom-hq/devroom/internal/models"
)

const persistTimeout = 5 * time.Second

// Room is the broadcast scope for one collaborative project session.
// Events are fanned out under the room lock, so all members observe a
// single ordered stream.
type Room struct {
	id  string
	reg *Registry

	mu      sync.Mutex
	members map[*Member]bool
}

// ID returns the project identifier the room is scoped to.
func (r *Room) ID() string {
	return r.id
}

// MemberCount returns the current number of connected members.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// HandleInbound processes one chat message from a member: the event is
// stamped server-side, logged best-effort and relayed to the rest of the
// room. If it carries a non-empty AI directive, the generation runs in
// its own goroutine so the room keeps relaying while the call is
// pending. The human event is always emitted before the adapter is
// invoked.
func (r *Room) HandleInbound(sender *Member, text string) {
	event := message.NewHumanEvent(sender.Sender(), text)

	go r.persist(event)
	r.RelayHuman(event, sender)

	if prompt, ok := DetectDirective(text); ok && r.reg.ai != nil {
		go r.invokeAI(prompt)
	}
}

// RelayHuman delivers the event to every member except the originating
// one: the sender renders its own optimistic copy locally and must not
// receive an echo.
func (r *Room) RelayHuman(event message.ChatEvent, sender *Member) {
	r.relay(event, sender)
	metrics.MessagesRelayed.WithLabelValues("human").Inc()
}

// RelayAI delivers the event to every member of the room, including the
// member whose message triggered the reply: nobody holds an optimistic
// copy of the AI's own answer.
func (r *Room) RelayAI(event message.ChatEvent) {
	r.relay(event, nil)
	metrics.MessagesRelayed.WithLabelValues("ai").Inc()
}

// relay fans the event out under the room lock. A member whose buffer is
// full misses the event rather than stalling the stream for everyone.
func (r *Room) relay(event message.ChatEvent, skip *Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for m := range r.members {
		if m == skip {
			continue
		}
		select {
		case m.events <- event:
		default:
			r.reg.logger.Warn().
				Str("project_id", r.id).
				Str("user_id", m.UserID).
				Msg("member event buffer full, dropping event")
		}
	}
}

// invokeAI runs the prompt through the adapter and broadcasts the
// normalized result to the whole room. An upstream failure is converted
// into the fixed apology rather than failing the request path. The call
// is not cancelled if the originating member disconnects; the reply still
// reaches the remaining members.
func (r *Room) invokeAI(prompt string) {
	result, err := r.reg.ai.Invoke(context.Background(), prompt)
	if err != nil {
		r.reg.logger.Error().
			Err(err).
			Str("project_id", r.id).
			Msg("ai invocation failed, substituting apology")
		result = ai.Apology()
	}

	event := message.NewAIEvent(result)
	go r.persist(event)

	// A generated file tree is the new authoritative snapshot for the
	// project; hand it to the reconciler for upstream persistence.
	if result.FileTree != nil && r.reg.trees != nil {
		r.reg.trees.Replace(r.id, nil, result.FileTree)
	}

	r.RelayAI(event)
}

// persist appends the event to the durable log and the hot cache, each
// best-effort: failures are logged, never surfaced to members, and never
// block delivery.
func (r *Room) persist(event message.ChatEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	msg := &models.Message{
		ID:          ulid.Make().String(),
		ProjectID:   r.id,
		SenderID:    event.Sender.ID,
		SenderEmail: event.Sender.Email,
		Body:        serializeBody(event.Message),
		IsAI:        event.IsAI,
		Timestamp:   event.Timestamp.UnixMilli(),
	}

	if r.reg.log != nil {
		if err := r.reg.log.SaveMessage(ctx, msg); err != nil {
			metrics.PersistenceFailures.WithLabelValues("message_log").Inc()
			r.reg.logger.Error().
				Err(err).
				Str("project_id", r.id).
				Msg("message log write failed")
		}
	}

	if r.reg.cache != nil {
		if err := r.reg.cache.CacheMessage(ctx, msg); err != nil {
			metrics.PersistenceFailures.WithLabelValues("message_cache").Inc()
			r.reg.logger.Error().
				Err(err).
				Str("project_id", r.id).
				Msg("message cache write failed")
		}
	}
}

// serializeBody stores plain text verbatim and structured results as
// their JSON serialization.
func serializeBody(b message.Body) string {
	if s := b.Structured(); s != nil {
		data, err := json.Marshal(s)
		if err != nil {
			return s.Text
		}
		return string(data)
	}
	return b.Text()
}
