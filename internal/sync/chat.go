package sync

import (
	"context"
	"encoding/json"

	"JevanRaksha/internal/models"
	"JevanRaksha/pkg/feed"
	"JevanRaksha/pkg/metrics"
	"JevanRaksha/pkg/store"
)

// InboxSyncer mirrors a user's inbox: every chat_messages row the user sent
// or received, newest first.
type InboxSyncer struct {
	*Hook[models.ChatMessage]
	st store.Store
}

func NewInboxSyncer(st store.Store, f feed.Feed, met *metrics.Metrics, userID string) *InboxSyncer {
	return &InboxSyncer{
		Hook: NewHook(f, met, inboxScope(st, userID)),
		st:   st,
	}
}

// SetUser rebinds the inbox to another user.
func (s *InboxSyncer) SetUser(userID string) error {
	return s.Rescope(inboxScope(s.st, userID))
}

func inboxScope(st store.Store, userID string) Scope[models.ChatMessage] {
	return Scope[models.ChatMessage]{
		Name:    "inbox",
		Channel: "chat:" + userID,
		Filter: feed.ChangeFilter{
			Event:  feed.EventAll,
			Table:  "chat_messages",
			Filter: "receiver_id=eq." + userID,
		},
		Fetch: func(ctx context.Context) ([]models.ChatMessage, error) {
			rows, err := st.Select(ctx, "chat_messages",
				store.AnyOf(
					store.Eq("sender_id", userID),
					store.Eq("receiver_id", userID),
				),
				&store.Order{Column: "created_at", Ascending: false})
			if err != nil {
				return nil, err
			}
			return decodeRows[models.ChatMessage](rows)
		},
	}
}

// ConversationSyncer mirrors the per-alert message thread, oldest first.
// Messages are immutable once written, so INSERT events append directly to
// the snapshot instead of forcing a re-fetch; rows already present by id are
// skipped.
type ConversationSyncer struct {
	*Hook[models.Message]
	st store.Store
}

func NewConversationSyncer(st store.Store, f feed.Feed, met *metrics.Metrics, alertID string) *ConversationSyncer {
	return &ConversationSyncer{
		Hook: NewHook(f, met, conversationScope(st, alertID)),
		st:   st,
	}
}

// SetAlert rebinds the thread to another emergency alert.
func (s *ConversationSyncer) SetAlert(alertID string) error {
	return s.Rescope(conversationScope(s.st, alertID))
}

func conversationScope(st store.Store, alertID string) Scope[models.Message] {
	return Scope[models.Message]{
		Name:    "conversation",
		Channel: "chat-" + alertID,
		Filter: feed.ChangeFilter{
			Event:  feed.EventInsert,
			Table:  "messages",
			Filter: "alert_id=eq." + alertID,
		},
		Fetch: func(ctx context.Context) ([]models.Message, error) {
			rows, err := st.Select(ctx, "messages",
				store.Where(store.Eq("alert_id", alertID)),
				&store.Order{Column: "created_at", Ascending: true})
			if err != nil {
				return nil, err
			}
			return decodeRows[models.Message](rows)
		},
		Merge: appendMessage,
	}
}

func appendMessage(current []models.Message, ev feed.Event) ([]models.Message, bool) {
	if ev.Type != feed.EventInsert || len(ev.New) == 0 {
		return nil, false
	}
	var msg models.Message
	if err := json.Unmarshal(ev.New, &msg); err != nil || msg.ID == "" {
		return nil, false
	}
	for _, m := range current {
		if m.ID == msg.ID {
			return current, true
		}
	}
	return append(current, msg), true
}
