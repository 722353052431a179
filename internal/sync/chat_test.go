package sync

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"JevanRaksha/pkg/feed"
	"JevanRaksha/pkg/store"
)

func TestInboxFetchUsesOrFilterNewestFirst(t *testing.T) {
	st := newFakeStore()
	f := newFakeFeed()

	s := NewInboxSyncer(st, f, nil, "u1")
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	calls := st.callsFor("select", "chat_messages")
	require.Len(t, calls, 1)
	assert.Equal(t, store.AnyOf(
		store.Eq("sender_id", "u1"),
		store.Eq("receiver_id", "u1"),
	), calls[0].filter)
	require.NotNil(t, calls[0].order)
	assert.Equal(t, "created_at", calls[0].order.Column)
	assert.False(t, calls[0].order.Ascending)

	// subscription is scoped to rows addressed to the user
	sub := f.subs["chat:u1"]
	require.NotNil(t, sub)
	assert.Equal(t, "receiver_id=eq.u1", sub.filter.Filter)
	assert.Equal(t, feed.EventAll, sub.filter.Event)
}

func TestConversationInsertAppendsWithoutRefetch(t *testing.T) {
	st := newFakeStore()
	f := newFakeFeed()
	st.setRows("select", "messages",
		map[string]interface{}{"id": "m1", "sender_id": "u1", "alert_id": "a1", "message": "first"})

	s := NewConversationSyncer(st, f, nil, "a1")
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()
	require.Len(t, s.Snapshot(), 1)

	row, _ := json.Marshal(map[string]interface{}{
		"id": "m2", "sender_id": "u2", "alert_id": "a1", "message": "second",
	})
	f.push("chat-a1", feed.Event{Type: feed.EventInsert, Table: "messages", New: row})

	msgs := s.Snapshot()
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)
	assert.Equal(t, StateReady, s.State())

	// the merge path never re-reads the store
	assert.Len(t, st.callsFor("select", "messages"), 1)
}

func TestConversationDuplicateInsertIgnored(t *testing.T) {
	st := newFakeStore()
	f := newFakeFeed()
	st.setRows("select", "messages",
		map[string]interface{}{"id": "m1", "sender_id": "u1", "alert_id": "a1", "message": "first"})

	s := NewConversationSyncer(st, f, nil, "a1")
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	row, _ := json.Marshal(map[string]interface{}{"id": "m1", "sender_id": "u1", "alert_id": "a1", "message": "first"})
	f.push("chat-a1", feed.Event{Type: feed.EventInsert, Table: "messages", New: row})

	assert.Len(t, s.Snapshot(), 1)
	assert.Len(t, st.callsFor("select", "messages"), 1)
}

func TestConversationMalformedEventFallsBackToRefetch(t *testing.T) {
	st := newFakeStore()
	f := newFakeFeed()

	s := NewConversationSyncer(st, f, nil, "a1")
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	f.push("chat-a1", feed.Event{Type: feed.EventInsert, Table: "messages", New: json.RawMessage(`not json`)})

	require.Eventually(t, func() bool {
		return len(st.callsFor("select", "messages")) == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestConversationRescopeSwitchesAlert(t *testing.T) {
	st := newFakeStore()
	f := newFakeFeed()

	s := NewConversationSyncer(st, f, nil, "a1")
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	require.NoError(t, s.SetAlert("a2"))
	assert.Equal(t, []string{"open:chat-a1", "close:chat-a1", "open:chat-a2"}, f.events())

	calls := st.callsFor("select", "messages")
	require.Len(t, calls, 2)
	assert.Equal(t, store.Where(store.Eq("alert_id", "a2")), calls[1].filter)
}
