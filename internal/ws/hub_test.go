package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"club_access/internal/checkin"
	"club_access/internal/registry"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHub(t *testing.T) (*Hub, *registry.Store, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	store := registry.NewStore(rdb)
	hub := NewHub(rdb, store)
	go hub.Run()
	return hub, store, rdb
}

func addClient(hub *Hub, store *registry.Store, id string, buffer int) *Client {
	client := &Client{
		ID:   id,
		Hub:  hub,
		Send: make(chan []byte, buffer),
	}
	store.Register(context.Background(), id, time.Now())
	hub.register <- client
	return client
}

func TestDeliverFanOutPrunesStale(t *testing.T) {
	hub, store, _ := setupHub(t)
	ctx := context.Background()

	alive1 := addClient(hub, store, "alive-1", 1)
	alive2 := addClient(hub, store, "alive-2", 1)
	// Клиент без буфера, которого никто не читает: доставка ему
	// упирается в default и подключение признаётся потерянным.
	addClient(hub, store, "stale", 0)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	hub.Deliver([]byte(`{"event_type":"checkin"}`))

	// Живые клиенты получают событие.
	for _, client := range []*Client{alive1, alive2} {
		select {
		case msg := <-client.Send:
			assert.JSONEq(t, `{"event_type":"checkin"}`, string(msg))
		case <-time.After(2 * time.Second):
			t.Fatalf("Клиент %s не получил событие", client.ID)
		}
	}

	// Мёртвый клиент удаляется и из хаба, и из реестра; живые остаются.
	require.Eventually(t, func() bool {
		n, err := store.Count(ctx)
		return err == nil && n == 2
	}, 2*time.Second, 10*time.Millisecond, "Потерянное подключение не удалено из реестра")

	hub.mu.Lock()
	_, staleInHub := hub.clients["stale"]
	hubSize := len(hub.clients)
	hub.mu.Unlock()
	assert.False(t, staleInHub)
	assert.Equal(t, 2, hubSize)
}

func TestUnregisterIdempotentWithDeliver(t *testing.T) {
	hub, store, _ := setupHub(t)
	ctx := context.Background()

	client := addClient(hub, store, "conn-1", 0)
	// Прунинг при доставке закрывает Send и снимает регистрацию.
	hub.Deliver([]byte(`{}`))

	require.Eventually(t, func() bool {
		n, err := store.Count(ctx)
		return err == nil && n == 0
	}, 2*time.Second, 10*time.Millisecond)

	// Повторный unregister того же клиента (как при разрыве чтения) —
	// безопасный no-op.
	hub.unregister <- client
	hub.Deliver([]byte(`{}`)) // цикл жив, паники от двойного close нет

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPublishRoundTrip(t *testing.T) {
	hub, store, rdb := setupHub(t)

	client := addClient(hub, store, "panel", 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.ListenEvents(ctx)
	// Даём подписке установиться.
	time.Sleep(100 * time.Millisecond)

	b := NewBroadcaster(rdb)
	event := Event{
		EventType: "checkin",
		Member: &MemberInfo{
			ID:      7,
			Name:    "Анна",
			Surname: "Смирнова",
			Email:   "anna@example.com",
		},
		Outcome:        checkin.OutcomeGranted,
		WarningCode:    checkin.WarningPassback,
		WarningMinutes: 2,
		ScannedAt:      time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, b.Publish(ctx, event))

	select {
	case raw := <-client.Send:
		var got Event
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "checkin", got.EventType)
		require.NotNil(t, got.Member)
		assert.Equal(t, uint(7), got.Member.ID)
		assert.Equal(t, checkin.WarningPassback, got.WarningCode)
		assert.Equal(t, 2, got.WarningMinutes)
	case <-time.After(2 * time.Second):
		t.Fatal("Событие не дошло до клиента через Redis")
	}
}
