package ws

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// Канал Redis для рассылки событий прохода всем инстансам.
const eventsChannel = "checkin:events"

// MemberInfo — публичные поля участника для панели. QR-токен и
// служебные поля сюда не попадают.
type MemberInfo struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Surname    string `json:"surname"`
	Email      string `json:"email"`
	EmailValid bool   `json:"email_valid"`
}

// Event — одно самодостаточное сообщение о сканировании.
type Event struct {
	EventType      string      `json:"event_type"`
	Member         *MemberInfo `json:"member"` // null, если токен не распознан
	Outcome        string      `json:"outcome"`
	WarningCode    string      `json:"warning_code,omitempty"`
	WarningMinutes int         `json:"warning_minutes,omitempty"`
	ScannedAt      time.Time   `json:"scanned_at"`
}

// Broadcaster публикует события в Redis; доставкой по сокетам
// занимаются хабы подписанных инстансов.
type Broadcaster struct {
	rdb *redis.Client
}

var BroadcasterInstance *Broadcaster

func NewBroadcaster(rdb *redis.Client) *Broadcaster {
	return &Broadcaster{rdb: rdb}
}

// Publish сериализует событие один раз и публикует его в канал.
func (b *Broadcaster) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, eventsChannel, payload).Err()
}

// ListenEvents подписывает хаб на канал событий и доставляет каждое
// сообщение локальным клиентам. Блокирует до отмены контекста.
func (h *Hub) ListenEvents(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, eventsChannel)
	defer pubsub.Close()
	log.Println("Подписка на канал событий:", eventsChannel)
	for msg := range pubsub.Channel() {
		h.Deliver([]byte(msg.Payload))
	}
}
