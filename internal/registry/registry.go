package registry

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Ключ хэша с активными подключениями панелей. Хранится в Redis, а не
// в памяти процесса: инстансов сервиса несколько, и рассылать событие
// должен уметь любой из них.
const connectionsKey = "dashboard:connections"

// Connection — запись об одном подключении панели.
type Connection struct {
	ID          string
	ConnectedAt time.Time
}

// Store — реестр подключений поверх Redis-хэша. HSET и HDEL атомарны,
// поэтому параллельные register/unregister не портят множество.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Register добавляет подключение. Повторная регистрация того же id —
// no-op: поле хэша просто перезаписывается.
func (s *Store) Register(ctx context.Context, id string, connectedAt time.Time) error {
	return s.rdb.HSet(ctx, connectionsKey, id, connectedAt.UTC().Format(time.RFC3339)).Err()
}

// Unregister удаляет подключение. Удаление незнакомого id — no-op.
func (s *Store) Unregister(ctx context.Context, id string) error {
	return s.rdb.HDel(ctx, connectionsKey, id).Err()
}

// All возвращает снимок текущих подключений.
func (s *Store) All(ctx context.Context) ([]Connection, error) {
	fields, err := s.rdb.HGetAll(ctx, connectionsKey).Result()
	if err != nil {
		return nil, err
	}
	conns := make([]Connection, 0, len(fields))
	for id, raw := range fields {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			// Повреждённое значение не должно ломать рассылку.
			at = time.Time{}
		}
		conns = append(conns, Connection{ID: id, ConnectedAt: at})
	}
	return conns, nil
}

// Count возвращает число зарегистрированных подключений.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.rdb.HLen(ctx, connectionsKey).Result()
}

// CleanupOlderThan удаляет записи подключений старше cutoff — следы
// инстансов, умерших без корректного отключения клиентов.
func (s *Store) CleanupOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	conns, err := s.All(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, conn := range conns {
		if conn.ConnectedAt.Before(cutoff) {
			if err := s.Unregister(ctx, conn.ID); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
