package tasks

import (
	"context"
	"log"
	"time"

	"club_access/internal/registry"
	"club_access/internal/storage"

	"github.com/robfig/cron/v3"
)

// CleanStaleConnections удаляет из Redis-реестра записи подключений
// старше суток — следы инстансов, упавших без отключения клиентов.
// Живые панели переподключаются и регистрируются заново.
func CleanStaleConnections() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := registry.NewStore(storage.RedisClient)
	removed, err := store.CleanupOlderThan(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		log.Println("Ошибка очистки реестра подключений:", err)
		return
	}
	if removed > 0 {
		log.Printf("Удалено устаревших подключений: %d\n", removed)
	}
}

// ResetStatsCache сбрасывает кэш дневной статистики, чтобы счётчики
// обнулялись сразу после полуночи, а не по истечении TTL.
func ResetStatsCache() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := storage.RedisClient.Del(ctx, "checkin:stats:today").Err(); err != nil {
		log.Println("Ошибка сброса кэша статистики:", err)
	}
}

// InitScheduler инициализирует планировщик cron-задач.
func InitScheduler() *cron.Cron {
	c := cron.New(cron.WithSeconds())

	// Очистка реестра подключений каждые 5 минут.
	_, err := c.AddFunc("0 */5 * * * *", CleanStaleConnections)
	if err != nil {
		log.Println("Ошибка запуска cron-задачи CleanStaleConnections:", err)
	}

	// Сброс дневной статистики в полночь.
	_, err = c.AddFunc("0 0 0 * * *", ResetStatsCache)
	if err != nil {
		log.Println("Ошибка запуска cron-задачи ResetStatsCache:", err)
	}

	c.Start()
	log.Println("Cron-планировщик запущен.")
	return c
}
