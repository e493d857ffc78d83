package checkin

import (
	"math"
	"time"

	"club_access/internal/models"
)

// Источники аутентификации запроса на проход.
const (
	SourceScanner = "scanner"
	SourceAdmin   = "admin"
	SourceUnknown = "unknown"
)

// Результаты решения о допуске.
const (
	OutcomeGranted = "granted"
	OutcomeDenied  = "denied"
)

// Коды предупреждений.
const (
	WarningInvalidQR     = "INVALID_QR"
	WarningMemberBlocked = "MEMBER_BLOCKED"
	WarningPassback      = "PASSBACK_WARNING"
)

// PassbackCooldown — окно, внутри которого повторное сканирование
// считается подозрительным (передача пропуска другому человеку).
const PassbackCooldown = 5 * time.Minute

// Decision — результат проверки допуска.
type Decision struct {
	Outcome        string
	WarningCode    string // "" — без предупреждения
	WarningMinutes int    // заполняется только для PASSBACK_WARNING
}

// Granted сообщает, разрешён ли проход.
func (d Decision) Granted() bool {
	return d.Outcome == OutcomeGranted
}

// Decide — чистая функция решения о допуске: по результату поиска
// участника и его последней записи в журнале вычисляет исход и
// предупреждение. Никогда не возвращает ошибку: нераспознанный токен —
// это валидный вход (отказ), а не сбой.
func Decide(member *models.Member, last *models.CheckinEvent, now time.Time) Decision {
	if member == nil {
		return Decision{Outcome: OutcomeDenied, WarningCode: WarningInvalidQR}
	}
	if member.Blocked {
		return Decision{Outcome: OutcomeDenied, WarningCode: WarningMemberBlocked}
	}
	if last == nil {
		return Decision{Outcome: OutcomeGranted}
	}

	elapsed := now.Sub(last.ScannedAt)
	if elapsed >= PassbackCooldown {
		return Decision{Outcome: OutcomeGranted}
	}

	// Проход не запрещаем: слишком быстрый повтор подозрителен, но не
	// должен запереть настоящего участника за дверью. Минуты округляем
	// до ближайшего целого, но не меньше 1 — «0 минут назад» не показываем.
	minutes := int(math.Round(elapsed.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return Decision{
		Outcome:        OutcomeGranted,
		WarningCode:    WarningPassback,
		WarningMinutes: minutes,
	}
}
