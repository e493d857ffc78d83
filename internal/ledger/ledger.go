package ledger

import (
	"context"
	"errors"
	"regexp"
	"strconv"

	"club_access/internal/checkin"
	"club_access/internal/models"
	"club_access/internal/storage"

	"gorm.io/gorm"
)

// Append добавляет одну запись в журнал. Запись с MemberID == nil
// (нераспознанный токен) — тоже валидная запись. Контекст запроса
// намеренно не используется: решение о допуске не должно теряться,
// даже если клиент оборвал соединение до ответа.
func Append(entry *models.CheckinEvent) error {
	return storage.DB.WithContext(context.Background()).Create(entry).Error
}

// MostRecentFor возвращает последнюю запись журнала для участника или
// nil, если записей ещё нет. При равных временах побеждает вставленная
// позже (больший id).
func MostRecentFor(ctx context.Context, memberID uint) (*models.CheckinEvent, error) {
	var entry models.CheckinEvent
	err := storage.DB.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("scanned_at DESC, id DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// PageResult — страница журнала с общим числом записей.
type PageResult struct {
	Entries []models.CheckinEvent
	Total   int64
}

// Page возвращает страницу журнала от новых к старым. Данные участника
// подгружаются на момент чтения, поэтому история показывает текущие
// имя и email, даже если они менялись после сканирования.
func Page(ctx context.Context, page, size int) (PageResult, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}

	db := storage.DB.WithContext(ctx)

	var total int64
	if err := db.Model(&models.CheckinEvent{}).Count(&total).Error; err != nil {
		return PageResult{}, err
	}

	var entries []models.CheckinEvent
	err := db.Preload("Member").
		Order("scanned_at DESC, id DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&entries).Error
	if err != nil {
		return PageResult{}, err
	}

	return PageResult{Entries: entries, Total: total}, nil
}

var (
	passbackTextRe = regexp.MustCompile(`(\d+)\s*(?:мин|min)`)
	blockedTextRe  = regexp.MustCompile(`заблокирован|blocked`)
	invalidTextRe  = regexp.MustCompile(`недействител|invalid`)
)

// DeriveWarning возвращает структурированный код и параметры
// предупреждения записи. Канонический источник — колонки warning_code /
// warning_minutes; разбор текста оставлен только для старых записей,
// созданных до появления структурированных полей.
func DeriveWarning(entry *models.CheckinEvent) (code string, minutes int) {
	if entry.WarningCode != nil {
		code = *entry.WarningCode
		if entry.WarningMinutes != nil {
			minutes = *entry.WarningMinutes
		}
		return code, minutes
	}

	if entry.Warning == nil || *entry.Warning == "" {
		return "", 0
	}
	text := *entry.Warning
	if m := passbackTextRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return checkin.WarningPassback, n
	}
	if blockedTextRe.MatchString(text) {
		return checkin.WarningMemberBlocked, 0
	}
	if invalidTextRe.MatchString(text) {
		return checkin.WarningInvalidQR, 0
	}
	return "", 0
}
