package models

import (
	"time"

	"gorm.io/gorm"
)

// User — сотрудник клуба (администратор стойки или оператор панели).
type User struct {
	gorm.Model
	Name         string `gorm:"not null"`
	Surname      string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
}

// Member — член клуба. QRToken уникален в любой момент времени;
// при перевыпуске старое значение становится недействительным навсегда.
type Member struct {
	gorm.Model
	Name       string `gorm:"not null"`
	Surname    string `gorm:"not null"`
	Email      string `gorm:"uniqueIndex;not null"`
	EmailValid bool   `gorm:"default:false"` // Email подтверждён
	Blocked    bool   `gorm:"default:false"` // Заблокирован администрацией
	QRToken    string `gorm:"uniqueIndex;not null"`
}

// CheckinEvent — запись журнала сканирований. Журнал append-only:
// записи никогда не изменяются и не удаляются.
type CheckinEvent struct {
	gorm.Model
	MemberID       *uint     `gorm:"index"` // nil, если токен не распознан
	Member         *Member   `gorm:"foreignKey:MemberID"`
	ScannedAt      time.Time `gorm:"index;not null"`
	Source         string    `gorm:"not null"` // scanner | admin | unknown
	Outcome        string    `gorm:"not null"` // granted | denied
	WarningCode    *string   // Структурированный код предупреждения
	WarningMinutes *int      // Параметр для PASSBACK_WARNING
	Warning        *string   // Текст предупреждения (для старых записей — единственный источник)
	RawToken       string    // Предъявленный токен; сохраняется только при неудачном поиске
}
