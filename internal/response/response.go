package response

import "time"

// SuccessResponse представляет успешный ответ API
type SuccessResponse struct {
	Message string `json:"message" example:"Операция успешно выполнена"`
}

// ErrorResponse представляет ответ с ошибкой API
type ErrorResponse struct {
	// Код ошибки для программной обработки
	// example: VALIDATION_ERROR
	Code string `json:"code"`

	// Человекочитаемое сообщение об ошибке
	// example: Ошибка валидации данных
	Message string `json:"message"`

	// Дополнительные детали об ошибке (опционально)
	// example: поле email должно быть валидным email адресом
	Details string `json:"details,omitempty"`
}

// TokenResponse представляет ответ с токенами авторизации
type TokenResponse struct {
	// JWT токен для доступа к защищенным эндпоинтам
	AccessToken string `json:"access_token"`

	// JWT токен для обновления access токена
	RefreshToken string `json:"refresh_token"`
}

// MemberPublic — публичные поля участника: только то, что нужно для
// отображения на стойке и панелях. QR-токен сюда не попадает никогда.
type MemberPublic struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Surname    string `json:"surname"`
	Email      string `json:"email"`
	EmailValid bool   `json:"email_valid"`
}

// ScanResponse — результат обработки сканирования. Возвращается с
// кодом 200 и при отказе: двери нужен детерминированный машинный
// результат, а не ошибка.
type ScanResponse struct {
	Outcome        string        `json:"outcome" example:"granted"`
	Granted        bool          `json:"granted"`
	Member         *MemberPublic `json:"member"` // null, если токен не распознан
	WarningCode    string        `json:"warning_code,omitempty" example:"PASSBACK_WARNING"`
	WarningMinutes int           `json:"warning_minutes,omitempty" example:"2"`
	WarningText    string        `json:"warning_text,omitempty"`
	ScannedAt      time.Time     `json:"scanned_at"`
}

// HistoryItem — одна запись истории проходов.
type HistoryItem struct {
	ID             uint          `json:"id"`
	Member         *MemberPublic `json:"member"`
	Source         string        `json:"source"`
	Outcome        string        `json:"outcome"`
	WarningCode    string        `json:"warning_code,omitempty"`
	WarningMinutes int           `json:"warning_minutes,omitempty"`
	WarningText    string        `json:"warning_text,omitempty"`
	ScannedAt      time.Time     `json:"scanned_at"`
}

// HistoryResponse — страница истории с общим числом записей.
type HistoryResponse struct {
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Items    []HistoryItem `json:"items"`
}

// StatsResponse — счётчики проходов за сегодня.
type StatsResponse struct {
	Total       int64 `json:"total"`
	Granted     int64 `json:"granted"`
	Denied      int64 `json:"denied"`
	Passback    int64 `json:"passback"`
	Connections int64 `json:"connections"`
}

// MemberResponse — участник для административных экранов; QR-токен
// возвращается только здесь, чтобы администратор мог напечатать пропуск.
type MemberResponse struct {
	ID         uint      `json:"id"`
	Name       string    `json:"name"`
	Surname    string    `json:"surname"`
	Email      string    `json:"email"`
	EmailValid bool      `json:"email_valid"`
	Blocked    bool      `json:"blocked"`
	QRToken    string    `json:"qr_token"`
	CreatedAt  time.Time `json:"created_at"`
}
