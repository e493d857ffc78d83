package handlers

import (
	"fmt"
	"strings"

	"club_access/internal/checkin"
)

// Язык влияет только на текст для человека; структурированные код и
// параметры предупреждения отдаются всегда, независимо от локали.

const defaultLang = "ru"

// langFromHeader выбирает язык ответа по Accept-Language.
func langFromHeader(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.ToLower(strings.TrimSpace(strings.SplitN(part, ";", 2)[0]))
		if strings.HasPrefix(tag, "en") {
			return "en"
		}
		if strings.HasPrefix(tag, "ru") {
			return "ru"
		}
	}
	return defaultLang
}

// warningText возвращает локализованный текст предупреждения.
func warningText(lang, code string, minutes int) string {
	switch code {
	case checkin.WarningInvalidQR:
		if lang == "en" {
			return "Invalid QR code"
		}
		return "QR-код недействителен"
	case checkin.WarningMemberBlocked:
		if lang == "en" {
			return "Member is blocked"
		}
		return "Участник заблокирован"
	case checkin.WarningPassback:
		if lang == "en" {
			return fmt.Sprintf("Repeat scan: previous entry %d min ago", minutes)
		}
		return fmt.Sprintf("Повторное сканирование: предыдущий проход %d мин. назад", minutes)
	}
	return ""
}
