package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"club_access/internal/checkin"
	"club_access/internal/ledger"
	"club_access/internal/models"
	"club_access/internal/registry"
	"club_access/internal/response"
	"club_access/internal/storage"
	"club_access/internal/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ScanRequest struct {
	// Строка из QR-кода пропуска
	Token string `json:"token"`
}

// ScanHandler обрабатывает одно сканирование QR-кода: ищет участника,
// принимает решение о допуске, записывает попытку в журнал и рассылает
// событие панелям. Отказ — это не ошибка запроса: дверь получает 200 и
// машиночитаемый результат.
// @Summary		Сканирование пропуска
// @Description	Проверка QR-токена и решение о допуске. Аутентификация: ключ сканера (X-Scanner-Key) или Bearer токен сотрудника.
// @Tags			checkin
// @Accept			json
// @Produce		json
// @Param			scan	body		ScanRequest				true	"QR-токен"
// @Security		BearerAuth
// @Success		200		{object}	response.ScanResponse	"Результат проверки (в том числе отказ)"
// @Failure		400		{object}	response.ErrorResponse	"Пустой токен (MISSING_TOKEN) или ошибка валидации (VALIDATION_ERROR)"
// @Failure		401		{object}	response.ErrorResponse	"Нет валидных учетных данных (UNAUTHENTICATED, INVALID_TOKEN)"
// @Failure		500		{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/checkin/scan [post]
func ScanHandler(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	// Валидация до любого обращения к базе: пустой токен не оставляет
	// следа в журнале.
	token := strings.TrimSpace(req.Token)
	if token == "" {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "MISSING_TOKEN",
			Message: "Пустой QR-токен",
		})
		return
	}

	source := c.GetString("authSource")
	if source == "" {
		source = checkin.SourceUnknown
	}

	ctx := c.Request.Context()

	var member models.Member
	found := true
	if err := storage.DB.WithContext(ctx).Where("qr_token = ?", token).First(&member).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{
				Code:    "DB_ERROR",
				Message: "Ошибка поиска участника",
				Details: err.Error(),
			})
			return
		}
		found = false
	}

	// Гонка двух одновременных сканирований одного токена возможна:
	// оба прочитают одну и ту же «последнюю» запись и решат независимо.
	// Блокировку на участника сознательно не берём — обе попытки всё
	// равно попадут в журнал.
	var last *models.CheckinEvent
	if found {
		var err error
		last, err = ledger.MostRecentFor(ctx, member.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{
				Code:    "DB_ERROR",
				Message: "Ошибка чтения журнала",
				Details: err.Error(),
			})
			return
		}
	}

	now := time.Now()
	var memberPtr *models.Member
	if found {
		memberPtr = &member
	}
	decision := checkin.Decide(memberPtr, last, now)

	entry := models.CheckinEvent{
		ScannedAt: now,
		Source:    source,
		Outcome:   decision.Outcome,
	}
	if found {
		id := member.ID
		entry.MemberID = &id
	} else {
		// Сырой токен сохраняем только при неудачном поиске, для аудита.
		entry.RawToken = token
	}
	if decision.WarningCode != "" {
		code := decision.WarningCode
		entry.WarningCode = &code
		text := warningText(defaultLang, code, decision.WarningMinutes)
		entry.Warning = &text
		if decision.WarningCode == checkin.WarningPassback {
			minutes := decision.WarningMinutes
			entry.WarningMinutes = &minutes
		}
	}

	// Запись в журнал должна завершиться до ответа; рассылка — нет.
	if err := ledger.Append(&entry); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка записи в журнал проходов",
			Details: err.Error(),
		})
		return
	}

	go broadcastScan(memberPtr, decision, now)

	lang := langFromHeader(c.GetHeader("Accept-Language"))
	c.JSON(http.StatusOK, response.ScanResponse{
		Outcome:        decision.Outcome,
		Granted:        decision.Granted(),
		Member:         memberPublic(memberPtr),
		WarningCode:    decision.WarningCode,
		WarningMinutes: decision.WarningMinutes,
		WarningText:    warningText(lang, decision.WarningCode, decision.WarningMinutes),
		ScannedAt:      now,
	})
}

// broadcastScan рассылает событие панелям. Лучшая попытка: ошибка
// логируется и никогда не доходит до вызывающего сканера.
func broadcastScan(member *models.Member, decision checkin.Decision, scannedAt time.Time) {
	if ws.BroadcasterInstance == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := ws.Event{
		EventType:      "checkin",
		Outcome:        decision.Outcome,
		WarningCode:    decision.WarningCode,
		WarningMinutes: decision.WarningMinutes,
		ScannedAt:      scannedAt,
	}
	if member != nil {
		event.Member = &ws.MemberInfo{
			ID:         member.ID,
			Name:       member.Name,
			Surname:    member.Surname,
			Email:      member.Email,
			EmailValid: member.EmailValid,
		}
	}
	if err := ws.BroadcasterInstance.Publish(ctx, event); err != nil {
		log.Println("Ошибка рассылки события прохода:", err)
	}
}

func memberPublic(member *models.Member) *response.MemberPublic {
	if member == nil {
		return nil
	}
	return &response.MemberPublic{
		ID:         member.ID,
		Name:       member.Name,
		Surname:    member.Surname,
		Email:      member.Email,
		EmailValid: member.EmailValid,
	}
}

// HistoryHandler возвращает историю проходов от новых к старым.
// @Summary		История проходов
// @Description	Постраничная история сканирований; данные участника подгружаются на момент чтения
// @Tags			checkin
// @Produce		json
// @Param			page		query	int	false	"Номер страницы"	default(1)
// @Param			page_size	query	int	false	"Размер страницы"	default(20)
// @Security		BearerAuth
// @Success		200	{object}	response.HistoryResponse	"Страница истории"
// @Failure		500	{object}	response.ErrorResponse		"Ошибка сервера (DB_ERROR)"
// @Router			/api/checkin/history [get]
func HistoryHandler(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 200 {
		size = 20
	}

	result, err := ledger.Page(c.Request.Context(), page, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка чтения истории проходов",
			Details: err.Error(),
		})
		return
	}

	lang := langFromHeader(c.GetHeader("Accept-Language"))
	items := make([]response.HistoryItem, 0, len(result.Entries))
	for i := range result.Entries {
		entry := &result.Entries[i]
		code, minutes := ledger.DeriveWarning(entry)
		items = append(items, response.HistoryItem{
			ID:             entry.ID,
			Member:         memberPublic(entry.Member),
			Source:         entry.Source,
			Outcome:        entry.Outcome,
			WarningCode:    code,
			WarningMinutes: minutes,
			WarningText:    warningText(lang, code, minutes),
			ScannedAt:      entry.ScannedAt,
		})
	}

	c.JSON(http.StatusOK, response.HistoryResponse{
		Total:    result.Total,
		Page:     page,
		PageSize: size,
		Items:    items,
	})
}

const statsCacheKey = "checkin:stats:today"

// StatsHandler отдаёт счётчики проходов за сегодня; результат
// кэшируется в Redis на 30 секунд.
// @Summary		Статистика за сегодня
// @Tags			checkin
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	response.StatsResponse	"Счётчики проходов"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/checkin/stats [get]
func StatsHandler(c *gin.Context) {
	ctx := c.Request.Context()

	if cached, err := storage.RedisClient.Get(ctx, statsCacheKey).Result(); err == nil && cached != "" {
		var stats response.StatsResponse
		if err := json.Unmarshal([]byte(cached), &stats); err == nil {
			c.JSON(http.StatusOK, stats)
			return
		}
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var stats response.StatsResponse
	db := storage.DB.WithContext(ctx).Model(&models.CheckinEvent{})
	if err := db.Where("scanned_at >= ?", midnight).Count(&stats.Total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка подсчёта статистики",
			Details: err.Error(),
		})
		return
	}
	storage.DB.WithContext(ctx).Model(&models.CheckinEvent{}).
		Where("scanned_at >= ? AND outcome = ?", midnight, checkin.OutcomeGranted).
		Count(&stats.Granted)
	storage.DB.WithContext(ctx).Model(&models.CheckinEvent{}).
		Where("scanned_at >= ? AND outcome = ?", midnight, checkin.OutcomeDenied).
		Count(&stats.Denied)
	storage.DB.WithContext(ctx).Model(&models.CheckinEvent{}).
		Where("scanned_at >= ? AND warning_code = ?", midnight, checkin.WarningPassback).
		Count(&stats.Passback)

	if n, err := registry.NewStore(storage.RedisClient).Count(ctx); err == nil {
		stats.Connections = n
	}

	if payload, err := json.Marshal(stats); err == nil {
		storage.RedisClient.Set(ctx, statsCacheKey, payload, 30*time.Second)
	}

	c.JSON(http.StatusOK, stats)
}
