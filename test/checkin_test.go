package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"club_access/internal/auth"
	"club_access/internal/handlers"
	"club_access/internal/models"
	"club_access/internal/storage"
	"club_access/internal/ws"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testScannerKey = "test-scanner-key"

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	key := os.Getenv("ENV_CHEK")
	if key == "" {
		// Для локального запуска: переменные из .env, если он есть.
		_ = godotenv.Load("../.env")
	}
	if os.Getenv("TEST_DB_HOST") == "" {
		t.Skip("TEST_DB_HOST не задан — пропускаем интеграционный тест")
	}

	os.Setenv("SCANNER_API_KEY", testScannerKey)

	storage.ConnectTestingDatabase()

	if err := storage.DB.AutoMigrate(&models.User{}, &models.Member{}, &models.CheckinEvent{}); err != nil {
		log.Fatal("Ошибка при миграции... ", err.Error())
	}
	storage.DB.Exec("TRUNCATE TABLE users, members, checkin_events RESTART IDENTITY CASCADE;")

	// Вместо внешнего Redis — miniredis: реестр, pub/sub и кэш
	// работают с ним одинаково.
	mr := miniredis.RunT(t)
	storage.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})

	hub := ws.InitHub()
	go hub.Run()
	listenCtx, cancelListen := context.WithCancel(context.Background())
	t.Cleanup(cancelListen)
	go hub.ListenEvents(listenCtx)

	r := gin.Default()

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", handlers.Login)
		authGroup.POST("/register", handlers.Register)
		authGroup.POST("/refresh", handlers.RefreshToken)
	}

	checkinGroup := r.Group("/api/checkin")
	{
		checkinGroup.POST("/scan", auth.ScanAuthMiddleware(), handlers.ScanHandler)
		checkinGroup.GET("/history", auth.AuthMiddleware(), handlers.HistoryHandler)
		checkinGroup.GET("/stats", auth.AuthMiddleware(), handlers.StatsHandler)
	}

	r.GET("/api/dashboard/ws", ws.DashboardWebSocketHandler)

	return httptest.NewServer(r)
}

func scan(t *testing.T, ts *httptest.Server, token string, headers map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"token": token})
	req, _ := http.NewRequest("POST", ts.URL+"/api/checkin/scan", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "Ошибка запроса scan")
	defer res.Body.Close()

	var payload map[string]interface{}
	_ = json.NewDecoder(res.Body).Decode(&payload)
	return res, payload
}

func scannerHeaders() map[string]string {
	return map[string]string{"X-Scanner-Key": testScannerKey}
}

// backdate сдвигает все записи журнала участника в прошлое, чтобы
// смоделировать паузу между сканированиями без ожидания в тесте.
func backdate(t *testing.T, memberID uint, ago time.Duration) {
	t.Helper()
	err := storage.DB.Model(&models.CheckinEvent{}).
		Where("member_id = ?", memberID).
		Update("scanned_at", time.Now().Add(-ago)).Error
	require.NoError(t, err, "Ошибка сдвига времени записей")
}

func TestScanFlow(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	member := models.Member{
		Name:    "Иван",
		Surname: "Иванов",
		Email:   fmt.Sprintf("ivan_%d@example.com", time.Now().UnixNano()),
		QRToken: uuid.NewString(),
	}
	require.NoError(t, storage.DB.Create(&member).Error)

	// Первое сканирование: допуск без предупреждений.
	res, payload := scan(t, ts, member.QRToken, scannerHeaders())
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "granted", payload["outcome"])
	assert.Equal(t, true, payload["granted"])
	assert.Nil(t, payload["warning_code"])
	memberInfo := payload["member"].(map[string]interface{})
	assert.Equal(t, "Иван", memberInfo["name"])
	// QR-токен в ответе не отдается.
	_, hasToken := memberInfo["qr_token"]
	assert.False(t, hasToken)

	// Повтор через 120 секунд: допуск с предупреждением, minutes=2.
	backdate(t, member.ID, 120*time.Second)
	res, payload = scan(t, ts, member.QRToken, scannerHeaders())
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "granted", payload["outcome"])
	assert.Equal(t, "PASSBACK_WARNING", payload["warning_code"])
	assert.Equal(t, float64(2), payload["warning_minutes"])

	// Повтор через 400 секунд: предупреждения нет.
	backdate(t, member.ID, 400*time.Second)
	res, payload = scan(t, ts, member.QRToken, scannerHeaders())
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "granted", payload["outcome"])
	assert.Nil(t, payload["warning_code"])
}

func TestScanDenials(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	// Неизвестный токен: отказ с INVALID_QR, но ответ — 200.
	res, payload := scan(t, ts, "no-such-token", scannerHeaders())
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "denied", payload["outcome"])
	assert.Equal(t, "INVALID_QR", payload["warning_code"])
	assert.Nil(t, payload["member"])

	// Запись в журнале с сохранённым сырым токеном.
	var entry models.CheckinEvent
	require.NoError(t, storage.DB.Where("raw_token = ?", "no-such-token").First(&entry).Error)
	assert.Nil(t, entry.MemberID)

	// Заблокированный участник.
	blocked := models.Member{
		Name:    "Пётр",
		Surname: "Петров",
		Email:   fmt.Sprintf("petr_%d@example.com", time.Now().UnixNano()),
		QRToken: uuid.NewString(),
		Blocked: true,
	}
	require.NoError(t, storage.DB.Create(&blocked).Error)
	res, payload = scan(t, ts, blocked.QRToken, scannerHeaders())
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "denied", payload["outcome"])
	assert.Equal(t, "MEMBER_BLOCKED", payload["warning_code"])
}

func TestScanValidationAndAuth(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	// Пустой токен: MISSING_TOKEN, запись в журнал не создаётся.
	res, payload := scan(t, ts, "   ", scannerHeaders())
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "MISSING_TOKEN", payload["code"])
	var count int64
	storage.DB.Model(&models.CheckinEvent{}).Count(&count)
	assert.Zero(t, count)

	// Без учетных данных.
	res, payload = scan(t, ts, "whatever", nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "UNAUTHENTICATED", payload["code"])

	// Неверный ключ сканера.
	res, payload = scan(t, ts, "whatever", map[string]string{"X-Scanner-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "UNAUTHENTICATED", payload["code"])

	// Мусорный Bearer токен.
	res, payload = scan(t, ts, "whatever", map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "INVALID_TOKEN", payload["code"])

	storage.DB.Model(&models.CheckinEvent{}).Count(&count)
	assert.Zero(t, count, "Отказ в аутентификации не должен оставлять записей в журнале")
}

func TestDashboardReceivesEvent(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	member := models.Member{
		Name:    "Анна",
		Surname: "Смирнова",
		Email:   fmt.Sprintf("anna_%d@example.com", time.Now().UnixNano()),
		QRToken: uuid.NewString(),
	}
	require.NoError(t, storage.DB.Create(&member).Error)

	wsURL := "ws" + ts.URL[4:] + "/api/dashboard/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "Ошибка подключения к WS")
	defer conn.Close()

	// Даём подписке и регистрации завершиться.
	time.Sleep(100 * time.Millisecond)

	_, payload := scan(t, ts, member.QRToken, scannerHeaders())
	require.Equal(t, "granted", payload["outcome"])

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err, "Ошибка чтения WS сообщения")

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &event))
	assert.Equal(t, "checkin", event["event_type"])
	assert.Equal(t, "granted", event["outcome"])
	eventMember := event["member"].(map[string]interface{})
	assert.Equal(t, "Анна", eventMember["name"])
}

func TestHistoryEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	// Регистрируем сотрудника и получаем токен.
	staffEmail := fmt.Sprintf("staff_%d@example.com", time.Now().UnixNano())
	body, _ := json.Marshal(map[string]string{
		"name": "Ольга", "surname": "Кузнецова",
		"email": staffEmail, "password": "secret123",
	})
	res, err := http.Post(ts.URL+"/auth/register", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusCreated, res.StatusCode)

	body, _ = json.Marshal(map[string]string{"email": staffEmail, "password": "secret123"})
	res, err = http.Post(ts.URL+"/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var tokens map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&tokens))
	res.Body.Close()
	accessToken := tokens["access_token"]
	require.NotEmpty(t, accessToken)

	member := models.Member{
		Name:    "Сергей",
		Surname: "Сидоров",
		Email:   fmt.Sprintf("sergey_%d@example.com", time.Now().UnixNano()),
		QRToken: uuid.NewString(),
	}
	require.NoError(t, storage.DB.Create(&member).Error)

	for i := 0; i < 3; i++ {
		backdate(t, member.ID, 10*time.Minute)
		scan(t, ts, member.QRToken, scannerHeaders())
	}

	req, _ := http.NewRequest("GET", ts.URL+"/api/checkin/history?page=1&page_size=2", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var history map[string]interface{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&history))
	assert.Equal(t, float64(3), history["total"])
	items := history["items"].([]interface{})
	assert.Len(t, items, 2)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "granted", first["outcome"])
	firstMember := first["member"].(map[string]interface{})
	assert.Equal(t, "Сергей", firstMember["name"])
}
