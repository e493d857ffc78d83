package ws

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"club_access/internal/registry"
	"club_access/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub хранит подключения панелей этого инстанса, по id подключения.
// Глобальный список всех подключений (включая чужие инстансы) живёт в
// Redis-реестре; хаб доставляет события только своим сокетам.
type Hub struct {
	clients map[string]*Client
	// Канал для регистрации нового клиента.
	register chan *Client
	// Канал для удаления клиента.
	unregister chan *Client
	// Канал с сериализованными событиями для доставки.
	deliver chan []byte
	// Реестр подключений в Redis.
	store *registry.Store
	rdb   *redis.Client
	mu    sync.Mutex
}

// Глобальный экземпляр хаба; создаётся в InitHub после InitRedis.
var HubInstance *Hub

// InitHub создаёт глобальный хаб и рассыльщик поверх
// инициализированного Redis.
func InitHub() *Hub {
	HubInstance = NewHub(storage.RedisClient, registry.NewStore(storage.RedisClient))
	BroadcasterInstance = NewBroadcaster(storage.RedisClient)
	return HubInstance
}

func NewHub(rdb *redis.Client, store *registry.Store) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan []byte),
		store:      store,
		rdb:        rdb,
	}
}

// Run запускает цикл обработки каналов хаба.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			h.dropFromRegistry(client.ID)
		case message := <-h.deliver:
			h.mu.Lock()
			for id, client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Буфер переполнен или клиент мёртв: считаем
					// подключение потерянным и вычищаем его отовсюду.
					close(client.Send)
					delete(h.clients, id)
					h.dropFromRegistry(id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Deliver передаёт сериализованное событие всем клиентам этого
// инстанса. Вызывается из цикла подписки Redis.
func (h *Hub) Deliver(message []byte) {
	h.deliver <- message
}

func (h *Hub) dropFromRegistry(id string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.store.Unregister(ctx, id); err != nil {
			log.Println("Ошибка удаления подключения из реестра:", err)
		}
	}()
}

// Client представляет одно подключение панели через WebSocket.
type Client struct {
	ID   string
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
}

// readPump читает сообщения из WebSocket-соединения. Входящие
// сообщения панели не обрабатываются — нам важен только разрыв.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump отправляет клиенту сообщения из канала Send.
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Канал закрыт хабом.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			// Ping для поддержания соединения.
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// DashboardWebSocketHandler обновляет соединение до WebSocket и
// регистрирует панель в Redis-реестре и в локальном хабе.
// URL: /api/dashboard/ws
func DashboardWebSocketHandler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		http.Error(c.Writer, "Ошибка обновления до WebSocket", http.StatusInternalServerError)
		return
	}

	id := uuid.NewString()
	if err := HubInstance.store.Register(c.Request.Context(), id, time.Now()); err != nil {
		log.Println("Ошибка регистрации подключения в реестре:", err)
		conn.Close()
		return
	}

	client := &Client{
		ID:   id,
		Hub:  HubInstance,
		Conn: conn,
		Send: make(chan []byte, 256),
	}
	HubInstance.register <- client

	go client.writePump()
	client.readPump()
}
