package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"zkpoker-client/internal/service/session"
	pkgAuth "zkpoker-client/pkg/auth"
	appErr "zkpoker-client/pkg/errors"
	"zkpoker-client/pkg/logger"
	netutil "zkpoker-client/pkg/utils/net"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	sessions *session.Manager
}

func NewHandler(sessions *session.Manager) *Handler {
	return &Handler{sessions: sessions}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return netutil.LocalOrigin(r.Header.Get("Origin"))
	},
}

func (h *Handler) HandleGameWS(c *gin.Context) {
	raw := strings.TrimSpace(c.Param("addr"))
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game address"})
		return
	}
	contract := common.HexToAddress(raw)

	token, err := getTokenFromRequest(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	claims, err := pkgAuth.ParseToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	s, err := h.sessions.Get(contract)
	if err != nil {
		if errors.Is(err, appErr.ErrGameNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open game"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	// spectators may watch but only the signer's player token may act
	canAct := claims.Scope == pkgAuth.ScopePlayer &&
		common.IsHexAddress(claims.Address) &&
		common.HexToAddress(claims.Address) == s.Self()

	logger.Log.Info("New WebSocket connection",
		zap.String("contract", contract.Hex()),
		zap.String("address", claims.Address),
		zap.Bool("canAct", canAct),
	)

	client := newClient(conn, uuid.NewString(), s, canAct)
	client.run()
}

func getTokenFromRequest(c *gin.Context) (string, error) {
	token := strings.TrimSpace(c.Query("token"))
	if token != "" {
		return token, nil
	}
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = strings.TrimSpace(parts[1])
			if token != "" {
				return token, nil
			}
		}
	}
	return "", errors.New("missing token")
}

type client struct {
	conn      *websocket.Conn
	id        string
	session   *session.Session
	canAct    bool
	outbound  <-chan session.OutgoingMessage
	done      chan struct{}
	pingEvery time.Duration
	writeMu   sync.Mutex
}

func newClient(conn *websocket.Conn, id string, s *session.Session, canAct bool) *client {
	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	return &client{
		conn:      conn,
		id:        id,
		session:   s,
		canAct:    canAct,
		outbound:  s.Subscribe(id),
		done:      make(chan struct{}),
		pingEvery: 25 * time.Second,
	}
}

func (c *client) run() {
	go c.writePump()
	c.readPump()
}

func (c *client) readPump() {
	defer func() {
		close(c.done)
		c.session.Unsubscribe(c.id)
		c.conn.Close()
	}()

	for {
		mt, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Info("WS read error", zap.Error(err), zap.String("subscriber", c.id))
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var incoming struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(message, &incoming); err != nil {
			c.safeWrite(session.OutgoingMessage{
				Type: "error",
				Data: gin.H{"message": "invalid payload"},
			})
			continue
		}
		if incoming.Type == "" {
			continue
		}
		if !c.canAct && incoming.Type != "rejoin" && incoming.Type != "ping" {
			c.safeWrite(session.OutgoingMessage{
				Type: "error",
				Data: gin.H{"message": "player token required"},
			})
			continue
		}

		// actions wait for confirmation, so they must not hold up reading
		go c.handle(incoming.Type, incoming.Data)
	}
}

func (c *client) handle(action string, data json.RawMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := c.session.HandleAction(ctx, c.id, action, data); err != nil {
		classified := appErr.Classify(err)
		c.safeWrite(session.OutgoingMessage{
			Type: "error",
			Data: gin.H{"action": action, "error": classified},
		})
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.outbound:
			if !ok {
				return
			}
			if err := c.write(msg); err != nil {
				logger.Log.Info("WS write error", zap.Error(err), zap.String("subscriber", c.id))
				return
			}
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// write serializes writers; the connection allows only one at a time.
func (c *client) write(msg session.OutgoingMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *client) safeWrite(msg session.OutgoingMessage) {
	if err := c.write(msg); err != nil {
		logger.Log.Info("WS write error", zap.Error(err), zap.String("subscriber", c.id))
	}
}
