package handler

import (
	"context"
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"campuslink/internal/infrastructure/firebase"
	ws "campuslink/internal/infrastructure/websocket"
	"campuslink/internal/usecase"
	"campuslink/pkg/errors"
)

type WebSocketHandler struct {
	wsManager    *ws.Manager
	chatUseCase  *usecase.ChatUseCase
	firebaseAuth *firebase.FirebaseAuthClient
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Restrict in production
	},
}

func NewWebSocketHandler(wsManager *ws.Manager, chatUseCase *usecase.ChatUseCase, firebaseAuth *firebase.FirebaseAuthClient) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:    wsManager,
		chatUseCase:  chatUseCase,
		firebaseAuth: firebaseAuth,
	}
}

// HandleWebSocket authenticates the handshake, upgrades the connection and
// runs a messaging session on it until the client goes away.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	// Browsers cannot set headers on WebSocket handshakes, so the token
	// arrives as a query parameter.
	token := c.QueryParam("token")
	if token == "" {
		return errors.Unauthorized("Authentication required", nil)
	}

	userID, err := h.firebaseAuth.VerifyToken(c.Request().Context(), token)
	if err != nil {
		return errors.Unauthorized("Invalid or expired token", err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return errors.Internal("Failed to upgrade connection", err)
	}

	client := &ws.Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}

	// The request context dies when this handler returns; the session has to
	// outlive it and is torn down when the read pump ends.
	session := ws.NewSession(client, h.chatUseCase)
	if err := session.Start(context.Background()); err != nil {
		conn.Close()
		return err
	}

	h.wsManager.Register <- client

	go client.WritePump()
	go func() {
		client.ReadPump(h.wsManager, session.HandleFrame)
		session.Close()
	}()

	return nil
}
