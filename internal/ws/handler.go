package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/wordchain-backend/internal/dispatch"
)

const (
	writeTimeout = 3 * time.Second
	readLimit    = 4096
)

// Handler upgrades the request and pumps frames between the socket and the dispatcher.
// Each connection gets an opaque id; room membership lives in the directory, not here.
func Handler(d *dispatch.Dispatcher, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// Browser clients are served from another origin.
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Warn("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(readLimit)

		connID := uuid.NewString()
		log := logger.With(zap.String("conn", connID))
		out := d.Connect(connID)
		defer d.Disconnect(connID)

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				payload, err := json.Marshal(msg)
				if err != nil {
					log.Error("encode message", zap.String("type", msg.Type), zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				err = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					log.Debug("write failed", zap.Error(err))
					// Drop the connection; the reader sees the close and cleans up.
					conn.CloseNow()
					return
				}
			}
		}()

		// Reader loop. No idle timeout: a player may sit in a waiting room indefinitely.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Debug("client closed")
				default:
					log.Debug("read failed", zap.Error(err))
				}
				return
			}
			d.Handle(connID, data)
		}
	}
}
