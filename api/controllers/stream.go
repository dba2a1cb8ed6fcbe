package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/doubtdesk/doubtdesk-backend/api/responses"
	"github.com/doubtdesk/doubtdesk-backend/internal/broadcast"
	"github.com/doubtdesk/doubtdesk-backend/pkg/config"
	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
	"github.com/doubtdesk/doubtdesk-backend/pkg/logger"
)

func streamUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

// BalanceStream upgrades to a websocket and pushes versioned balance frames
// for one tenant. The subscription is registered before the snapshot read, so
// no mutation can slip between the two; the first frame is always the
// snapshot and later frames come from the hub at most once. Clients reconcile
// on version gaps per the broadcast package contract.
func BalanceStream(hub *broadcast.Hub, reader balanceReader, cfg config.BroadcastConfig, logg *logger.Logger) http.HandlerFunc {
	upgrader := streamUpgrader()

	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "tenantId")
		if err := authorizeTenantRead(r, tenantID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		topic := fmt.Sprintf("%s:%s", enums.OutboxAggregateTypeLedger, tenantID)
		sub := hub.Subscribe(topic, 0)
		defer hub.Unsubscribe(sub)

		snapshot, err := reader.Read(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hub.Advance(sub, snapshot.Version)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the handshake failure.
			if logg != nil {
				logg.Warn(r.Context(), "websocket upgrade failed")
			}
			return
		}

		if logg != nil {
			fields := map[string]any{"tenant_id": tenantID, "since_version": snapshot.Version}
			logg.Info(logg.WithFields(r.Context(), fields), "balance stream opened")
		}

		snapshotFrame := map[string]any{
			"type":    "balance.snapshot",
			"payload": newBalanceView(snapshot),
		}
		pumpStream(r.Context(), conn, sub, snapshotFrame, cfg)
	}
}

// WalletStream pushes versioned wallet frames for the calling earner, with
// the same snapshot-first, subscribe-before-read discipline as the balance
// stream.
func WalletStream(hub *broadcast.Hub, reader walletReader, cfg config.BroadcastConfig, logg *logger.Logger) http.HandlerFunc {
	upgrader := streamUpgrader()

	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		topic := fmt.Sprintf("%s:%s", enums.OutboxAggregateTypeWallet, userID)
		sub := hub.Subscribe(topic, 0)
		defer hub.Unsubscribe(sub)

		snapshot, err := reader.Read(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hub.Advance(sub, snapshot.Version)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			if logg != nil {
				logg.Warn(r.Context(), "websocket upgrade failed")
			}
			return
		}

		if logg != nil {
			fields := map[string]any{"user_id": userID, "since_version": snapshot.Version}
			logg.Info(logg.WithFields(r.Context(), fields), "wallet stream opened")
		}

		snapshotFrame := map[string]any{
			"type":    "wallet.snapshot",
			"payload": newWalletView(snapshot),
		}
		pumpStream(r.Context(), conn, sub, snapshotFrame, cfg)
	}
}

// pumpStream writes the snapshot, then relays hub frames and pings until the
// client goes away or the subscription closes.
func pumpStream(ctx context.Context, conn *websocket.Conn, sub *broadcast.Subscription, snapshotFrame any, cfg config.BroadcastConfig) {
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
	if err := conn.WriteJSON(snapshotFrame); err != nil {
		return
	}

	// Reader goroutine: we never expect client frames, but reading is
	// what surfaces close and keeps pong handling alive.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingInterval := cfg.PingInterval
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case frame, ok := <-sub.C:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
