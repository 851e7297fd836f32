package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pulse/video-app/internal/cleanup"
	"github.com/pulse/video-app/internal/gateway"
	"github.com/pulse/video-app/internal/messaging"
	"github.com/pulse/video-app/internal/metrics"
	"github.com/pulse/video-app/internal/presence"
	"github.com/pulse/video-app/internal/protocol"
	"github.com/pulse/video-app/internal/ratelimit"
	"github.com/pulse/video-app/internal/ws"
)

func main() {
	config := ws.DefaultServerConfig()

	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		config.ListenAddr = addr
	}
	if v := os.Getenv("WORKER_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.WorkerPoolSize = n
		}
	}
	if v := os.Getenv("MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.MaxConnections = n
		}
	}
	if v := os.Getenv("READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.ReadTimeout = d
		}
	}
	if v := os.Getenv("WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.WriteTimeout = d
		}
	}

	// --- NATS ---
	natsConfig := messaging.DefaultNATSConfig()
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		natsConfig.URL = natsURL
	}
	natsConfig.Name = "pulse-signaler"
	natsClient, err := messaging.NewNATSClient(natsConfig)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}

	// --- Redis ---
	redisAddr := "localhost:6379"
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		redisAddr = v
	}
	serverName, _ := os.Hostname()
	if v := os.Getenv("SERVER_NAME"); v != "" {
		serverName = v
	}
	if serverName == "" {
		serverName = "signaler-1"
	}

	presenceStore, err := presence.NewStore(redisAddr, serverName)
	if err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}

	limiter := ratelimit.NewLimiter(presenceStore.Client())

	cleanupToken := os.Getenv("CLEANUP_TOKEN")
	if cleanupToken == "" {
		log.Printf("CLEANUP_TOKEN not set, cleanup trigger endpoint disabled")
	}

	log.Printf("Pulse signaling server starting")
	log.Printf("  listen_addr:     %s", config.ListenAddr)
	log.Printf("  worker_pool:     %d", config.WorkerPoolSize)
	log.Printf("  max_connections: %d", config.MaxConnections)
	log.Printf("  read_timeout:    %s", config.ReadTimeout)
	log.Printf("  write_timeout:   %s", config.WriteTimeout)
	log.Printf("  nats_url:        %s", natsConfig.URL)
	log.Printf("  redis_addr:      %s", redisAddr)
	log.Printf("  server_name:     %s", serverName)

	gw := gateway.New(presenceStore)
	dispatcher := ws.NewMessageDispatcher()

	// -----------------------------------------------------------------------
	// join-queue — enter the matchmaking queue
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeJoinQueue, func(conn *ws.Connection, msg interface{}) {
		joinMsg, ok := msg.(protocol.JoinQueueMsg)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		allowed, _ := limiter.Allow(ctx, joinMsg.UID, ratelimit.RuleJoinQueue)
		cancel()
		if !allowed {
			resp, _ := protocol.NewServerMessage(protocol.TypeError, protocol.ErrorMsg{
				Code: "rate_limited", Message: "too many queue joins, slow down",
			})
			_ = conn.WriteMessage(resp)
			log.Printf("join-queue rate limited uid=%s conn=%s", joinMsg.UID, conn.ID)
			return
		}

		gw.HandleJoinQueue(conn, joinMsg)
	})

	// -----------------------------------------------------------------------
	// leave-queue — abandon matchmaking
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeLeaveQueue, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.LeaveQueueMsg); ok {
			gw.HandleLeaveQueue(conn, m)
		}
	})

	// -----------------------------------------------------------------------
	// join-call-room / leave-call-room — call room membership
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeJoinCallRoom, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.JoinCallRoomMsg); ok {
			gw.HandleJoinCallRoom(conn, m)
		}
	})
	dispatcher.Register(protocol.TypeLeaveCallRoom, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.LeaveCallRoomMsg); ok {
			gw.HandleLeaveCallRoom(conn, m)
		}
	})

	// -----------------------------------------------------------------------
	// send-offer / send-answer / send-ice — WebRTC handshake relay
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeSendOffer, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.SendOfferMsg); ok {
			gw.HandleSendOffer(conn, m)
		}
	})
	dispatcher.Register(protocol.TypeSendAnswer, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.SendAnswerMsg); ok {
			gw.HandleSendAnswer(conn, m)
		}
	})
	dispatcher.Register(protocol.TypeSendIce, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.SendIceMsg); ok {
			gw.HandleSendIce(conn, m)
		}
	})

	server := ws.NewServer(config, dispatcher.Dispatch)

	// Per-IP connection throttle, checked before the WebSocket upgrade.
	server.SetConnectGate(func(remoteAddr string) bool {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		allowed, _ := limiter.Allow(ctx, remoteAddr, ratelimit.RuleConnect)
		return allowed
	})

	// Transport-level disconnects run the same cleanup a leave would, guarded
	// against stale connections inside the gateway.
	server.SetOnDisconnect(func(conn *ws.Connection) {
		gw.HandleDisconnect(conn)
	})

	server.Handle("/metrics", metrics.Handler())
	if cleanupToken != "" {
		server.Handle("/internal/cleanup", cleanup.NewTriggerHandler(cleanupToken, func(req cleanup.Request) error {
			data, err := json.Marshal(req)
			if err != nil {
				return err
			}
			return natsClient.PublishCleanupRequest(data)
		}))
	}

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, initiating graceful shutdown...", sig)
		natsClient.Close()
		if err := server.Shutdown(); err != nil {
			log.Printf("shutdown error: %v", err)
		}
		if err := presenceStore.Close(); err != nil {
			log.Printf("presence store close error: %v", err)
		}
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
