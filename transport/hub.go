// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// The three dashboard topics. Browsers pick one by path:
// ws://host:port/system, /log, or /process.
const (
	NamespaceSystem  = "system"
	NamespaceLog     = "log"
	NamespaceProcess = "process"
)

// Hub owns the dashboard's namespaces and upgrades HTTP requests into
// WebSocket subscriptions. The zero value is not usable; construct
// with NewHub.
type Hub struct {
	secret     string
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	namespaces map[string]*Namespace
}

// NewHub returns a Hub with the system, log, and process namespaces.
// When secret is non-empty, connections must present it as the "auth"
// query parameter.
func NewHub(secret string, logger *slog.Logger) *Hub {
	h := &Hub{
		secret: secret,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The dashboard is reached directly or behind a trusted
			// proxy; origin enforcement belongs to that layer.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		namespaces: make(map[string]*Namespace),
	}
	for _, name := range []string{NamespaceSystem, NamespaceLog, NamespaceProcess} {
		h.namespaces[name] = newNamespace(name, logger)
	}
	return h
}

// Namespace returns the named topic, or nil when the name is unknown.
func (h *Hub) Namespace(name string) *Namespace {
	return h.namespaces[name]
}

// System returns the system-namespace topic.
func (h *Hub) System() *Namespace { return h.namespaces[NamespaceSystem] }

// Log returns the log-namespace topic.
func (h *Hub) Log() *Namespace { return h.namespaces[NamespaceLog] }

// Process returns the process-namespace topic.
func (h *Hub) Process() *Namespace { return h.namespaces[NamespaceProcess] }

// ServeHTTP upgrades /system, /log, and /process into namespace
// subscriptions. Unknown paths get 404, bad secrets 401.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	namespace := h.namespaces[strings.TrimPrefix(r.URL.Path, "/")]
	if namespace == nil {
		http.NotFound(w, r)
		return
	}

	if !h.authorized(r) {
		h.logger.Warn("rejected connection, bad secret",
			"namespace", namespace.Name(), "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Debug("upgrade failed", "error", err)
		return
	}

	conn := &Conn{
		ws:        ws,
		namespace: namespace,
		logger:    namespace.logger,
		send:      make(chan []byte, sendQueueSize),
	}
	namespace.add(conn)

	go conn.writeLoop()
	go conn.readLoop()
}

func (h *Hub) authorized(r *http.Request) bool {
	if h.secret == "" {
		return true
	}
	presented := r.URL.Query().Get("auth")
	return subtle.ConstantTimeCompare([]byte(presented), []byte(h.secret)) == 1
}
