// Package bay exposes the bay state over HTTP: the last committed snapshot,
// a websocket stream of every cycle, presence toggles and cycle history.
package bay

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/auxout"
	corebay "github.com/kristi80/Datakomm-prosjekt-2022/core/bay"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/controller"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/cyclelog"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/logger"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/presence"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/report"
)

// Bay is the part of the controller the API needs.
type Bay interface {
	Snapshot() (model.Snapshot, bool)
	Submit(ev presence.ToggleEvent) error
}

// AuxReader exposes the auxiliary output state.
type AuxReader interface {
	State() auxout.State
}

// Options configure the router.
type Options struct {
	Bay            Bay
	History        cyclelog.LogStore
	Aux            AuxReader
	Hub            *Hub
	Log            logger.Logger
	AllowedOrigins []string
	Token          string
}

// NewRouter registers every endpoint and wraps the mux with CORS.
func NewRouter(o Options) http.Handler {
	mux := http.NewServeMux()
	registerHealth(mux, o.Bay)
	mux.Handle("/api/bay/snapshot", NewSnapshotHandler(o.Bay))
	mux.Handle("/api/bay/slots/{slot}/toggle", NewToggleHandler(o.Bay, o.Token))
	if o.Hub != nil {
		mux.Handle("/api/bay/stream", NewStreamHandler(o.Hub, o.AllowedOrigins))
	}
	if o.History != nil {
		mux.Handle("/api/bay/cycles", NewCyclesHandler(o.History))
		mux.Handle("/api/bay/summary", NewSummaryHandler(o.History))
	}
	if o.Aux != nil {
		mux.Handle("/api/bay/aux", NewAuxHandler(o.Aux))
	}
	origins := o.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(mux)
}

func registerHealth(mux *http.ServeMux, b Bay) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := b.Snapshot(); !ok {
			http.Error(w, "no cycle yet", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// NewSnapshotHandler serves the last committed snapshot via GET /api/bay/snapshot.
func NewSnapshotHandler(b Bay) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s, ok := b.Snapshot()
		if !ok {
			http.Error(w, "no cycle yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, s)
	})
}

// NewToggleHandler queues a presence toggle via POST /api/bay/slots/{slot}/toggle.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
func NewToggleHandler(b Bay, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		n, err := strconv.Atoi(r.PathValue("slot"))
		if err != nil {
			http.Error(w, "invalid slot", http.StatusBadRequest)
			return
		}
		ev := presence.ToggleEvent{Slot: model.SlotFromNumber(n), At: time.Now(), Source: "http"}
		switch err := b.Submit(ev); {
		case errors.Is(err, corebay.ErrUnknownSlot):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, controller.ErrQueueFull):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusAccepted)
		}
	})
}

func parseQuery(r *http.Request) (cyclelog.Query, error) {
	var q cyclelog.Query
	v := r.URL.Query()
	if s := v.Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, err
		}
		q.Start = t
	}
	if s := v.Get("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, err
		}
		q.End = t
	}
	if s := v.Get("slot"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, err
		}
		q.Slot = n
	}
	if s := v.Get("unmet"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return q, err
		}
		q.UnmetOnly = b
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, err
		}
		q.Limit = n
	}
	return q, nil
}

// NewCyclesHandler exposes cycle history via GET /api/bay/cycles. It accepts
// start and end (RFC 3339), slot, unmet and limit query parameters.
func NewCyclesHandler(store cyclelog.LogStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []cyclelog.Record{}
		}
		writeJSON(w, records)
	})
}

// NewSummaryHandler aggregates cycle history via GET /api/bay/summary.
func NewSummaryHandler(store cyclelog.LogStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, report.Summarize(records))
	})
}

// NewAuxHandler exposes the auxiliary output via GET /api/bay/aux.
func NewAuxHandler(aux AuxReader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, aux.State())
	})
}

// NewStreamHandler upgrades GET /api/bay/stream to a websocket that receives
// every committed snapshot.
func NewStreamHandler(hub *Hub, origins []string) http.Handler {
	up := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(origins),
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Warnf("stream upgrade: %v", err)
			return
		}
		c := NewClient(hub, conn)
		if !hub.add(c) {
			_ = conn.Close()
			return
		}
		go c.writePump()
		go c.readPump()
	})
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
