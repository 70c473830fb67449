package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"ss2beacon-go/internal/beacon"
	"ss2beacon-go/internal/config"
	"ss2beacon-go/internal/processing"
	"ss2beacon-go/internal/types"
)

//go:embed web/*
var webFS embed.FS

type Server struct {
	upgrader websocket.Upgrader
	clients  map[*websocket.Conn]*sync.Mutex
	mu       sync.Mutex
	cfg      config.AppConfig
	registry *prometheus.Registry
	metrics  *Metrics
	statusFn func() map[string]any
	configFn func() types.UIConfig
	recentFn func() []types.LiveRecord
	now      func() time.Time
}

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = (pongWait * 9) / 10

	maxDecodeBody = 8 << 20
)

// Hooks let the owning process expose its live state. Any of them may be nil.
type Hooks struct {
	Status func() map[string]any
	Config func() types.UIConfig
	Recent func() []types.LiveRecord
}

func New(cfg config.AppConfig, hooks Hooks) *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:  make(map[*websocket.Conn]*sync.Mutex),
		cfg:      cfg,
		registry: reg,
		metrics:  NewMetrics(reg),
		statusFn: hooks.Status,
		configFn: hooks.Config,
		recentFn: hooks.Recent,
		now:      time.Now,
	}
}

func (s *Server) Metrics() *Metrics { return s.metrics }

func (s *Server) Handler() (http.Handler, error) {
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(sub)))
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/config", s.counted("config", s.handleConfig))
	mux.HandleFunc("/status", s.counted("status", s.handleStatus))
	mux.HandleFunc("/decode", s.counted("decode", s.handleDecode))
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux, nil
}

// Run serves HTTP and broadcasts every message received on messages to the
// websocket clients until ctx is done.
func (s *Server) Run(ctx context.Context, messages <-chan any) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(s.cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	go s.broadcast(ctx, messages)

	log.Info().Int("port", s.cfg.Port).Msg("serving live beacon feed")
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) counted(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.HTTPRequests.WithLabelValues(endpoint).Inc()
		h(w, r)
	}
}

func (s *Server) uiConfig() types.UIConfig {
	if s.configFn != nil {
		return s.configFn()
	}
	return types.UIConfig{
		Type:      "config",
		Delimiter: s.cfg.Delimiter,
		Schemas:   types.Schemas(),
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	s.mu.Lock()
	writeMu := &sync.Mutex{}
	s.clients[conn] = writeMu
	s.metrics.WSClients.Set(float64(len(s.clients)))
	s.mu.Unlock()

	_ = s.writeJSON(conn, writeMu, s.uiConfig())

	go func() {
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(pingEvery)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if err := s.writeMessage(conn, writeMu, websocket.PingMessage, nil); err != nil {
						_ = conn.Close()
						return
					}
				}
			}
		}()
		defer close(done)
		defer s.removeClient(conn)
		for {
			messageType, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			var request struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(payload, &request); err != nil {
				continue
			}
			if request.Type == "recent_request" && s.recentFn != nil {
				_ = s.writeJSON(conn, writeMu, map[string]any{
					"type":    "recent",
					"records": s.recentFn(),
				})
			}
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ui := s.uiConfig()
	payload := map[string]any{
		"port":          s.cfg.Port,
		"workers":       s.cfg.Workers,
		"delimiter":     s.cfg.Delimiter,
		"output_format": s.cfg.OutputFormat,
		"image_range":   []int{s.cfg.ImageRange.Offset, s.cfg.ImageRange.End()},
		"run_id":        ui.RunID,
		"source":        ui.Source,
		"schemas":       ui.Schemas,
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	payload := map[string]any{}
	if s.statusFn != nil {
		payload = s.statusFn()
	}
	if metrics, ok := payload["metrics"].(map[string]any); ok {
		metrics["ws_clients"] = s.clientCount()
	} else {
		payload["ws_clients"] = s.clientCount()
	}
	_ = json.NewEncoder(w).Encode(payload)
}

type decodeResponse struct {
	Line     int             `json:"line"`
	Schema   string          `json:"schema,omitempty"`
	Document beacon.Document `json:"document,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// handleDecode decodes a POSTed body of hex lines. With ?image=true the
// lines are reassembled into an image instead.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDecodeBody))
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	lines := splitLines(string(body))
	if len(lines) == 0 {
		http.Error(w, "no beacon lines in request body", http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	opts := processing.Options{
		Delimiter:  s.cfg.Delimiter,
		Workers:    s.cfg.Workers,
		ImageRange: s.cfg.ImageRange,
	}
	if query.Has("delimiter") {
		opts.Delimiter = query.Get("delimiter")
	}
	image := false
	if raw := query.Get("image"); raw != "" {
		image, err = strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "image: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	if image {
		s.decodeImage(r.Context(), w, lines, opts)
		return
	}

	results, err := processing.DecodeBatch(r.Context(), lines, opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	now := s.now()
	out := make([]decodeResponse, 0, len(results))
	for _, res := range results {
		entry := decodeResponse{Line: res.Index + 1}
		if res.Err != nil {
			entry.Error = res.Err.Error()
			s.metrics.ObserveDecode("", res.Err)
		} else {
			entry.Schema = res.Record.Schema.Name
			entry.Document = res.Document(now)
			s.metrics.ObserveDecode(entry.Schema, nil)
		}
		out = append(out, entry)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) decodeImage(ctx context.Context, w http.ResponseWriter, lines []string, opts processing.Options) {
	img, err := processing.AssembleImage(ctx, lines, opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.metrics.ImageChunks.Add(float64(img.Chunks))
	if img.Skipped > 0 {
		s.metrics.DecodeErrors.WithLabelValues("image_packet").Add(float64(img.Skipped))
	}
	if img.Chunks == 0 {
		http.Error(w, "no usable image packets", http.StatusUnprocessableEntity)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("X-Image-Chunks", strconv.Itoa(img.Chunks))
	w.Header().Set("X-Image-Skipped", strconv.Itoa(img.Skipped))
	w.Header().Set("X-Image-Complete", strconv.FormatBool(img.Sequence.Complete()))
	w.Header().Set("X-Image-Missing", strconv.Itoa(img.Sequence.MissingCount))
	_, _ = w.Write(beacon.EmitImage(img.Bytes).Bytes)
}

func splitLines(body string) []string {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Publish queues a message for broadcast without blocking. It reports
// whether the message was accepted.
func Publish(messages chan<- any, message any) bool {
	select {
	case messages <- message:
		return true
	default:
		return false
	}
}

func (s *Server) broadcast(ctx context.Context, messages <-chan any) {
	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-messages:
			if !ok {
				return
			}
			payload, err := json.Marshal(message)
			if err != nil {
				log.Warn().Err(err).Msg("broadcast encode failed")
				continue
			}
			var stale []*websocket.Conn
			s.mu.Lock()
			for conn, writeMu := range s.clients {
				if err := s.writeMessage(conn, writeMu, websocket.TextMessage, payload); err != nil {
					stale = append(stale, conn)
				}
			}
			s.mu.Unlock()
			s.metrics.Broadcasts.Inc()
			for _, conn := range stale {
				s.removeClient(conn)
			}
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.metrics.WSClients.Set(float64(len(s.clients)))
	s.mu.Unlock()
	conn.Close()
}

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) writeJSON(conn *websocket.Conn, writeMu *sync.Mutex, payload any) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(payload)
}

func (s *Server) writeMessage(conn *websocket.Conn, writeMu *sync.Mutex, messageType int, payload []byte) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(messageType, payload)
}
