package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tradewatch/trading-assistant/internal/engine"
	"github.com/tradewatch/trading-assistant/internal/hub"
	"github.com/tradewatch/trading-assistant/internal/observ"
)

// Server exposes the engine over HTTP and the duplex websocket channel.
type Server struct {
	svc      *engine.Service
	hub      *hub.Hub
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func New(svc *engine.Service, h *hub.Hub, log *zap.Logger) *Server {
	return &Server{
		svc: svc,
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Routes wires every endpoint onto a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("POST /api/trade/execute", s.handleExecuteTrade)
	mux.HandleFunc("GET /api/portfolio", s.handlePortfolio)
	mux.HandleFunc("POST /api/signals/generate", s.handleGenerateSignal)
	mux.HandleFunc("POST /api/ai/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/markets/list", s.handleMarkets)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.Handle("GET /metrics", observ.Handler())
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := newWSClient(conn, s.hub, s.log)
	s.log.Info("websocket client connected", zap.String("conn_id", client.ID()))
	client.start()
}

func (s *Server) handleExecuteTrade(w http.ResponseWriter, r *http.Request) {
	var req engine.TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.svc.ExecuteTrade(r.Context(), req)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.GetPortfolio(r.Context()))
}

type signalRequest struct {
	Symbol string `json:"symbol"`
}

func (s *Server) handleGenerateSignal(w http.ResponseWriter, r *http.Request) {
	var req signalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	res, err := s.svc.GenerateSignal(r.Context(), req.Symbol)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type analyzeRequest struct {
	Type string `json:"type"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	analysis, err := s.svc.Analyze(r.Context(), req.Type)
	if err != nil {
		if errors.Is(err, engine.ErrInsightsUnavailable) {
			writeError(w, http.StatusServiceUnavailable, engine.ErrInsightsUnavailable.Reason)
			return
		}
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"analysis": analysis})
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"symbols": s.svc.Markets()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.svc.CheckHealth()
	h.ActiveConnections = s.hub.ActiveConnections()
	writeJSON(w, http.StatusOK, h)
}

// writeEngineError maps business-rule rejections to 400 with their reason
// and everything else to an opaque 500.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	var rej *engine.RejectionError
	if errors.As(err, &rej) {
		writeError(w, http.StatusBadRequest, rej.Reason)
		return
	}
	s.log.Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
