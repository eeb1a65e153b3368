package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/tesserapt/marlin/internal/engine"
	"github.com/tesserapt/marlin/internal/logger"
	"github.com/tesserapt/marlin/internal/state"
	"github.com/tesserapt/marlin/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes the engine's read surface over HTTP
type WebServer struct {
	router *mux.Router
	engine *engine.Engine
	port   string
}

// NewWebServer creates a new web server instance
func NewWebServer(eng *engine.Engine, port string) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		engine: eng,
		port:   port,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/price", ws.handleGetPrice).Methods("GET")
	api.HandleFunc("/price/history", ws.handleGetPriceHistory).Methods("GET")
	api.HandleFunc("/oracle/status", ws.handleGetOracleStatus).Methods("GET")
	api.HandleFunc("/pool", ws.handleGetPool).Methods("GET")
	api.HandleFunc("/wrapper", ws.handleGetWrapper).Methods("GET")
	api.HandleFunc("/staking", ws.handleGetStaking).Methods("GET")
	api.HandleFunc("/maturities", ws.handleGetMaturities).Methods("GET")
	api.HandleFunc("/conversions", ws.handleGetConversionInfo).Methods("GET")
	api.HandleFunc("/conversions/recent", ws.handleGetRecentConversions).Methods("GET")
	api.HandleFunc("/users/{address}/balances", ws.handleGetUserBalances).Methods("GET")
	api.HandleFunc("/users/{address}/staking", ws.handleGetUserStaking).Methods("GET")
	api.HandleFunc("/users/{address}/liquidity", ws.handleGetUserLiquidity).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	status := "OK"
	if !dbHealthy {
		status = "DEGRADED"
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"database": map[string]interface{}{
			"healthy": dbHealthy,
		},
		"oracle": ws.engine.OracleStatus(),
	}

	statusCode := http.StatusOK
	if !dbHealthy {
		statusCode = http.StatusServiceUnavailable
	}
	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetPrice returns the current oracle price point
func (ws *WebServer) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	point := ws.engine.PriceInfo()
	if point.Value == 0 {
		ws.writeErrorResponse(w, http.StatusNotFound, "No price available")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, point)
}

// handleGetPriceHistory returns recent accepted price updates
func (ws *WebServer) handleGetPriceHistory(w http.ResponseWriter, r *http.Request) {
	limit := ws.limitParam(r, 100, 1000)

	points, err := ws.engine.PriceHistory(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get price history")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve price history")
		return
	}

	response := map[string]interface{}{
		"prices": points,
		"count":  len(points),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetOracleStatus returns oracle flags and threshold state
func (ws *WebServer) handleGetOracleStatus(w http.ResponseWriter, r *http.Request) {
	ws.writeJSONResponse(w, http.StatusOK, ws.engine.OracleStatus())
}

// handleGetPool returns AMM reserves and fee configuration
func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	ws.writeJSONResponse(w, http.StatusOK, ws.engine.PoolInfo())
}

// handleGetWrapper returns the standardized wrapper state
func (ws *WebServer) handleGetWrapper(w http.ResponseWriter, r *http.Request) {
	ws.writeJSONResponse(w, http.StatusOK, ws.engine.WrapperInfo())
}

// handleGetStaking returns pool-wide staking state
func (ws *WebServer) handleGetStaking(w http.ResponseWriter, r *http.Request) {
	ws.writeJSONResponse(w, http.StatusOK, ws.engine.StakingInfo())
}

// handleGetMaturities returns the live maturity timestamps
func (ws *WebServer) handleGetMaturities(w http.ResponseWriter, r *http.Request) {
	maturities := ws.engine.Maturities()
	response := map[string]interface{}{
		"maturities": maturities,
		"count":      len(maturities),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetConversionInfo returns converter-wide state
func (ws *WebServer) handleGetConversionInfo(w http.ResponseWriter, r *http.Request) {
	ws.writeJSONResponse(w, http.StatusOK, ws.engine.ConversionInfo())
}

// handleGetRecentConversions returns recent conversion receipts
func (ws *WebServer) handleGetRecentConversions(w http.ResponseWriter, r *http.Request) {
	limit := ws.limitParam(r, 10, 100)

	receipts, err := ws.engine.RecentConversions(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent conversions")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve conversions")
		return
	}

	response := map[string]interface{}{
		"conversions": receipts,
		"count":       len(receipts),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetUserBalances returns a user's split and escrow balances for a maturity
func (ws *WebServer) handleGetUserBalances(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	addr := types.Address(vars["address"])

	maturityStr := r.URL.Query().Get("maturity")
	maturity, err := strconv.ParseUint(maturityStr, 10, 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid or missing maturity parameter")
		return
	}

	split, escrow, err := ws.engine.UserBalances(addr, maturity)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Maturity not found")
		return
	}

	response := map[string]interface{}{
		"address":  addr,
		"maturity": maturity,
		"split":    split,
		"escrow":   escrow,
		"wraps":    ws.engine.UserWrapDeposits(addr),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetUserStaking returns a user's staking view
func (ws *WebServer) handleGetUserStaking(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	addr := types.Address(vars["address"])
	ws.writeJSONResponse(w, http.StatusOK, ws.engine.UserStaking(addr))
}

// handleGetUserLiquidity returns a user's pool position
func (ws *WebServer) handleGetUserLiquidity(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	addr := types.Address(vars["address"])
	ws.writeJSONResponse(w, http.StatusOK, ws.engine.UserLiquidity(addr))
}

// limitParam parses a bounded limit query parameter
func (ws *WebServer) limitParam(r *http.Request, def, max int) int {
	limit := def
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= max {
			limit = parsedLimit
		}
	}
	return limit
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
