package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mselser95/sports-arb/internal/arbitrage"
	"github.com/mselser95/sports-arb/internal/scanner"
	"github.com/mselser95/sports-arb/pkg/types"
	"go.uber.org/zap"
)

const maxLimit = 500

// OpportunitySource is the scanner surface the API reads from.
type OpportunitySource interface {
	Opportunities(ctx context.Context, q scanner.Query) ([]*arbitrage.Opportunity, error)
	Status() scanner.Status
	RequestRefresh() bool
}

// OpportunityHandler serves the opportunity endpoints.
type OpportunityHandler struct {
	source OpportunitySource
	logger *zap.Logger
}

// NewOpportunityHandler creates a new opportunity handler.
func NewOpportunityHandler(source OpportunitySource, logger *zap.Logger) *OpportunityHandler {
	return &OpportunityHandler{
		source: source,
		logger: logger,
	}
}

// OpportunitiesResponse is the body of GET /api/opportunities.
type OpportunitiesResponse struct {
	Opportunities []*arbitrage.Opportunity `json:"opportunities"`
	Count         int                      `json:"count"`
	LastUpdate    time.Time                `json:"last_update"`
}

// RefreshResponse is the body of POST /api/refresh.
type RefreshResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleOpportunities handles GET /api/opportunities?min_profit=<pct>&limit=<n>&state=live|upcoming|all.
func (h *OpportunityHandler) HandleOpportunities(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	opps, err := h.source.Opportunities(r.Context(), q)
	if err != nil {
		h.logger.Warn("opportunities-request-failed", zap.Error(err))
		status := http.StatusServiceUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		h.writeError(w, "opportunities unavailable", status)
		return
	}

	h.writeJSON(w, http.StatusOK, OpportunitiesResponse{
		Opportunities: opps,
		Count:         len(opps),
		LastUpdate:    h.source.Status().LastUpdate,
	})
}

// HandleStatus handles GET /api/status.
func (h *OpportunityHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.source.Status())
}

// HandleRefresh handles POST /api/refresh. The request is ignored while a scan runs.
func (h *OpportunityHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if !h.source.RequestRefresh() {
		h.writeJSON(w, http.StatusAccepted, RefreshResponse{Accepted: false, Message: "scan already running"})
		return
	}

	h.logger.Info("refresh-requested", zap.String("remote-addr", r.RemoteAddr))
	h.writeJSON(w, http.StatusAccepted, RefreshResponse{Accepted: true, Message: "scan requested"})
}

func parseQuery(r *http.Request) (scanner.Query, error) {
	var q scanner.Query
	values := r.URL.Query()

	if v := values.Get("min_profit"); v != "" {
		minProfit, err := strconv.ParseFloat(v, 64)
		if err != nil || minProfit < 0 {
			return q, errors.New("min_profit must be a non-negative number")
		}
		q.MinProfitPct = minProfit
	}

	if v := values.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxLimit {
			return q, errors.New("limit must be an integer between 1 and 500")
		}
		q.Limit = limit
	}

	switch strings.ToLower(values.Get("state")) {
	case "", "all":
	case "live":
		q.State = types.GameStateLive
	case "upcoming":
		q.State = types.GameStateUpcoming
	default:
		return q, errors.New("state must be live, upcoming or all")
	}

	return q, nil
}

func (h *OpportunityHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		h.logger.Error("response-encode-failed", zap.Error(err))
	}
}

func (h *OpportunityHandler) writeError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, ErrorResponse{Error: message})
}
