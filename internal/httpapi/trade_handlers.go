package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradedesk.org/internal/audit"
	"tradedesk.org/internal/authz"
	"tradedesk.org/internal/stream"
	"tradedesk.org/internal/trade"
)

const defaultListLimit = 100

type createTradeRequest struct {
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Quantity int64  `json:"quantity"`
	Price    int64  `json:"price"`
	Notes    string `json:"notes"`
}

type confirmRequest struct {
	Action string `json:"action"`
}

type approveRequest struct {
	Action string `json:"action"`
}

type listTradesResponse struct {
	Items     []trade.Trade        `json:"items"`
	Counts    map[trade.Status]int `json:"counts"`
	CanCreate bool                 `json:"can_create"`
	AsOf      time.Time            `json:"as_of"`
}

type tradeResponse struct {
	trade.Trade
	Can map[string]bool `json:"can"`
}

func (a *API) handleTradesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listTrades(w, r)
	case http.MethodPost:
		a.createTrade(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleTradeResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/trades/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if strings.HasSuffix(path, "/confirm") {
		id := strings.TrimSuffix(path, "/confirm")
		id = strings.TrimSuffix(id, "/")
		if id == "" {
			writeError(w, r, http.StatusNotFound, "trade not found")
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.confirmTrade(w, r, id)
		return
	}

	if strings.HasSuffix(path, "/approve") {
		id := strings.TrimSuffix(path, "/approve")
		id = strings.TrimSuffix(id, "/")
		if id == "" {
			writeError(w, r, http.StatusNotFound, "trade not found")
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.approveTrade(w, r, id)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getTrade(w, r, path)
	case http.MethodDelete:
		a.deleteTrade(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) listTrades(w http.ResponseWriter, r *http.Request) {
	if !a.allows(r, authz.ActionTradeList, nil) {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}

	var filter trade.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := trade.ParseStatus(raw)
		if !ok {
			writeError(w, r, http.StatusBadRequest, "unknown status")
			return
		}
		filter = st
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	items, err := a.trades.List(r.Context(), filter, limit)
	if err != nil {
		handleTradeError(w, r, err)
		return
	}
	counts, err := a.trades.Counts(r.Context())
	if err != nil {
		handleTradeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listTradesResponse{
		Items:     items,
		Counts:    counts,
		CanCreate: a.allows(r, authz.ActionTradeCreate, nil),
		AsOf:      time.Now().UTC(),
	})
}

func (a *API) createTrade(w http.ResponseWriter, r *http.Request) {
	if !a.allows(r, authz.ActionTradeCreate, nil) {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}

	var req createTradeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	t := trade.Trade{
		Symbol:   req.Symbol,
		Side:     trade.Side(strings.ToUpper(strings.TrimSpace(req.Side))),
		Quantity: req.Quantity,
		Price:    req.Price,
		Notes:    req.Notes,
	}
	if user := subject(r); user != nil {
		t.CreatedBy = user.ID
	}

	created, err := a.trades.Create(r.Context(), &t)
	if err != nil {
		handleTradeError(w, r, err)
		return
	}

	a.publish(created, "created")
	_ = audit.LogEvent(r.Context(), "trade.created", map[string]any{
		"trade_id": created.ID,
		"symbol":   created.Symbol,
		"side":     created.Side,
	})
	writeJSON(w, http.StatusCreated, a.tradeView(r, created))
}

func (a *API) getTrade(w http.ResponseWriter, r *http.Request, id string) {
	t, err := a.trades.Get(r.Context(), id)
	if err != nil {
		handleTradeError(w, r, err)
		return
	}
	if !a.allows(r, authz.ActionTradeView, &t) {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}
	writeJSON(w, http.StatusOK, a.tradeView(r, t))
}

func (a *API) deleteTrade(w http.ResponseWriter, r *http.Request, id string) {
	t, err := a.trades.Get(r.Context(), id)
	if err != nil {
		handleTradeError(w, r, err)
		return
	}
	if !a.allows(r, authz.ActionTradeDelete, &t) {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}
	if err := a.trades.Delete(r.Context(), id); err != nil {
		handleTradeError(w, r, err)
		return
	}

	a.publish(t, "deleted")
	_ = audit.LogEvent(r.Context(), "trade.deleted", map[string]any{
		"trade_id": t.ID,
		"symbol":   t.Symbol,
	})
	w.WriteHeader(http.StatusNoContent)
}

// confirmTrade handles both directions of the confirmation step. The action
// field selects confirm or unconfirm, and each direction carries its own
// permission key.
func (a *API) confirmTrade(w http.ResponseWriter, r *http.Request, id string) {
	var req confirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	t, err := a.trades.Get(r.Context(), id)
	if err != nil {
		handleTradeError(w, r, err)
		return
	}

	actorID := ""
	if user := subject(r); user != nil {
		actorID = user.ID
	}

	var (
		action  string
		updated trade.Trade
	)
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "", "confirm":
		action = "confirmed"
		if !a.allows(r, authz.ActionTradeConfirm, &t) {
			writeError(w, r, http.StatusForbidden, "forbidden")
			return
		}
		updated, err = a.trades.Confirm(r.Context(), id, actorID)
	case "unconfirm":
		action = "unconfirmed"
		if !a.allows(r, authz.ActionTradeUnconfirm, &t) {
			writeError(w, r, http.StatusForbidden, "forbidden")
			return
		}
		updated, err = a.trades.Unconfirm(r.Context(), id)
	default:
		writeError(w, r, http.StatusBadRequest, "action must be confirm or unconfirm")
		return
	}
	if err != nil {
		handleTradeError(w, r, err)
		return
	}

	a.publish(updated, action)
	_ = audit.LogEvent(r.Context(), "trade."+action, map[string]any{
		"trade_id": updated.ID,
		"status":   updated.Status,
	})
	writeJSON(w, http.StatusOK, a.tradeView(r, updated))
}

// approveTrade handles the final decision. The action field selects approve
// or reject; both require a confirmed trade.
func (a *API) approveTrade(w http.ResponseWriter, r *http.Request, id string) {
	var req approveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	t, err := a.trades.Get(r.Context(), id)
	if err != nil {
		handleTradeError(w, r, err)
		return
	}

	actorID := ""
	if user := subject(r); user != nil {
		actorID = user.ID
	}

	var (
		action  string
		updated trade.Trade
	)
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "", "approve":
		action = "approved"
		if !a.allows(r, authz.ActionTradeApprove, &t) {
			writeError(w, r, http.StatusForbidden, "forbidden")
			return
		}
		updated, err = a.trades.Approve(r.Context(), id, actorID)
	case "reject":
		action = "rejected"
		if !a.allows(r, authz.ActionTradeReject, &t) {
			writeError(w, r, http.StatusForbidden, "forbidden")
			return
		}
		updated, err = a.trades.Reject(r.Context(), id, actorID)
	default:
		writeError(w, r, http.StatusBadRequest, "action must be approve or reject")
		return
	}
	if err != nil {
		handleTradeError(w, r, err)
		return
	}

	a.publish(updated, action)
	_ = audit.LogEvent(r.Context(), "trade."+action, map[string]any{
		"trade_id": updated.ID,
		"status":   updated.Status,
	})
	writeJSON(w, http.StatusOK, a.tradeView(r, updated))
}

// tradeView decorates a trade with the caller's capabilities so clients can
// render controls without re-deriving the policy table.
func (a *API) tradeView(r *http.Request, t trade.Trade) tradeResponse {
	return tradeResponse{
		Trade: t,
		Can: map[string]bool{
			"view":      a.allows(r, authz.ActionTradeView, &t),
			"delete":    a.allows(r, authz.ActionTradeDelete, &t),
			"change":    a.allows(r, authz.ActionTradeChange, &t),
			"confirm":   a.allows(r, authz.ActionTradeConfirm, &t),
			"unconfirm": a.allows(r, authz.ActionTradeUnconfirm, &t),
			"approve":   a.allows(r, authz.ActionTradeApprove, &t),
			"reject":    a.allows(r, authz.ActionTradeReject, &t),
		},
	}
}

func (a *API) publish(t trade.Trade, action string) {
	if a.stream == nil {
		return
	}
	actor := ""
	switch action {
	case "created", "deleted":
		actor = t.CreatedBy
	case "confirmed", "unconfirmed":
		actor = t.ConfirmedBy
	case "approved", "rejected":
		actor = t.ApprovedBy
	}
	a.stream.Publish(stream.TradeEvent{
		TradeID: t.ID,
		Symbol:  t.Symbol,
		Action:  action,
		Status:  string(t.Status),
		ActorID: actor,
	})
}
