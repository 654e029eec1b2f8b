package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-table-orders/internal/catalog"
	"github.com/ariefcatur/go-table-orders/internal/printing"
	"github.com/ariefcatur/go-table-orders/internal/realtime"
	"github.com/ariefcatur/go-table-orders/internal/tables"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const maxBody = 1 << 20

// API binds the table service, catalog and print desk to HTTP.
type API struct {
	Tables  *tables.Service
	Catalog *catalog.Catalog
	Source  catalog.Source // nil disables menu reload
	Desk    *printing.Desk
	Log     *zap.Logger
	Timeout time.Duration
}

func (a *API) Register(r chi.Router) {
	if a.Log == nil {
		a.Log = zap.NewNop()
	}

	// viewers stay connected, so no request timeout here
	r.Method(http.MethodGet, "/api/rt/events", &realtime.SSEHandler{Viewers: a.Tables, Logger: a.Log})
	r.Method(http.MethodGet, "/ws", realtime.NewWSHandler(a.Tables, a.Log))

	r.Group(func(r chi.Router) {
		if a.Timeout > 0 {
			r.Use(middleware.Timeout(a.Timeout))
		}

		r.Get("/api/rt/snapshot", a.getSnapshot)
		r.Route("/api/rt/tables/{tableId}", func(r chi.Router) {
			r.Post("/start", a.startTable)
			r.Post("/end", a.endTable)
			r.Post("/precheck", a.precheck)
			r.Post("/items", a.addItem)
			r.Delete("/items", a.removeItemsByNamePrice)
			r.Patch("/items/{lineId}", a.updateItemQty)
			r.Delete("/items/{lineId}", a.removeItem)
			r.Post("/move", a.moveOrder)
			r.Post("/merge", a.mergeOrder)
			r.Get("/receipt", a.getReceipt)
		})

		r.Post("/api/orders", a.submitOrder)

		if a.Desk != nil {
			r.Post("/api/print/receipt", a.printReceipt)
			r.Post("/api/print/order", a.printOrder)
		}

		r.Get("/api/menu", a.getMenu)
		r.Post("/api/menu/reload", a.reloadMenu)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tables.ErrTableNotFound), errors.Is(err, tables.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, tables.ErrInvalidProduct), errors.Is(err, tables.ErrInvalidQuantity),
		errors.Is(err, tables.ErrSameTable), errors.Is(err, errBadPayload),
		errors.Is(err, printing.ErrUnknownTarget):
		return http.StatusBadRequest
	case errors.Is(err, tables.ErrTargetOccupied), errors.Is(err, tables.ErrTableNotActive),
		errors.Is(err, tables.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, printing.ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		a.Log.Error("request failed", zap.String("path", r.URL.Path), zap.String("request_id", middleware.GetReqID(r.Context())), zap.Error(err))
	}
	writeJSON(w, code, map[string]any{"ok": false, "error": err.Error()})
}

// decode reads an optional JSON body into v. An empty body leaves v as is.
func decode(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return nil
}

// ---------- Snapshot ----------

func (a *API) getSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tables.Message{Type: tables.MessageTypeSnapshot, Payload: a.Tables.GetSnapshot()})
}

// ---------- Table lifecycle ----------

func (a *API) startTable(w http.ResponseWriter, r *http.Request) {
	t := a.Tables.OpenTable(chi.URLParam(r, "tableId"))
	writeOK(w, map[string]any{"table": t})
}

func (a *API) endTable(w http.ResponseWriter, r *http.Request) {
	t, err := a.Tables.CloseTable(chi.URLParam(r, "tableId"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"table": t})
}

func (a *API) precheck(w http.ResponseWriter, r *http.Request) {
	t, err := a.Tables.Precheck(chi.URLParam(r, "tableId"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"table": t})
}

// ---------- Lines ----------

func (a *API) addItem(w http.ResponseWriter, r *http.Request) {
	var p itemPayload
	if err := decode(r, &p); err != nil {
		a.writeError(w, r, err)
		return
	}
	// no default quantity here: a missing qty is rejected
	line, err := a.Tables.AddItem(chi.URLParam(r, "tableId"), p.input(p.AddedBy, 0))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"line": line})
}

func (a *API) updateItemQty(w http.ResponseWriter, r *http.Request) {
	var p struct {
		Qty      number `json:"qty"`
		Quantity number `json:"quantity"`
	}
	if err := decode(r, &p); err != nil {
		a.writeError(w, r, err)
		return
	}
	qty := p.Qty.qty(0)
	if !p.Qty.set {
		qty = p.Quantity.qty(0)
	}
	line, err := a.Tables.UpdateItemQty(chi.URLParam(r, "tableId"), chi.URLParam(r, "lineId"), qty)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"line": line})
}

func (a *API) removeItem(w http.ResponseWriter, r *http.Request) {
	if err := a.Tables.RemoveItem(chi.URLParam(r, "tableId"), chi.URLParam(r, "lineId")); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (a *API) removeItemsByNamePrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")
	price, err := strconv.ParseInt(q.Get("price"), 10, 64)
	if name == "" || err != nil {
		a.writeError(w, r, fmt.Errorf("%w: name and integer price are required", errBadPayload))
		return
	}
	n, err := a.Tables.RemoveItemsByNamePrice(chi.URLParam(r, "tableId"), name, price)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"removed": n})
}

// ---------- Move / merge ----------

type transferReq struct {
	To string `json:"to"`
}

func (a *API) transfer(w http.ResponseWriter, r *http.Request, op func(from, to string) error) {
	var req transferReq
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.To == "" {
		a.writeError(w, r, fmt.Errorf("%w: to is required", errBadPayload))
		return
	}
	if err := op(chi.URLParam(r, "tableId"), req.To); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (a *API) moveOrder(w http.ResponseWriter, r *http.Request) {
	a.transfer(w, r, a.Tables.MoveOrder)
}

func (a *API) mergeOrder(w http.ResponseWriter, r *http.Request) {
	a.transfer(w, r, a.Tables.MergeOrder)
}

// ---------- Receipt ----------

func (a *API) getReceipt(w http.ResponseWriter, r *http.Request) {
	rc, err := a.Tables.GetReceipt(chi.URLParam(r, "tableId"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"receipt": rc})
}

// ---------- Legacy order submission ----------

func (a *API) submitOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		a.writeError(w, r, fmt.Errorf("%w: %v", errBadPayload, err))
		return
	}
	tableID, ins, err := normalizeOrder(body)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	lines, err := a.Tables.SubmitOrder(tableID, ins)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"orderId": tables.OrderGroupID(tableID), "itemCount": len(lines), "lines": lines})
}

// ---------- Printing ----------

func (a *API) printReceipt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TableID string `json:"tableId"`
	}
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.TableID == "" {
		a.writeError(w, r, fmt.Errorf("%w: tableId is required", errBadPayload))
		return
	}
	rc, err := a.Desk.PrintReceipt(r.Context(), req.TableID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"total": rc.Total})
}

func (a *API) printOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TableID string `json:"tableId"`
		Target  string `json:"target"`
	}
	if err := decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.TableID == "" || req.Target == "" {
		a.writeError(w, r, fmt.Errorf("%w: tableId and target are required", errBadPayload))
		return
	}
	printed, err := a.Desk.PrintOrder(r.Context(), req.TableID, req.Target)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"printed": printed})
}

// ---------- Menu ----------

func (a *API) getMenu(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": a.Catalog.Active()})
}

func (a *API) reloadMenu(w http.ResponseWriter, r *http.Request) {
	if a.Source == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]any{"ok": false, "error": "menu reload not configured"})
		return
	}
	n, err := a.Catalog.Reload(r.Context(), a.Source)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.Log.Info("menu reloaded", zap.Int("products", n))
	writeOK(w, map[string]any{"count": n})
}
