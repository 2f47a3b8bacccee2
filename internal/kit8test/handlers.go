package kit8test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kit8-platform/kit8/internal/apperrors"
)

type record = map[string]any

// collection is a minimal in-memory table of JSON objects keyed by a numeric id.
type collection struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]record
}

func newCollection() *collection {
	return &collection{nextID: 1, items: make(map[int64]record)}
}

func (c *collection) insert(item record) record {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++

	item["id"] = id
	item["created_at"] = time.Now().UTC().Format(time.RFC3339)
	c.items[id] = item
	return item
}

func (c *collection) all() []record {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]int64, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]record, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.items[id])
	}
	return out
}

func (c *collection) find(id int64) (record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[id]
	return item, ok
}

func (c *collection) list(w http.ResponseWriter, r *http.Request) {
	respondWithData(w, http.StatusOK, c.all())
}

func (c *collection) create(w http.ResponseWriter, r *http.Request) {
	item, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	respondWithData(w, http.StatusCreated, c.insert(item))
}

func (c *collection) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	item, found := c.find(id)
	if !found {
		notFound(w, id)
		return
	}
	respondWithData(w, http.StatusOK, item)
}

func (c *collection) update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	changes, ok := decodeRecord(w, r)
	if !ok {
		return
	}

	c.mu.Lock()
	item, found := c.items[id]
	if found {
		for k, v := range changes {
			if k != "id" {
				item[k] = v
			}
		}
		item["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	}
	c.mu.Unlock()

	if !found {
		notFound(w, id)
		return
	}
	respondWithData(w, http.StatusOK, item)
}

func (c *collection) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	c.mu.Lock()
	_, found := c.items[id]
	delete(c.items, id)
	c.mu.Unlock()

	if !found {
		notFound(w, id)
		return
	}
	respondWithData(w, http.StatusOK, record{"id": id})
}

func (s *Server) handleContactDeals(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if _, found := s.contacts.find(id); !found {
		notFound(w, id)
		return
	}

	deals := []record{}
	for _, d := range s.deals.all() {
		if number(d["contact_id"]) == float64(id) {
			deals = append(deals, d)
		}
	}
	respondWithData(w, http.StatusOK, deals)
}

type stageTotal struct {
	Stage       string  `json:"stage"`
	Count       int     `json:"count"`
	TotalAmount float64 `json:"total_amount"`
}

func (s *Server) handleCRMStats(w http.ResponseWriter, r *http.Request) {
	deals := s.deals.all()

	byStage := map[string]*stageTotal{}
	for _, d := range deals {
		stage, _ := d["stage"].(string)
		if stage == "" {
			stage = "new"
		}
		st, ok := byStage[stage]
		if !ok {
			st = &stageTotal{Stage: stage}
			byStage[stage] = st
		}
		st.Count++
		st.TotalAmount += dealAmount(d)
	}

	dealsByStage := make([]*stageTotal, 0, len(byStage))
	for _, st := range byStage {
		dealsByStage = append(dealsByStage, st)
	}
	sort.Slice(dealsByStage, func(i, j int) bool { return dealsByStage[i].Stage < dealsByStage[j].Stage })

	respondWithData(w, http.StatusOK, map[string]any{
		"contacts":     len(s.contacts.all()),
		"deals":        len(deals),
		"dealsByStage": dealsByStage,
	})
}

func (s *Server) handleDealStats(w http.ResponseWriter, r *http.Request) {
	deals := s.deals.all()

	var won, lost int
	var total float64
	for _, d := range deals {
		switch d["stage"] {
		case "won":
			won++
		case "lost":
			lost++
		}
		total += dealAmount(d)
	}
	var avg float64
	if len(deals) > 0 {
		avg = total / float64(len(deals))
	}

	respondWithData(w, http.StatusOK, map[string]any{
		"total_count":   len(deals),
		"won_count":     won,
		"lost_count":    lost,
		"total_value":   total,
		"average_value": avg,
	})
}

func (s *Server) handleInventoryStats(w http.ResponseWriter, r *http.Request) {
	products := s.products.all()

	var value float64
	var low, out int
	for _, p := range products {
		qty := number(p["quantity"])
		value += qty * number(p["price"])
		switch {
		case qty <= 0:
			out++
		case qty < 5:
			low++
		}
	}

	respondWithData(w, http.StatusOK, map[string]any{
		"total_products":     len(products),
		"total_value":        value,
		"low_stock_count":    low,
		"out_of_stock_count": out,
	})
}

func (s *Server) handleOrderStats(w http.ResponseWriter, r *http.Request) {
	orders := s.orders.all()

	var revenue float64
	var pending, processing, completed int
	for _, o := range orders {
		revenue += number(o["total_amount"])
		switch o["status"] {
		case "new", "", nil:
			pending++
		case "confirmed", "in-progress", "shipped":
			processing++
		case "delivered":
			completed++
		}
	}

	respondWithData(w, http.StatusOK, map[string]any{
		"total_orders":      len(orders),
		"total_revenue":     revenue,
		"pending_orders":    pending,
		"processing_orders": processing,
		"completed_orders":  completed,
	})
}

func (s *Server) handleCashierStats(w http.ResponseWriter, r *http.Request) {
	payments := s.payments.all()

	var revenue, refunds float64
	for _, p := range payments {
		switch p["status"] {
		case "completed":
			revenue += number(p["amount"])
		case "refunded":
			refunds += number(p["amount"])
		}
	}

	respondWithData(w, http.StatusOK, map[string]any{
		"total_revenue":       revenue,
		"todays_revenue":      revenue,
		"total_transactions":  len(payments),
		"todays_transactions": len(payments),
		"refund_amount":       refunds,
	})
}

func (s *Server) handleProcessPayment(w http.ResponseWriter, r *http.Request) {
	payment, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	if number(payment["amount"]) <= 0 {
		writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest, "amount must be positive")
		return
	}
	payment["status"] = "completed"
	payment["transaction_id"] = fmt.Sprintf("TXN-%d", time.Now().UnixNano())
	respondWithData(w, http.StatusOK, s.payments.insert(payment))
}

func (s *Server) handleRefundPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	s.payments.mu.Lock()
	payment, found := s.payments.items[id]
	refundable := found && payment["status"] == "completed"
	if refundable {
		payment["status"] = "refunded"
	}
	s.payments.mu.Unlock()

	switch {
	case !found:
		notFound(w, id)
	case !refundable:
		writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest, "only completed payments can be refunded")
	default:
		respondWithData(w, http.StatusOK, payment)
	}
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (record, bool) {
	var item record
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil || item == nil {
		writeError(w, http.StatusBadRequest, apperrors.ErrCodeMalformedBody, "invalid request body")
		return nil, false
	}
	return item, true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidURLParam, "invalid id")
		return 0, false
	}
	return id, true
}

func notFound(w http.ResponseWriter, id int64) {
	writeError(w, http.StatusNotFound, apperrors.ErrCodeResourceNotFound, fmt.Sprintf("no item with id %d", id))
}

func writeError(w http.ResponseWriter, status int, code apperrors.ErrorCode, message string) {
	respondWithJSON(w, status, apperrors.ErrorResponse{ErrorCode: code, Message: message})
}

// number reads a JSON number that may have been decoded as float64 or stored as int64
func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

func dealAmount(d record) float64 {
	if v := number(d["value"]); v != 0 {
		return v
	}
	return number(d["amount"])
}
