package www

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (h *Handlers) apiHealth(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, h.engine.Health())
}

func (h *Handlers) apiListConveyors(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, h.engine.State().ConveyorStates())
}

func (h *Handlers) apiGetConveyor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	line, ok := h.engine.Lines().Get(id)
	if !ok {
		h.jsonError(w, "not found", http.StatusNotFound)
		return
	}
	h.jsonOK(w, line.Snapshot())
}

func (h *Handlers) apiListWarehouses(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, h.engine.State().WarehouseStates())
}

func (h *Handlers) apiListOrders(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, h.engine.Scheduler().List())
}

func (h *Handlers) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	order, ok := h.engine.Scheduler().Get(id)
	if !ok {
		h.jsonError(w, "not found", http.StatusNotFound)
		return
	}
	h.jsonOK(w, order)
}

func (h *Handlers) limit(r *http.Request) int {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	return limit
}

func (h *Handlers) apiListTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.engine.DB().ListTransfers(h.limit(r))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, transfers)
}

func (h *Handlers) apiListAlarms(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "1"
	alarms, err := h.engine.DB().ListAlarms(activeOnly, h.limit(r))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, alarms)
}

func (h *Handlers) apiListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.engine.DB().ListRecentEvents(h.limit(r))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, events)
}

func (h *Handlers) apiListQuality(w http.ResponseWriter, r *http.Request) {
	records, err := h.engine.DB().ListQuality(h.limit(r))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, records)
}
