package www

import (
	"encoding/json"
	"net/http"

	"cellcore/engine"
)

func (h *Handlers) apiCommand(w http.ResponseWriter, r *http.Request) {
	var cmd engine.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.jsonError(w, "invalid command payload", http.StatusBadRequest)
		return
	}
	result, err := h.engine.Execute(cmd)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.jsonOK(w, map[string]string{"result": result})
}

func (h *Handlers) apiCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductType string `json:"product_type"`
		Quantity    int    `json:"quantity"`
		Priority    int    `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid order payload", http.StatusBadRequest)
		return
	}
	id, err := h.engine.Scheduler().CreateOrder(req.ProductType, req.Quantity, req.Priority)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.jsonOK(w, map[string]string{"order_id": id})
}
