package handlers

import (
	"net/http"

	"invostock/internal/engine/inventory"
	"invostock/internal/pkg/errors"
	"invostock/internal/pkg/validator"
	"invostock/internal/platform/audit"
)

var errZeroAdjustment = errors.Invalid("Promjena zalihe ne može biti nula")

type InventoryHandler struct {
	repo  *inventory.Repository
	audit *audit.Logger
}

func NewInventoryHandler(repo *inventory.Repository, auditLog *audit.Logger) *InventoryHandler {
	return &InventoryHandler{repo: repo, audit: auditLog}
}

func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.repo.List(r.Context(), scopeOf(r), inventory.Filter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		LowStock: q.Get("low_stock") == "true",
	})
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	item, err := h.repo.Get(r.Context(), scopeOf(r), id)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in inventory.Input
	if err := validator.DecodeJSON(r, &in); err != nil {
		errors.Write(w, r, err)
		return
	}
	scope := scopeOf(r)
	item, err := h.repo.Create(r.Context(), scope, in)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "inventory.create", "inventory_item", item.ID, nil))
	writeJSON(w, http.StatusCreated, item)
}

func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	var in inventory.Input
	if err := validator.DecodeJSON(r, &in); err != nil {
		errors.Write(w, r, err)
		return
	}
	item, err := h.repo.Update(r.Context(), scopeOf(r), id, in)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	scope := scopeOf(r)
	if err := h.repo.Delete(r.Context(), scope, id); err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "inventory.delete", "inventory_item", id, nil))
	writeJSON(w, http.StatusOK, deleted{Deleted: true, ID: id})
}

type AdjustStockRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason" validate:"max=500"`
}

func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	var req AdjustStockRequest
	if err := validator.Decode(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}
	if req.Delta == 0 {
		errors.Write(w, r, errZeroAdjustment)
		return
	}

	scope := scopeOf(r)
	item, err := h.repo.AdjustStock(r.Context(), scope, id, req.Delta)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "inventory.adjust", "inventory_item", id, map[string]interface{}{
		"delta":  req.Delta,
		"reason": req.Reason,
	}))
	writeJSON(w, http.StatusOK, item)
}
