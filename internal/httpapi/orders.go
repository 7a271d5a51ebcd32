package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"storefront-api/internal/store"
)

// orderPayload is the wire shape of an order. Customer and Items are present
// only on the detail endpoints.
type orderPayload struct {
	ID         int64     `json:"id"`
	Ref        string    `json:"ref"`
	CustomerID int64     `json:"customer_id"`
	Status     string    `json:"status"`
	PlacedAt   time.Time `json:"placed_at"`

	Customer *customerPayload   `json:"customer,omitempty"`
	Items    []orderItemPayload `json:"items,omitzero"`
}

type orderItemPayload struct {
	ID        int64   `json:"id"`
	ProductID int64   `json:"product_id"`
	Quantity  int64   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

func orderToPayload(o store.Order) orderPayload {
	return orderPayload{
		ID:         o.ID,
		Ref:        o.Ref,
		CustomerID: o.CustomerID,
		Status:     o.Status,
		PlacedAt:   o.PlacedAt,
	}
}

// orderDetailToPayload keeps the item slice non-nil so childless orders
// serialize as "items": [] rather than omitting the key.
func orderDetailToPayload(o *store.Order) orderPayload {
	payload := orderToPayload(*o)
	if o.Customer != nil {
		c := customerToPayload(*o.Customer)
		payload.Customer = &c
	}
	items := make([]orderItemPayload, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemPayload{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	payload.Items = items
	return payload
}

type createOrderRequest struct {
	CustomerID int64 `json:"customer_id"`
	Items      []struct {
		ProductID int64   `json:"product_id"`
		Quantity  int64   `json:"quantity"`
		UnitPrice float64 `json:"unit_price"`
	} `json:"items"`
}

func (req createOrderRequest) validate() string {
	if req.CustomerID < 1 {
		return "customer_id is required"
	}
	if len(req.Items) == 0 {
		return "at least one item is required"
	}
	for i, item := range req.Items {
		switch {
		case item.ProductID < 1:
			return "items[" + strconv.Itoa(i) + "]: product_id is required"
		case item.Quantity < 1:
			return "items[" + strconv.Itoa(i) + "]: quantity must be positive"
		case item.UnitPrice < 0:
			return "items[" + strconv.Itoa(i) + "]: unit_price cannot be negative"
		}
	}
	return ""
}

var validOrderStatuses = map[string]bool{
	store.OrderStatusPending:   true,
	store.OrderStatusPaid:      true,
	store.OrderStatusShipped:   true,
	store.OrderStatusCancelled: true,
}

// listOrders serves detail listings filtered by customer. An unfiltered
// order dump is intentionally not offered.
func (a *API) listOrders(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("customer_id")
	if raw == "" {
		writeBadRequest(w, "customer_id query parameter is required")
		return
	}
	customerID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || customerID < 1 {
		writeBadRequest(w, "invalid customer_id %q", raw)
		return
	}

	orders, err := a.cfg.Orders.ListDetailByCustomer(r.Context(), customerID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	payload := make([]orderPayload, 0, len(orders))
	for _, o := range orders {
		payload = append(payload, orderDetailToPayload(o))
	}
	writeJSON(w, http.StatusOK, payload)
}

// getOrder returns the aggregated detail view: order, customer, items.
func (a *API) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, "%v", err)
		return
	}

	o, err := a.cfg.Orders.GetDetail(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderDetailToPayload(o))
}

// createOrder writes the order header and all items in one transaction and
// responds with the aggregated detail of the new order.
func (a *API) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body: %v", err)
		return
	}
	if msg := req.validate(); msg != "" {
		writeBadRequest(w, "%s", msg)
		return
	}

	items := make([]store.NewOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, store.NewOrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	id, err := a.cfg.Orders.Create(r.Context(), req.CustomerID, items)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	o, err := a.cfg.Orders.GetDetail(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderDetailToPayload(o))
}

func (a *API) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, "%v", err)
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, "invalid request body: %v", err)
		return
	}
	if !validOrderStatuses[payload.Status] {
		writeBadRequest(w, "invalid status %q", payload.Status)
		return
	}

	if err := a.cfg.Orders.UpdateStatus(r.Context(), id, payload.Status); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, "%v", err)
		return
	}

	if err := a.cfg.Orders.Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
