package httpapi

import (
	"net/http"
	"strings"
	"time"

	"storefront-api/internal/store"
)

type customerPayload struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	City      string    `json:"city"`
	CreatedAt time.Time `json:"created_at"`
}

func customerToPayload(c store.Customer) customerPayload {
	return customerPayload{
		ID:        c.ID,
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		City:      c.City,
		CreatedAt: c.CreatedAt,
	}
}

func (c customerPayload) validate() string {
	email := strings.TrimSpace(c.Email)
	switch {
	case email == "":
		return "email is required"
	case !strings.Contains(email, "@"):
		return "email is malformed"
	case strings.TrimSpace(c.FirstName) == "":
		return "first_name is required"
	case strings.TrimSpace(c.LastName) == "":
		return "last_name is required"
	default:
		return ""
	}
}

func (a *API) listCustomers(w http.ResponseWriter, r *http.Request) {
	if email := r.URL.Query().Get("email"); email != "" {
		c, err := a.cfg.Customers.GetByEmail(r.Context(), email)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, []customerPayload{customerToPayload(*c)})
		return
	}

	limit, err := a.queryLimit(r)
	if err != nil {
		writeBadRequest(w, "%v", err)
		return
	}

	customers, err := a.cfg.Customers.List(r.Context(), limit)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	payload := make([]customerPayload, 0, len(customers))
	for _, c := range customers {
		payload = append(payload, customerToPayload(c))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (a *API) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, "%v", err)
		return
	}

	c, err := a.cfg.Customers.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customerToPayload(*c))
}

func (a *API) createCustomer(w http.ResponseWriter, r *http.Request) {
	var payload customerPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, "invalid request body: %v", err)
		return
	}
	if msg := payload.validate(); msg != "" {
		writeBadRequest(w, "%s", msg)
		return
	}

	created, err := a.cfg.Customers.Create(r.Context(), store.Customer{
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		City:      payload.City,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, customerToPayload(*created))
}

func (a *API) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, "%v", err)
		return
	}

	var payload customerPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, "invalid request body: %v", err)
		return
	}
	if msg := payload.validate(); msg != "" {
		writeBadRequest(w, "%s", msg)
		return
	}

	err = a.cfg.Customers.Update(r.Context(), store.Customer{
		ID:        id,
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		City:      payload.City,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, "%v", err)
		return
	}

	if err := a.cfg.Customers.Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listCustomerOrders returns a customer's orders as flat rows, without the
// joined customer and item detail.
func (a *API) listCustomerOrders(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, "%v", err)
		return
	}

	orders, err := a.cfg.Orders.ListByCustomer(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	payload := make([]orderPayload, 0, len(orders))
	for _, o := range orders {
		payload = append(payload, orderToPayload(o))
	}
	writeJSON(w, http.StatusOK, payload)
}
