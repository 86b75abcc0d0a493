package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/salonfield/backoffice/internal/domain"
	"github.com/salonfield/backoffice/internal/gateway"
	"github.com/salonfield/backoffice/internal/platform/httpx"
	"github.com/salonfield/backoffice/internal/repositories"
	"github.com/salonfield/backoffice/internal/services"
)

const (
	defaultOrderListLimit = 50
	maxOrderListLimit     = 200
	maxOrderBodySize      = 64 * 1024
)

// PricingDefaults supplies the rates applied when a draft omits them.
type PricingDefaults struct {
	TaxRate       decimal.Decimal
	TipPercentage decimal.Decimal
}

// OrderHandlers exposes the order lifecycle endpoints.
type OrderHandlers struct {
	orders   services.OrderService
	payments services.PaymentService
	refunds  services.RefundService
	defaults PricingDefaults
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(orders services.OrderService, payments services.PaymentService, refunds services.RefundService, defaults PricingDefaults) *OrderHandlers {
	return &OrderHandlers{
		orders:   orders,
		payments: payments,
		refunds:  refunds,
		defaults: defaults,
	}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/orders:price", h.priceDraft)
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Post("/orders/{orderID}:pay", h.payOrder)
	r.Post("/orders/{orderID}:refund", h.refundOrder)
	r.Post("/orders/{orderID}:transition", h.transitionOrder)
	r.Post("/orders/{orderID}:cancel", h.cancelOrder)
}

type lineItemRequest struct {
	ServiceID       string `json:"service_id"`
	Name            string `json:"name"`
	Category        string `json:"category,omitempty"`
	UnitPrice       string `json:"unit_price"`
	Quantity        int    `json:"quantity"`
	StaffID         string `json:"staff_id,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

type priceDraftRequest struct {
	Items         []lineItemRequest `json:"items"`
	TaxRate       *string           `json:"tax_rate,omitempty"`
	TipPercentage *string           `json:"tip_percentage,omitempty"`
}

type customerRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type createOrderRequest struct {
	priceDraftRequest
	Customer      customerRequest `json:"customer"`
	StaffID       string          `json:"staff_id,omitempty"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes,omitempty"`
}

type payOrderRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type refundOrderRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

type transitionOrderRequest struct {
	Status string `json:"status"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (h *OrderHandlers) priceDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req priceDraftRequest
	if !h.decodeBody(ctx, w, r, &req) {
		return
	}

	items, taxRate, tipPercentage, err := h.resolveDraft(req)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	draft, err := services.PriceDraft(items, taxRate, tipPercentage)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildDraftPayload(draft))
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createOrderRequest
	if !h.decodeBody(ctx, w, r, &req) {
		return
	}

	items, taxRate, tipPercentage, err := h.resolveDraft(req.priceDraftRequest)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	draft, err := services.PriceDraft(items, taxRate, tipPercentage)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	method := domain.PaymentMethodCash
	if raw := strings.TrimSpace(req.PaymentMethod); raw != "" {
		parsed, err := domain.ToPaymentMethod(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "payment_method must be a valid payment method", http.StatusBadRequest))
			return
		}
		method = parsed
	}

	order, err := h.orders.Create(ctx, services.CreateOrderCommand{
		Draft: draft,
		Customer: domain.CustomerRef{
			ID:    strings.TrimSpace(req.Customer.ID),
			Name:  strings.TrimSpace(req.Customer.Name),
			Phone: strings.TrimSpace(req.Customer.Phone),
		},
		StaffID:       strings.TrimSpace(req.StaffID),
		PaymentMethod: method,
		Notes:         strings.TrimSpace(req.Notes),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()

	var filter repositories.OrderListFilter
	for _, raw := range query["status"] {
		status, err := domain.ToOrderStatus(strings.TrimSpace(raw))
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status must be a valid order status", http.StatusBadRequest))
			return
		}
		filter.Status = append(filter.Status, status)
	}
	for _, raw := range query["payment_status"] {
		status, err := domain.ToPaymentStatus(strings.TrimSpace(raw))
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "payment_status must be a valid payment status", http.StatusBadRequest))
			return
		}
		filter.PaymentStatus = append(filter.PaymentStatus, status)
	}
	filter.CustomerID = strings.TrimSpace(query.Get("customer_id"))

	limit := defaultOrderListLimit
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit must be an integer", http.StatusBadRequest))
			return
		}
		switch {
		case parsed <= 0:
			limit = defaultOrderListLimit
		case parsed > maxOrderListLimit:
			limit = maxOrderListLimit
		default:
			limit = parsed
		}
	}
	filter.Limit = limit

	orders, err := h.orders.List(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderSummaryPayload, 0, len(orders))
	for _, order := range orders {
		items = append(items, buildOrderSummary(order))
	}
	writeJSONResponse(w, http.StatusOK, orderListResponse{Items: items})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	order, err := h.orders.Get(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) payOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_service_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	var req payOrderRequest
	if !h.decodeBody(ctx, w, r, &req) {
		return
	}

	method, err := domain.ToPaymentMethod(strings.TrimSpace(req.PaymentMethod))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "payment_method must be a valid payment method", http.StatusBadRequest))
		return
	}

	outcome, err := h.payments.SubmitPayment(ctx, services.SubmitPaymentCommand{
		OrderID: orderID,
		Method:  method,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, paymentResponse{
		Order:         buildOrderPayload(outcome.Order),
		TransactionID: outcome.TransactionID,
	})
}

func (h *OrderHandlers) refundOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.refunds == nil {
		httpx.WriteError(ctx, w, httpx.NewError("refund_service_unavailable", "refund service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	var req refundOrderRequest
	if !h.decodeBody(ctx, w, r, &req) {
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "amount must be a decimal string", http.StatusBadRequest))
		return
	}

	outcome, err := h.refunds.SubmitRefund(ctx, services.SubmitRefundCommand{
		OrderID: orderID,
		Amount:  amount,
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, refundResponse{
		Order:         buildOrderPayload(outcome.Order),
		RefundID:      outcome.RefundID,
		FullyRefunded: outcome.FullyRefunded,
	})
}

func (h *OrderHandlers) transitionOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	var req transitionOrderRequest
	if !h.decodeBody(ctx, w, r, &req) {
		return
	}

	target, err := domain.ToOrderStatus(strings.TrimSpace(req.Status))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status must be a valid order status", http.StatusBadRequest))
		return
	}

	order, err := h.orders.TransitionStatus(ctx, services.TransitionStatusCommand{
		OrderID: orderID,
		Target:  target,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	var req cancelOrderRequest
	if !h.decodeBody(ctx, w, r, &req) {
		return
	}

	order, err := h.orders.Cancel(ctx, services.CancelOrderCommand{
		OrderID: orderID,
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

// resolveDraft converts the request items and applies the configured default
// rates when the request omits them.
func (h *OrderHandlers) resolveDraft(req priceDraftRequest) ([]domain.LineItem, decimal.Decimal, decimal.Decimal, error) {
	items := make([]domain.LineItem, 0, len(req.Items))
	for i, item := range req.Items {
		unitPrice, err := decimal.NewFromString(strings.TrimSpace(item.UnitPrice))
		if err != nil {
			return nil, decimal.Zero, decimal.Zero, fmt.Errorf("%w: line item %d unit_price must be a decimal string", services.ErrInvalidInput, i)
		}
		items = append(items, domain.LineItem{
			ServiceID:       strings.TrimSpace(item.ServiceID),
			Name:            strings.TrimSpace(item.Name),
			Category:        strings.TrimSpace(item.Category),
			UnitPrice:       unitPrice,
			Quantity:        item.Quantity,
			StaffID:         strings.TrimSpace(item.StaffID),
			DurationMinutes: item.DurationMinutes,
		})
	}

	taxRate := h.defaults.TaxRate
	if req.TaxRate != nil {
		parsed, err := decimal.NewFromString(strings.TrimSpace(*req.TaxRate))
		if err != nil {
			return nil, decimal.Zero, decimal.Zero, fmt.Errorf("%w: tax_rate must be a decimal string", services.ErrInvalidInput)
		}
		taxRate = parsed
	}

	tipPercentage := h.defaults.TipPercentage
	if req.TipPercentage != nil {
		parsed, err := decimal.NewFromString(strings.TrimSpace(*req.TipPercentage))
		if err != nil {
			return nil, decimal.Zero, decimal.Zero, fmt.Errorf("%w: tip_percentage must be a decimal string", services.ErrInvalidInput)
		}
		tipPercentage = parsed
	}

	return items, taxRate, tipPercentage, nil
}

func (h *OrderHandlers) decodeBody(ctx context.Context, w http.ResponseWriter, r *http.Request, target any) bool {
	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		case errors.Is(err, errEmptyBody):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return false
	}
	if err := json.Unmarshal(body, target); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return false
	}
	return true
}

func requireOrderID(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, bool) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return "", false
	}
	return orderID, true
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrInvalidAmount):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_amount", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, gateway.ErrDeclined):
		httpx.WriteError(ctx, w, httpx.NewError("payment_declined", err.Error(), http.StatusPaymentRequired))
	case errors.Is(err, gateway.ErrUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("gateway_unavailable", err.Error(), http.StatusBadGateway))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}
