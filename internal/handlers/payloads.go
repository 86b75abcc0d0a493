package handlers

import (
	"strings"

	"github.com/salonfield/backoffice/internal/domain"
	"github.com/salonfield/backoffice/internal/services"
)

type orderListResponse struct {
	Items []orderSummaryPayload `json:"items"`
}

type orderSummaryPayload struct {
	ID            string `json:"id"`
	OrderNumber   string `json:"order_number"`
	CustomerName  string `json:"customer_name,omitempty"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	TotalAmount   string `json:"total_amount"`
	CreatedAt     string `json:"created_at"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type paymentResponse struct {
	Order         orderPayload `json:"order"`
	TransactionID string       `json:"transaction_id"`
}

type refundResponse struct {
	Order         orderPayload `json:"order"`
	RefundID      string       `json:"refund_id"`
	FullyRefunded bool         `json:"fully_refunded"`
}

type orderPayload struct {
	ID                 string            `json:"id"`
	OrderNumber        string            `json:"order_number"`
	Customer           customerPayload   `json:"customer"`
	StaffID            string            `json:"staff_id,omitempty"`
	Status             string            `json:"status"`
	PaymentStatus      string            `json:"payment_status"`
	PaymentMethod      string            `json:"payment_method,omitempty"`
	Items              []lineItemPayload `json:"items"`
	Subtotal           string            `json:"subtotal"`
	TaxRate            string            `json:"tax_rate"`
	TaxAmount          string            `json:"tax_amount"`
	TipPercentage      string            `json:"tip_percentage"`
	TipAmount          string            `json:"tip_amount"`
	TotalAmount        string            `json:"total_amount"`
	TransactionID      *string           `json:"transaction_id,omitempty"`
	AuthorizationCode  *string           `json:"authorization_code,omitempty"`
	CardLast4          *string           `json:"card_last4,omitempty"`
	TerminalID         *string           `json:"terminal_id,omitempty"`
	PaymentCompletedAt string            `json:"payment_completed_at,omitempty"`
	RefundedTotal      string            `json:"refunded_total"`
	RefundableBalance  string            `json:"refundable_balance"`
	RefundReasons      []string          `json:"refund_reasons,omitempty"`
	Notes              string            `json:"notes,omitempty"`
	CancelReason       *string           `json:"cancel_reason,omitempty"`
	CancelledAt        string            `json:"cancelled_at,omitempty"`
	CreatedAt          string            `json:"created_at"`
	UpdatedAt          string            `json:"updated_at,omitempty"`
}

type customerPayload struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type lineItemPayload struct {
	ServiceID       string `json:"service_id,omitempty"`
	Name            string `json:"name"`
	Category        string `json:"category,omitempty"`
	UnitPrice       string `json:"unit_price"`
	Quantity        int    `json:"quantity"`
	ExtendedPrice   string `json:"extended_price"`
	StaffID         string `json:"staff_id,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

type draftPayload struct {
	Items         []lineItemPayload `json:"items"`
	TaxRate       string            `json:"tax_rate"`
	TipPercentage string            `json:"tip_percentage"`
	Subtotal      string            `json:"subtotal"`
	TaxAmount     string            `json:"tax_amount"`
	TipAmount     string            `json:"tip_amount"`
	TotalAmount   string            `json:"total_amount"`
}

func buildDraftPayload(draft services.PricedDraft) draftPayload {
	return draftPayload{
		Items:         buildLineItemPayloads(draft.Items),
		TaxRate:       draft.TaxRate.String(),
		TipPercentage: draft.TipPercentage.String(),
		Subtotal:      draft.Subtotal.StringFixed(2),
		TaxAmount:     draft.TaxAmount.StringFixed(2),
		TipAmount:     draft.TipAmount.StringFixed(2),
		TotalAmount:   draft.TotalAmount.StringFixed(2),
	}
}

func buildOrderSummary(order domain.Order) orderSummaryPayload {
	return orderSummaryPayload{
		ID:            strings.TrimSpace(order.ID),
		OrderNumber:   strings.TrimSpace(order.OrderNumber),
		CustomerName:  strings.TrimSpace(order.Customer.Name),
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		TotalAmount:   order.TotalAmount.StringFixed(2),
		CreatedAt:     formatTime(order.CreatedAt),
	}
}

func buildOrderPayload(order domain.Order) orderPayload {
	return orderPayload{
		ID:          strings.TrimSpace(order.ID),
		OrderNumber: strings.TrimSpace(order.OrderNumber),
		Customer: customerPayload{
			ID:    strings.TrimSpace(order.Customer.ID),
			Name:  strings.TrimSpace(order.Customer.Name),
			Phone: strings.TrimSpace(order.Customer.Phone),
		},
		StaffID:            strings.TrimSpace(order.StaffID),
		Status:             string(order.Status),
		PaymentStatus:      string(order.PaymentStatus),
		PaymentMethod:      string(order.PaymentMethod),
		Items:              buildLineItemPayloads(order.Items),
		Subtotal:           order.Subtotal.StringFixed(2),
		TaxRate:            order.TaxRate.String(),
		TaxAmount:          order.TaxAmount.StringFixed(2),
		TipPercentage:      order.TipPercentage.String(),
		TipAmount:          order.TipAmount.StringFixed(2),
		TotalAmount:        order.TotalAmount.StringFixed(2),
		TransactionID:      cloneStringPointer(order.TransactionID),
		AuthorizationCode:  cloneStringPointer(order.AuthorizationCode),
		CardLast4:          cloneStringPointer(order.CardLast4),
		TerminalID:         cloneStringPointer(order.TerminalID),
		PaymentCompletedAt: formatTime(pointerTime(order.PaymentCompletedAt)),
		RefundedTotal:      order.RefundedTotal.StringFixed(2),
		RefundableBalance:  order.RefundableBalance().StringFixed(2),
		RefundReasons:      append([]string(nil), order.RefundReasons...),
		Notes:              strings.TrimSpace(order.Notes),
		CancelReason:       cloneStringPointer(order.CancelReason),
		CancelledAt:        formatTime(pointerTime(order.CancelledAt)),
		CreatedAt:          formatTime(order.CreatedAt),
		UpdatedAt:          formatTime(order.UpdatedAt),
	}
}

func buildLineItemPayloads(items []domain.LineItem) []lineItemPayload {
	payloads := make([]lineItemPayload, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, lineItemPayload{
			ServiceID:       strings.TrimSpace(item.ServiceID),
			Name:            strings.TrimSpace(item.Name),
			Category:        strings.TrimSpace(item.Category),
			UnitPrice:       item.UnitPrice.StringFixed(2),
			Quantity:        item.Quantity,
			ExtendedPrice:   item.ExtendedPrice().StringFixed(2),
			StaffID:         strings.TrimSpace(item.StaffID),
			DurationMinutes: item.DurationMinutes,
		})
	}
	return payloads
}
