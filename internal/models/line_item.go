package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem represents a single purchased product on a receipt.
type LineItem struct {
	// LineID is the unique identifier, allocated from the "line_items" sequence.
	LineID int64

	// ReceiptID groups line items bought together.
	ReceiptID string

	// StoreName is where the receipt came from.
	StoreName string

	// PurchaseDate is the date on the receipt.
	PurchaseDate time.Time

	// ItemName describes the product (e.g., "Milk", "Paper towels").
	ItemName string

	// Price is the amount paid for the item in dollars. Never negative.
	Price decimal.Decimal

	// PaidBy is the participant who paid for the item.
	// Items with a zero PaidBy are left out of balances.
	PaidBy ParticipantID
}
