package models

import (
	"time"

	"github.com/google/uuid"
)

// CreditPack is a purchasable bundle. The catalog is fixed; prices are cents.
type CreditPack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Credits    int    `json:"credits"`
	PriceCents int    `json:"price_cents"`
}

// CreditPacks is the purchasable catalog, ordered cheapest first.
var CreditPacks = []CreditPack{
	{ID: "starter", Name: "Starter", Credits: 50, PriceCents: 499},
	{ID: "plus", Name: "Plus", Credits: 120, PriceCents: 999},
	{ID: "pro", Name: "Pro", Credits: 300, PriceCents: 1999},
}

// PackByID returns the pack with the given id, or nil.
func PackByID(id string) *CreditPack {
	for i := range CreditPacks {
		if CreditPacks[i].ID == id {
			return &CreditPacks[i]
		}
	}
	return nil
}

// Payment event statuses. An event moves received -> credited exactly once;
// duplicate webhook deliveries never create a second row (event_id is unique).
const (
	PaymentStatusPending  = "pending"
	PaymentStatusReceived = "received"
	PaymentStatusCredited = "credited"
)

type PaymentEvent struct {
	EventID   string    `json:"event_id"`
	UserID    uuid.UUID `json:"user_id"`
	PackID    string    `json:"pack_id"`
	Credits   int       `json:"credits"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
