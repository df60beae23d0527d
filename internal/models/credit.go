package models

import (
	"time"

	"github.com/google/uuid"
)

// Credit entry_type values. Every balance mutation writes exactly one entry.
const (
	CreditEntryDailyBonus    = "daily_bonus"
	CreditEntryInsightCharge = "insight_charge"
	CreditEntryInsightRefund = "insight_refund"
	CreditEntryPurchase      = "purchase"
	CreditEntrySignupGrant   = "signup_grant"
)

type CreditEntry struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	EntryType    string    `json:"entry_type"`
	Amount       int       `json:"amount"`
	BalanceAfter int       `json:"balance_after"`
	Reference    *string   `json:"reference,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
