package models

import "github.com/shopspring/decimal"

// DefaultDailyCaseID is the single date-limited case template that offers one
// free opening per day and forbids repeat drops. Every other case id never
// exhibits exclusion behavior.
const DefaultDailyCaseID = "44444444-4444-4444-4444-444444444444"

type CaseItem struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Rarity string          `json:"rarity"`
	Price  decimal.Decimal `json:"price"`

	// IsExcluded is true only when the item was already awarded to this user
	// from the daily case and the case forbids repeats.
	IsExcluded       bool `json:"is_excluded"`
	IsAlreadyDropped bool `json:"is_already_dropped"`

	// Server-computed drop metadata, opaque to the reveal engine.
	DropChancePercent float64 `json:"drop_chance_percent"`
	DropWeight        float64 `json:"drop_weight"`
	ModifiedWeight    float64 `json:"modified_weight"`
	WeightMultiplier  float64 `json:"weight_multiplier"`
	BonusApplied      bool    `json:"bonus_applied"`
}

type CaseStatus struct {
	CaseID               string          `json:"case_id"`
	CanOpen              bool            `json:"can_open"`
	CanBuy               bool            `json:"can_buy"`
	Price                decimal.Decimal `json:"price"`
	Reason               string          `json:"reason,omitempty"`
	SubscriptionRequired bool            `json:"subscription_required,omitempty"`
	MinSubscriptionTier  int             `json:"min_subscription_tier,omitempty"`
	NextAvailableTime    string          `json:"next_available_time,omitempty"`
}

// OpenRef identifies the case instance to open. Exactly one field is set:
// an owned inventory item, a case id (free/daily cases), or a template id.
type OpenRef struct {
	InventoryItemID string `json:"inventory_item_id,omitempty"`
	CaseID          string `json:"case_id,omitempty"`
	TemplateID      string `json:"template_id,omitempty"`
}

func (r OpenRef) IsZero() bool {
	return r.InventoryItemID == "" && r.CaseID == "" && r.TemplateID == ""
}

// PurchaseResult is the platform's answer to a purchase call. Either the
// purchase opens immediately (InventoryCaseID set) or the user must be
// redirected to an external payment page first.
type PurchaseResult struct {
	PaymentURL      string `json:"payment_url,omitempty"`
	InventoryCaseID string `json:"inventory_case_id,omitempty"`
}

// RevealRecord is the persisted outcome of one finished reveal session.
type RevealRecord struct {
	SessionID string `json:"session_id"`
	UserID    int64  `json:"user_id"`
	CaseID    string `json:"case_id"`
	ItemID    string `json:"item_id"`
	ItemName  string `json:"item_name"`
	Rarity    string `json:"rarity"`
	Daily     bool   `json:"daily"`
	Degraded  bool   `json:"degraded"`
	CreatedAt int64  `json:"created_at"`
}
