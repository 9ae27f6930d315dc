package models_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/12008yz/chibox-reveal/internal/models"
)

func TestCaseItemJSONRoundTrip(t *testing.T) {
	raw := `{
		"id": "a1b2",
		"name": "Karambit | Doppler",
		"rarity": "covert",
		"price": "124.50",
		"is_excluded": true,
		"is_already_dropped": true,
		"drop_chance_percent": 0.08,
		"drop_weight": 12,
		"modified_weight": 9.6,
		"weight_multiplier": 0.8,
		"bonus_applied": true
	}`

	var item models.CaseItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !item.Price.Equal(decimal.RequireFromString("124.50")) {
		t.Errorf("price = %s", item.Price)
	}
	if !item.IsExcluded || !item.IsAlreadyDropped {
		t.Error("exclusion flags lost")
	}
	if item.ModifiedWeight != 9.6 || !item.BonusApplied {
		t.Error("weight metadata lost")
	}
}

func TestInsufficientFundsShortfall(t *testing.T) {
	err := &models.InsufficientFundsError{
		Required:  decimal.NewFromInt(500),
		Available: decimal.NewFromInt(120),
	}

	if !err.Shortfall().Equal(decimal.NewFromInt(380)) {
		t.Errorf("shortfall = %s, want 380", err.Shortfall())
	}
	if !strings.Contains(err.Error(), "380") {
		t.Errorf("message must contain the exact shortfall: %q", err.Error())
	}

	var target *models.InsufficientFundsError
	if !errors.As(error(err), &target) {
		t.Error("errors.As must match InsufficientFundsError")
	}
}

func TestOpenRefIsZero(t *testing.T) {
	if !(models.OpenRef{}).IsZero() {
		t.Error("empty ref should be zero")
	}
	if (models.OpenRef{CaseID: "x"}).IsZero() {
		t.Error("ref with case id is not zero")
	}
}
