package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/12008yz/chibox-reveal/internal/models"
	"github.com/12008yz/chibox-reveal/internal/services"
)

type CaseHandler struct {
	orchestrator *services.Orchestrator
	redisService *services.RedisService
}

func NewCaseHandler(orchestrator *services.Orchestrator, redisService *services.RedisService) *CaseHandler {
	return &CaseHandler{
		orchestrator: orchestrator,
		redisService: redisService,
	}
}

// GetCaseItems loads the case preview: the annotated item list the reel
// animates over. An empty case renders as an explicit empty state, never as
// an error.
func (h *CaseHandler) GetCaseItems(c *gin.Context) {
	userID := c.GetInt64("user_id")
	caseID := c.Param("id")

	view, err := h.orchestrator.LoadPreview(c.Request.Context(), userID, caseID)
	if err != nil {
		if errors.Is(err, models.ErrEmptyCase) {
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"case_id": caseID,
				"items":   []gin.H{},
				"empty":   true,
			})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to load case items",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"case_id": view.CaseID,
		"daily":   view.Daily,
		"items":   view.Items,
		"count":   len(view.Items),
	})
}

func (h *CaseHandler) GetCaseStatus(c *gin.Context) {
	caseID := c.Param("id")

	status, err := h.orchestrator.CaseStatus(c.Request.Context(), caseID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to load case status",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  status,
	})
}

// PurchaseCase buys and, when possible, immediately opens and reveals the
// case. A purchase that needs an external payment page returns a redirect
// instead of starting a reveal.
func (h *CaseHandler) PurchaseCase(c *gin.Context) {
	userID := c.GetInt64("user_id")
	caseID := c.Param("id")

	var req struct {
		PaymentMethod string `json:"payment_method" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	// Rate Limit: 20 purchases per minute
	allowed, err := h.redisService.CheckRateLimit(userID, "purchase", 20, 1*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many purchases. Please wait."})
		return
	}

	outcome, err := h.orchestrator.PurchaseAndReveal(c.Request.Context(), userID, caseID, req.PaymentMethod)
	if err != nil {
		h.respondTransactionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  outcome,
	})
}

// OpenCase opens an owned inventory case or a free/daily case and starts the
// reveal for the returned item.
func (h *CaseHandler) OpenCase(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req struct {
		InventoryItemID string `json:"inventory_item_id"`
		CaseID          string `json:"case_id"`
		TemplateID      string `json:"template_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	ref := models.OpenRef{
		InventoryItemID: req.InventoryItemID,
		CaseID:          req.CaseID,
		TemplateID:      req.TemplateID,
	}
	if ref.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "One of inventory_item_id, case_id or template_id is required",
		})
		return
	}

	// Rate Limit: 30 opens per minute
	allowed, err := h.redisService.CheckRateLimit(userID, "open", 30, 1*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many opens. Please wait."})
		return
	}

	outcome, err := h.orchestrator.OpenOwnedCase(c.Request.Context(), userID, req.CaseID, ref)
	if err != nil {
		h.respondTransactionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  outcome,
	})
}

// ClosePreview tears down the user's case preview and abandons any running
// reveal, mirroring the modal being closed in the client.
func (h *CaseHandler) ClosePreview(c *gin.Context) {
	userID := c.GetInt64("user_id")
	h.orchestrator.ClosePreview(userID)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *CaseHandler) GetActiveReveal(c *gin.Context) {
	userID := c.GetInt64("user_id")

	state, items, ok := h.orchestrator.ActiveReveal(userID)
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"active":  false,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"active":  true,
		"state": gin.H{
			"session_id":    state.SessionID,
			"phase":         state.Phase,
			"cursor":        state.Cursor,
			"display_index": state.DisplayIndex,
			"daily":         state.Daily,
			"sparks":        state.Sparks,
			"strike":        state.Strike,
		},
		"items": items,
	})
}

func (h *CaseHandler) GetRevealHistory(c *gin.Context) {
	userID := c.GetInt64("user_id")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	records, err := h.redisService.GetRevealHistory(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get reveal history",
			"details": err.Error(),
		})
		return
	}

	var response []gin.H
	for _, record := range records {
		response = append(response, gin.H{
			"session_id": record.SessionID,
			"case_id":    record.CaseID,
			"item_id":    record.ItemID,
			"item_name":  record.ItemName,
			"rarity":     record.Rarity,
			"daily":      record.Daily,
			"created_at": record.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"reveals": response,
		"count":   len(response),
	})
}

// respondTransactionError maps the error taxonomy onto HTTP responses. A
// cooldown error tells the client to close the preview; everything else
// leaves the preview usable for an explicit retry.
func (h *CaseHandler) respondTransactionError(c *gin.Context, err error) {
	var funds *models.InsufficientFundsError
	if errors.As(err, &funds) {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":     "Insufficient funds",
			"details":   err.Error(),
			"required":  funds.Required,
			"available": funds.Available,
			"shortfall": funds.Shortfall(),
		})
		return
	}

	var claimed *models.AlreadyClaimedError
	if errors.As(err, &claimed) {
		c.JSON(http.StatusConflict, gin.H{
			"error":          "Case already claimed",
			"details":        err.Error(),
			"close_preview":  true,
			"next_available": claimed.NextAvailable,
		})
		return
	}

	c.JSON(http.StatusBadGateway, gin.H{
		"error":   "Case transaction failed",
		"details": err.Error(),
	})
}
