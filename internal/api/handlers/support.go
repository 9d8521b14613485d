package handlers

import (
	goerrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/expresscouriers/checkout/internal/checkout"
	"github.com/expresscouriers/checkout/internal/config"
	"github.com/expresscouriers/checkout/internal/domain"
	"github.com/expresscouriers/checkout/internal/receipt"
	"github.com/expresscouriers/checkout/pkg/errors"
)

// FailedOrderResponse represents a failed order in support listings
type FailedOrderResponse struct {
	Key             string            `json:"key"`
	Reason          string            `json:"reason"`
	PaymentCaptured bool              `json:"payment_captured"`
	CreatedAt       string            `json:"created_at"`
	Draft           domain.OrderDraft `json:"draft"`
}

func toFailedOrderResponse(rec domain.FailedOrderRecord, loc *time.Location) FailedOrderResponse {
	return FailedOrderResponse{
		Key:             rec.Key,
		Reason:          rec.Reason,
		PaymentCaptured: rec.PaymentCaptured,
		CreatedAt:       rec.CreatedAt.In(loc).Format(time.RFC3339),
		Draft:           rec.Draft,
	}
}

// HandleListFailedOrders handles GET /v1/support/failed-orders
func HandleListFailedOrders(cfg *config.Config, recovery *checkout.Recovery, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := recovery.List(c.Request.Context())
		if err != nil {
			logger.Error("Failed to list failed orders", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		paidOnly := c.Query("paid") == "true"
		out := make([]FailedOrderResponse, 0, len(records))
		for _, rec := range records {
			if paidOnly && !rec.PaymentCaptured {
				continue
			}
			out = append(out, toFailedOrderResponse(rec, cfg.Location))
		}
		c.JSON(http.StatusOK, gin.H{"failed_orders": out, "count": len(out)})
	}
}

// HandleGetFailedOrder handles GET /v1/support/failed-orders/:key
func HandleGetFailedOrder(cfg *config.Config, recovery *checkout.Recovery, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := recovery.Get(c.Request.Context(), c.Param("key"))
		if err != nil {
			writeRecoveryError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, toFailedOrderResponse(rec, cfg.Location))
	}
}

// HandleFailedOrderReceipt handles GET /v1/support/failed-orders/:key/receipt
func HandleFailedOrderReceipt(cfg *config.Config, recovery *checkout.Recovery, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := recovery.Get(c.Request.Context(), c.Param("key"))
		if err != nil {
			writeRecoveryError(c, err, logger)
			return
		}

		pdfBytes, filename, err := receipt.Render(rec, cfg.Location)
		if err != nil {
			logger.Error("Failed to render recovery sheet", zap.String("key", rec.Key), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render recovery sheet"})
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, filename))
		c.Data(http.StatusOK, "application/pdf", pdfBytes)
	}
}

// HandleRedispatchFailedOrder handles POST /v1/support/failed-orders/:key/redispatch
func HandleRedispatchFailedOrder(recovery *checkout.Recovery, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		confirmation, result, err := recovery.Redispatch(c.Request.Context(), key)
		if err != nil {
			writeRecoveryError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"key":          key,
			"confirmation": confirmation,
			"dispatch":     result,
		})
	}
}

// HandleDeleteFailedOrder handles DELETE /v1/support/failed-orders/:key
func HandleDeleteFailedOrder(recovery *checkout.Recovery, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := recovery.Discard(c.Request.Context(), c.Param("key")); err != nil {
			writeRecoveryError(c, err, logger)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func writeRecoveryError(c *gin.Context, err error, logger *zap.Logger) {
	var (
		notFound   *errors.ErrNotFound
		validation *errors.ErrValidation
		dispatch   *errors.ErrDispatchFailed
	)
	switch {
	case goerrors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "failed order not found"})
	case goerrors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case goerrors.As(err, &dispatch):
		logger.Warn("Redispatch failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": dispatch.Error(), "details": err.Error()})
	default:
		logger.Error("Failed order request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
