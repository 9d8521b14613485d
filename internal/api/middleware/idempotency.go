package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/expresscouriers/checkout/internal/domain"
	"github.com/expresscouriers/checkout/internal/repository"
)

const (
	IdempotencyKeyHeader     = "Idempotency-Key"
	IdempotentReplayedHeader = "Idempotent-Replayed"
)

// bodyRecorder keeps a copy of what the handler wrote
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotencyMiddleware replays the first response given for an Idempotency-Key.
// The key is reserved before the handler runs, so a concurrent retry with the same key
// gets 409 instead of running the handler twice. Reusing a key with a different method,
// path or body is also a conflict.
func IdempotencyMiddleware(keys repository.IdempotencyKeyRepository, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only apply to POST/PUT/PATCH/DELETE requests
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
		if idempotencyKey == "" {
			c.Next()
			return
		}

		// Read request body
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			logger.Error("Failed to read request body for idempotency", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process request"})
			c.Abort()
			return
		}

		// Restore body for handler
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		h := sha256.New()
		h.Write([]byte(c.Request.Method + " " + c.Request.URL.Path + "\n"))
		h.Write(body)
		requestHash := hex.EncodeToString(h.Sum(nil))

		ctx := c.Request.Context()
		reserved, err := keys.Reserve(ctx, idempotencyKey, requestHash)
		if err != nil {
			logger.Error("Failed to reserve idempotency key", zap.Error(err))
			c.Next()
			return
		}

		if !reserved {
			existingKey, err := keys.GetByKey(ctx, idempotencyKey)
			if err != nil {
				logger.Error("Failed to check idempotency key", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process request"})
				c.Abort()
				return
			}
			replayOrReject(c, existingKey, requestHash)
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		// the request may be gone by now; the key must still be settled
		settleCtx := context.WithoutCancel(ctx)
		status := rec.Status()
		if status >= http.StatusInternalServerError {
			if err := keys.Release(settleCtx, idempotencyKey); err != nil {
				logger.Warn("Failed to release idempotency key", zap.String("key", idempotencyKey), zap.Error(err))
			}
			return
		}
		if err := keys.Complete(settleCtx, idempotencyKey, status, rec.body.Bytes()); err != nil {
			logger.Warn("Failed to store idempotency key", zap.String("key", idempotencyKey), zap.Error(err))
		}
	}
}

func replayOrReject(c *gin.Context, existing *domain.IdempotencyKey, requestHash string) {
	switch {
	case existing == nil:
		// released between Reserve and GetByKey; the client can retry
		c.JSON(http.StatusConflict, gin.H{"error": "idempotency key is being released, retry the request"})
	case existing.RequestHash != requestHash:
		// Same key, different request - conflict
		c.JSON(http.StatusConflict, gin.H{
			"error": "idempotency key conflict: same key used with a different request",
		})
	case existing.InProgress():
		c.JSON(http.StatusConflict, gin.H{"error": "a request with this idempotency key is still in progress"})
	default:
		c.Header(IdempotentReplayedHeader, "true")
		c.Data(existing.ResponseStatus, "application/json; charset=utf-8", existing.ResponseBody)
	}
	c.Abort()
}
