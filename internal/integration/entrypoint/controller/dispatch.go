// Package controller implements HTTP handlers for the API endpoints.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/facturio/backend/internal/application/usecase/dispatch"
	domainerror "github.com/facturio/backend/internal/domain/error"
	"github.com/facturio/backend/internal/integration/entrypoint/dto"
)

// DispatchController exposes the follow-up dispatch trigger. An external
// scheduler (cron) calls it on a fixed interval; the engine itself has no
// internal timer.
type DispatchController struct {
	dispatcher *dispatch.Dispatcher
	runTimeout time.Duration
}

// NewDispatchController creates a new dispatch controller instance.
func NewDispatchController(dispatcher *dispatch.Dispatcher, runTimeout time.Duration) *DispatchController {
	return &DispatchController{
		dispatcher: dispatcher,
		runTimeout: runTimeout,
	}
}

// Trigger handles POST /internal/followups/dispatch requests. No body is
// required. Partial item failures still return 200; only a run-level error
// (the due query failing entirely) returns 500.
func (h *DispatchController) Trigger(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.runTimeout)
	defer cancel()

	result, err := h.dispatcher.RunOnce(ctx)
	if err != nil {
		slog.Error("Dispatch run failed", "error", err)

		code := ""
		var fe *domainerror.FollowUpError
		if errors.As(err, &fe) {
			code = string(fe.Code)
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "dispatch run failed",
			Code:  code,
		})
		return
	}

	c.JSON(http.StatusOK, dto.DispatchResponse{
		OK:        true,
		Processed: result.Processed,
		Results: dto.DispatchResults{
			HighPriority:   result.HighPriority,
			MediumPriority: result.MediumPriority,
			LowPriority:    result.LowPriority,
			Failed:         result.Failed,
			Total:          result.Processed + result.Failed,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
