// dispatch.go: endpoints that drive the notification engine.
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// proximitySampleRequest is one live distance sample from the tracking
// pipeline.
type proximitySampleRequest struct {
	DealID      uint    `json:"dealId"`
	ClientID    string  `json:"clientId"`
	CarrierName string  `json:"carrierName"`
	DistanceKm  float64 `json:"distanceKm"`
}

// BroadcastOrder handles POST /api/v1/orders/:id/broadcast. It runs the
// full fan-out synchronously and returns the aggregate outcome.
func (c *Controller) BroadcastOrder(ctx echo.Context) error {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		return c.HandleError(ctx, err, "invalid order ID", http.StatusBadRequest)
	}

	outcome, err := c.broadcaster.BroadcastNewOrder(ctx.Request().Context(), uint(id))
	if err != nil {
		return c.HandleError(ctx, err, "order broadcast failed", statusForError(err))
	}

	c.apiLogger.Info("order broadcast requested",
		"order_id", id,
		"notified", outcome.MatchedCarriers,
		"skipped", outcome.SkippedCarriers,
		"ip", ctx.RealIP())

	return ctx.JSON(http.StatusOK, outcome)
}

// ProximitySample handles POST /api/v1/proximity. The response carries the
// resolved tier so the tracking caller can adapt its sampling cadence; an
// empty tier means the sample was silently absorbed.
func (c *Controller) ProximitySample(ctx echo.Context) error {
	var req proximitySampleRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid proximity sample", http.StatusBadRequest)
	}
	if req.DealID == 0 || req.ClientID == "" {
		return c.HandleError(ctx, nil, "dealId and clientId are required", http.StatusBadRequest)
	}
	if req.DistanceKm < 0 {
		return c.HandleError(ctx, nil, "distanceKm must not be negative", http.StatusBadRequest)
	}

	tier := c.proximity.OnDistanceSample(ctx.Request().Context(), req.DealID, req.ClientID, req.CarrierName, req.DistanceKm)

	return ctx.JSON(http.StatusOK, map[string]any{
		"tier":       string(tier),
		"distanceKm": req.DistanceKm,
	})
}
