package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/mosaictheory-jt/unstructured-analytics/internal/experiment"
	"github.com/mosaictheory-jt/unstructured-analytics/internal/format"
	"github.com/mosaictheory-jt/unstructured-analytics/pkg/logger"
)

// StreamHandler relays streamed experiment events over a websocket. Each
// client message triggers one experiment; events are forwarded as JSON in
// arrival order, ending with the runner's terminal event.
type StreamHandler struct {
	runner *experiment.Runner
}

func NewStreamHandler(runner *experiment.Runner) *StreamHandler {
	return &StreamHandler{runner: runner}
}

func (h *StreamHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("stream connection established")

	defer func() {
		c.Close()
		logger.Info("stream connection closed")
	}()

	for {
		var req singleExperimentRequest
		if err := c.ReadJSON(&req); err != nil {
			logger.Debug("stream read ended", zap.Error(err))
			return
		}
		req.applyDefaults()

		enc, err := format.Parse(req.DataFormat)
		if err != nil {
			h.sendError(c, "Invalid data format: "+req.DataFormat)
			continue
		}
		if req.Question == "" {
			h.sendError(c, "Question is required")
			continue
		}

		events := h.runner.RunStream(context.Background(), experiment.Params{
			Question:        req.Question,
			Encoding:        enc,
			Model:           req.Model,
			Temperature:     req.Temperature,
			ThinkingEnabled: req.ThinkingEnabled,
		})

		for event := range events {
			if err := c.WriteJSON(event); err != nil {
				logger.Error("failed to write stream event", zap.Error(err))
				// Drain so the runner goroutine can finish.
				for range events {
				}
				return
			}
		}
	}
}

func (h *StreamHandler) sendError(c *websocket.Conn, msg string) {
	_ = c.WriteJSON(experiment.Event{Type: experiment.EventError, Error: msg})
}
