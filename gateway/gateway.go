// Package gateway exposes the agent engine over HTTP: a chat endpoint that
// runs the controller synchronously, session history and itinerary listings,
// plus health and Prometheus metrics.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/tripmesh/tripmesh/artifact"
	"github.com/tripmesh/tripmesh/core"
	"github.com/tripmesh/tripmesh/engine"
)

// DefaultAddr is the gateway's standard listen address.
const DefaultAddr = ":7860"

// Gateway is the HTTP front of a TripMesh deployment.
type Gateway struct {
	engine    *engine.Engine
	rootAgent string
	app       *fiber.App
	logger    *zap.Logger
	metrics   *metrics
}

// Options customizes a Gateway.
type Options struct {
	Logger *zap.Logger
}

// chatRequest is the chat endpoint's wire format.
type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	RunID     string `json:"run_id"`
	Reply     string `json:"reply"`
}

type historyEntry struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates a gateway routing chat traffic to the named root agent.
func New(eng *engine.Engine, rootAgent string, optFns ...func(o *Options)) *Gateway {
	opts := Options{Logger: zap.NewNop()}
	for _, fn := range optFns {
		fn(&opts)
	}

	g := &Gateway{
		engine:    eng,
		rootAgent: rootAgent,
		logger:    opts.Logger,
		metrics:   newMetrics(),
	}
	g.app = fiber.New(fiber.Config{DisableStartupMessage: true})
	g.routes()
	return g
}

// App exposes the fiber app, mainly for tests.
func (g *Gateway) App() *fiber.App { return g.app }

// Listen serves until ctx is canceled.
func (g *Gateway) Listen(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("gateway.listening", zap.String("addr", addr))
		errCh <- g.app.Listen(addr)
	}()

	select {
	case <-ctx.Done():
		return g.app.ShutdownWithTimeout(5 * time.Second)
	case err := <-errCh:
		return err
	}
}

func (g *Gateway) routes() {
	g.app.Use(g.requestLogger)

	g.app.Post("/v1/chat", g.handleChat)
	g.app.Get("/v1/sessions/:id", g.handleSession)
	g.app.Get("/v1/sessions/:id/itineraries", g.handleItineraries)
	g.app.Get("/v1/sessions/:id/itineraries/:artifact", g.handleItinerary)

	g.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok\n")
	})

	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(g.metrics.registry, promhttp.HandlerOpts{}))
	g.app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})
}

// requestLogger records every request with latency and feeds the request
// counter.
func (g *Gateway) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	g.metrics.requestsTotal.WithLabelValues(c.Route().Path, strconv.Itoa(status)).Inc()
	g.logger.Info("gateway.request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("latency", time.Since(start)),
	)
	return err
}

func (g *Gateway) handleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Message == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "message is required"})
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	start := time.Now()
	runID, events, err := g.engine.InvokeSync(c.UserContext(), req.SessionID, g.rootAgent,
		core.NewUserContent(req.Message))
	g.metrics.chatDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		g.metrics.chatErrors.Inc()
		g.logger.Warn("gateway.chat_failed",
			zap.String("session_id", req.SessionID), zap.Error(err))
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	reply := ""
	for _, ev := range events {
		if ev.Actions.TransferToAgent != nil {
			g.metrics.handoffsTotal.WithLabelValues(*ev.Actions.TransferToAgent).Inc()
		}
		if !ev.IsPartial() && ev.Text() != "" {
			reply = ev.Text()
		}
	}

	return c.JSON(chatResponse{SessionID: req.SessionID, RunID: runID, Reply: reply})
}

func (g *Gateway) handleSession(c *fiber.Ctx) error {
	sess, err := g.engine.GetSession(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	history := []historyEntry{}
	for _, ev := range sess.GetConversationHistory() {
		history = append(history, historyEntry{
			Author:    ev.Author,
			Text:      ev.Text(),
			Timestamp: ev.Timestamp,
		})
	}
	return c.JSON(fiber.Map{"session_id": c.Params("id"), "history": history})
}

func (g *Gateway) handleItineraries(c *fiber.Ctx) error {
	store := g.engine.ArtifactStore()
	if store == nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "artifact store not configured"})
	}
	ids, err := store.List(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"session_id": c.Params("id"), "itineraries": ids})
}

func (g *Gateway) handleItinerary(c *fiber.Ctx) error {
	store := g.engine.ArtifactStore()
	if store == nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "artifact store not configured"})
	}
	data, err := store.Get(c.Params("id"), c.Params("artifact"))
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}
