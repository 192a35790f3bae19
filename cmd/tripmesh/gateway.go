package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tripmesh/tripmesh/agent/travel"
	"github.com/tripmesh/tripmesh/config"
	"github.com/tripmesh/tripmesh/engine"
	"github.com/tripmesh/tripmesh/gateway"
	"github.com/tripmesh/tripmesh/guardrail"
	"github.com/tripmesh/tripmesh/logging"
	"github.com/tripmesh/tripmesh/model"
	"github.com/tripmesh/tripmesh/model/anthropic"
	"github.com/tripmesh/tripmesh/model/openai"
	"github.com/tripmesh/tripmesh/session"
	"github.com/tripmesh/tripmesh/tool"
	"github.com/tripmesh/tripmesh/tool/mcptool"
)

const mcpConnectTimeout = 10 * time.Second

func runGateway(ctx context.Context, args []string) error {
	cfg, _, err := loadConfig("gateway", args)
	if err != nil {
		return err
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = zapLogger.Sync() }()
	logger := logging.NewZapAdapter(zapLogger.Named("tripmesh"))

	llm, err := pickModel(cfg)
	if err != nil {
		return err
	}

	toolSets, closeClients := discoverTools(ctx, cfg, logger)
	defer closeClients()

	controller, err := travel.NewTeam(llm, func(o *travel.TeamOptions) {
		o.WeatherTools = toolSets["weather"]
		o.BookingTools = toolSets["booking"]
		o.PlacesTools = toolSets["places"]
		o.PlannerTools = toolSets["planner"]
	})
	if err != nil {
		return fmt.Errorf("build agent team: %w", err)
	}

	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = client.Close() }()
		engineOpts = append(engineOpts, engine.WithSessionStore(session.NewRedisStore(client)))
	}

	eng := engine.New(engineOpts...)
	eng.Register(controller)

	classifier := guardrail.NewClassifier(llm, func(o *guardrail.ClassifierOptions) {
		o.Logger = logger
	})
	eng.Callbacks().Register(engine.CallbackBeforeAgent, guardrail.NewCallback(classifier))

	gw := gateway.New(eng, controller.Name(), func(o *gateway.Options) {
		o.Logger = zapLogger.Named("gateway")
	})
	return gw.Listen(ctx, cfg.GatewayAddr)
}

// pickModel chooses the chat model from the configured keys: Anthropic when
// its key is set, OpenAI otherwise.
func pickModel(cfg config.Config) (model.Model, error) {
	if cfg.AnthropicAPIKey != "" {
		return anthropic.New(func(o *anthropic.Options) {
			o.APIKey = cfg.AnthropicAPIKey
		}), nil
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("no model key configured: set OPENAI_API_KEY or ANTHROPIC_API_KEY")
	}
	return openai.New(func(o *openai.Options) {
		o.Model = cfg.Model
	}), nil
}

// discoverTools connects to each MCP server and fetches its tool set. A
// server that is down degrades its agent to conversation-only.
func discoverTools(ctx context.Context, cfg config.Config, logger logging.Logger) (map[string][]tool.Tool, func()) {
	endpoints := map[string]string{
		"weather": cfg.Weather.URL,
		"booking": cfg.Booking.URL,
		"places":  cfg.Places.URL,
		"planner": cfg.Planner.URL,
	}

	toolSets := map[string][]tool.Tool{}
	var clients []*mcptool.Client

	for name, url := range endpoints {
		client := mcptool.NewClient(name, url, func(o *mcptool.ClientOptions) {
			o.Logger = logger
		})

		connectCtx, cancel := context.WithTimeout(ctx, mcpConnectTimeout)
		err := client.Connect(connectCtx)
		cancel()
		if err != nil {
			logger.Warn("gateway.mcp_connect_failed", "server", name, "url", url, "error", err)
			continue
		}

		tools, err := client.Tools(ctx)
		if err != nil {
			logger.Warn("gateway.mcp_discover_failed", "server", name, "error", err)
			_ = client.Close()
			continue
		}

		toolSets[name] = tools
		clients = append(clients, client)
	}

	return toolSets, func() {
		for _, c := range clients {
			_ = c.Close()
		}
	}
}
