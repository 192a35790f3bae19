// Package tripmesh provides a high-level façade over the core Engine and its
// services (sessions, artifacts, memory, logging) for building the TripMesh
// agent team. Most applications interact with this package by:
//  1. Creating a Mesh via New() (optionally overriding the in-memory services)
//  2. Registering one or more agents (the travel team, or custom agents)
//  3. Invoking agents asynchronously (Invoke) or synchronously (InvokeSync)
//
// The façade delegates orchestration to engine.Engine while keeping setup
// concise. All defaults are safe for local development and testing; production
// deployments typically supply a Redis session store and a structured logger.
package tripmesh

import (
	"context"

	"github.com/tripmesh/tripmesh/artifact"
	"github.com/tripmesh/tripmesh/core"
	"github.com/tripmesh/tripmesh/engine"
	"github.com/tripmesh/tripmesh/logging"
	"github.com/tripmesh/tripmesh/memory"
	"github.com/tripmesh/tripmesh/session"
)

// Options configures the Mesh instance.
type Options struct {
	// EngineConfig bounds concurrency and event buffering.
	EngineConfig engine.Config

	// Stores (default to in-memory implementations if not provided)
	SessionStore  core.SessionStore
	ArtifactStore core.ArtifactStore
	MemoryStore   core.MemoryStore

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Mesh is the high-level façade aggregating the underlying engine and services.
type Mesh struct {
	opts   Options
	engine *engine.Engine
}

// New creates a Mesh with optional overrides. Any unset service is initialized
// with an in-memory implementation.
func New(optFns ...func(o *Options)) *Mesh {
	opts := Options{
		EngineConfig:  engine.DefaultConfig(),
		SessionStore:  session.NewInMemoryStore(),
		ArtifactStore: artifact.NewInMemoryStore(),
		MemoryStore:   memory.NewInMemoryStore(),
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	eng := engine.New(
		engine.WithConfig(opts.EngineConfig),
		engine.WithSessionStore(opts.SessionStore),
		engine.WithArtifactStore(opts.ArtifactStore),
		engine.WithMemoryStore(opts.MemoryStore),
		engine.WithLogger(opts.Logger),
	)

	return &Mesh{opts: opts, engine: eng}
}

// Engine exposes the underlying engine for callback registration and
// session/artifact access.
func (m *Mesh) Engine() *engine.Engine { return m.engine }

// RegisterAgent adds an agent to the underlying engine.
func (m *Mesh) RegisterAgent(a core.Agent) { m.engine.Register(a) }

// Invoke starts an asynchronous invocation returning event and error channels.
func (m *Mesh) Invoke(
	ctx context.Context,
	sessionID string,
	agentName string,
	userContent core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	return m.engine.Invoke(ctx, sessionID, agentName, userContent)
}

// InvokeSync runs an invocation to completion, returning the run ID and all
// events the agents emitted.
func (m *Mesh) InvokeSync(
	ctx context.Context,
	sessionID string,
	agentName string,
	userContent core.Content,
) (string, []core.Event, error) {
	return m.engine.InvokeSync(ctx, sessionID, agentName, userContent)
}

// GetSession returns the current session snapshot.
func (m *Mesh) GetSession(sessionID string) (*core.Session, error) {
	return m.engine.GetSession(sessionID)
}
