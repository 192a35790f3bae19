package logging

import "go.uber.org/zap"

// ZapAdapter implements Logger over a zap sugared logger. Used by the gateway
// and the MCP servers where production JSON logging is wanted.
type ZapAdapter struct {
	sugar *zap.SugaredLogger
}

// NewZapAdapter wraps an existing *zap.Logger.
func NewZapAdapter(l *zap.Logger) *ZapAdapter {
	return &ZapAdapter{sugar: l.Sugar()}
}

// NewZapProduction builds a production zap logger named for the service.
func NewZapProduction(service string) (*ZapAdapter, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return NewZapAdapter(l.Named(service)), nil
}

func (z *ZapAdapter) Debug(msg string, args ...any) { z.sugar.Debugw(msg, args...) }
func (z *ZapAdapter) Info(msg string, args ...any)  { z.sugar.Infow(msg, args...) }
func (z *ZapAdapter) Warn(msg string, args ...any)  { z.sugar.Warnw(msg, args...) }
func (z *ZapAdapter) Error(msg string, args ...any) { z.sugar.Errorw(msg, args...) }

// Sync flushes buffered entries. Call on shutdown.
func (z *ZapAdapter) Sync() error { return z.sugar.Sync() }
