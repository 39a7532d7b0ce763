package activity

import (
	"context"
	"strings"
)

// DefaultChannel is applied to events emitted without a channel.
const DefaultChannel = "templating"

// Config controls activity emission.
type Config struct {
	Enabled   bool
	Channel   string
	Dashboard string
}

// Emitter fans out events to hooks while applying defaults.
type Emitter struct {
	hooks     Hooks
	enabled   bool
	channel   string
	dashboard string
}

// NewEmitter constructs an emitter from hooks and configuration.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	normalized := make(Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			normalized = append(normalized, hook)
		}
	}
	return &Emitter{
		hooks:     normalized,
		enabled:   cfg.Enabled && len(normalized) > 0,
		channel:   channel,
		dashboard: strings.TrimSpace(cfg.Dashboard),
	}
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Emit forwards the event to all hooks. Missing channel and dashboard are
// filled from the emitter configuration and missing identities from ctx.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if strings.TrimSpace(event.Dashboard) == "" {
		event.Dashboard = e.dashboard
	}
	if ctx != nil {
		event = ActorFromContext(ctx).apply(event)
	}
	return e.hooks.Notify(ctx, event)
}
