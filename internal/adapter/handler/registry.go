package handler

import (
	"strings"

	"repoindex/config"
	"repoindex/internal/domain"
	"repoindex/internal/port"
)

// Registry is the fixed-priority list of handlers enabled for a run.
type Registry struct {
	handlers []port.Handler
	policy   *config.Policy
	hctx     domain.HandlerContext
}

// NewRegistry builds the handlers in priority order Code, Markdown, Data,
// Text, Binary. Handlers named in handlers_disabled are left out, and the
// binary handler is only added when the context allows binaries.
func NewRegistry(policy *config.Policy, defaults config.HandlerOptions, hctx domain.HandlerContext) *Registry {
	if policy == nil {
		policy = config.DefaultPolicy()
	}
	r := &Registry{policy: policy, hctx: hctx}

	add := func(name string, build func(config.HandlerOptions) port.Handler) {
		if policy.HandlerEnabled(name) {
			r.handlers = append(r.handlers, build(policy.HandlerOptionsFor(name, defaults)))
		}
	}

	add(NameCode, func(o config.HandlerOptions) port.Handler { return NewCode(o) })
	add(NameMarkdown, func(o config.HandlerOptions) port.Handler { return NewMarkdown(o) })
	add(NameData, func(o config.HandlerOptions) port.Handler { return NewData(o) })
	add(NameText, func(o config.HandlerOptions) port.Handler { return NewText(o) })
	if hctx.AllowBinary {
		add(NameBinary, func(o config.HandlerOptions) port.Handler { return NewBinary(o) })
	}

	return r
}

// Handlers returns the registered handlers in priority order.
func (r *Registry) Handlers() []port.Handler {
	return r.handlers
}

// Context returns the run-scoped handler context.
func (r *Registry) Context() *domain.HandlerContext {
	return &r.hctx
}

// Lookup finds a registered handler by case-insensitive name.
func (r *Registry) Lookup(name string) (port.Handler, bool) {
	for _, h := range r.handlers {
		if strings.EqualFold(h.Name(), name) {
			return h, true
		}
	}
	return nil, false
}

// Resolve picks exactly one handler for the file. A forced handler for the
// extension wins if it is registered and accepts the file; otherwise the
// first accepting handler in priority order is used. ok is false when no
// handler accepts the file.
func (r *Registry) Resolve(path string, data []byte) (port.Handler, bool) {
	if name, forced := r.policy.ForcedHandler(path); forced {
		if h, ok := r.Lookup(name); ok && h.Supports(path, data, &r.hctx) {
			return h, true
		}
	}

	for _, h := range r.handlers {
		if h.Supports(path, data, &r.hctx) {
			return h, true
		}
	}
	return nil, false
}
