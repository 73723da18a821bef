package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"repoindex/internal/domain"
)

// ErrMalformedPolicy is returned alongside the default policy when the
// policy file exists but cannot be parsed.
var ErrMalformedPolicy = errors.New("malformed ingest policy")

// Policy is the ingest policy loaded from JSON. Unset fields fall back to
// the run defaults. A Policy is not modified once a run starts.
type Policy struct {
	AllowExtensions  []string                   `json:"allow_extensions,omitempty"`
	DenyExtensions   []string                   `json:"deny_extensions,omitempty"`
	MaxFileBytes     *int64                     `json:"max_file_bytes,omitempty"`
	ManifestPath     string                     `json:"manifest_path,omitempty"`
	BinaryThreshold  *float64                   `json:"binary_threshold,omitempty"`
	AllowBinary      *bool                      `json:"allow_binary,omitempty"`
	HandlersDisabled []string                   `json:"handlers_disabled,omitempty"`
	HandlerOverrides map[string]HandlerOverride `json:"handler_overrides,omitempty"`
	ForceHandlers    map[string]string          `json:"force_handlers,omitempty"`
}

// HandlerOverride holds per-handler settings keyed by handler name.
type HandlerOverride struct {
	ChunkBytes      *int   `json:"chunk_bytes,omitempty"`
	OverlapBytes    *int   `json:"overlap_bytes,omitempty"`
	MaxFileBytes    *int64 `json:"max_file_bytes,omitempty"`
	HeadingDepth    *int   `json:"heading_depth,omitempty"`
	MaxRowsPerChunk *int   `json:"max_rows_per_chunk,omitempty"`
}

// HandlerOptions are the resolved settings for one handler.
type HandlerOptions struct {
	ChunkBytes      int
	OverlapBytes    int
	MaxFileBytes    int64 // 0 means no handler-specific limit
	HeadingDepth    int
	MaxRowsPerChunk int
}

// DefaultPolicy returns the built-in policy used when no policy file is
// present or it cannot be parsed. It leaves the binary settings unset so the
// run defaults (threshold 0.33, binaries disallowed) apply.
func DefaultPolicy() *Policy {
	return &Policy{
		AllowExtensions: []string{
			"rs", "go", "py", "ts", "tsx", "js", "jsx",
			"md", "markdown", "txt", "toml", "json", "jsonl", "csv", "yml", "yaml",
		},
		DenyExtensions: []string{"lock", "bin", "exe", "dll", "so", "dylib", "o", "a"},
	}
}

// LoadPolicy reads a JSON policy file. A missing file yields the default
// policy and no error; a malformed file yields the default policy and an
// error wrapping ErrMalformedPolicy so callers can warn and carry on.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPolicy(), nil
		}
		return DefaultPolicy(), fmt.Errorf("%w: %v", ErrMalformedPolicy, err)
	}

	var p Policy
	if err := json.Unmarshal(data, &p); err != nil {
		return DefaultPolicy(), fmt.Errorf("%w: %s: %v", ErrMalformedPolicy, path, err)
	}
	p.normalize()
	return &p, nil
}

func (p *Policy) normalize() {
	if p.AllowExtensions != nil {
		p.AllowExtensions = normalizeExtensions(p.AllowExtensions)
	}
	if p.DenyExtensions != nil {
		p.DenyExtensions = normalizeExtensions(p.DenyExtensions)
	}
	if len(p.ForceHandlers) > 0 {
		forced := make(map[string]string, len(p.ForceHandlers))
		for ext, name := range p.ForceHandlers {
			forced[normalizeExtension(ext)] = name
		}
		p.ForceHandlers = forced
	}
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		out = append(out, normalizeExtension(e))
	}
	return out
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// Extension returns the lower-cased extension of path without the dot.
func Extension(path string) string {
	return normalizeExtension(filepath.Ext(path))
}

// SkipExtension reports whether path is excluded by the extension lists.
// The deny list wins over the allow list. A nil allow list admits every
// extension; an empty one admits none.
func (p *Policy) SkipExtension(path string) bool {
	ext := Extension(path)

	if ext != "" && contains(p.DenyExtensions, ext) {
		return true
	}
	if p.AllowExtensions != nil {
		return ext == "" || !contains(p.AllowExtensions, ext)
	}
	return false
}

// HandlerEnabled reports whether name is absent from handlers_disabled.
func (p *Policy) HandlerEnabled(name string) bool {
	for _, d := range p.HandlersDisabled {
		if strings.EqualFold(d, name) {
			return false
		}
	}
	return true
}

// HandlerOptionsFor layers the global max_file_bytes and any per-handler
// override on top of defaults.
func (p *Policy) HandlerOptionsFor(name string, defaults HandlerOptions) HandlerOptions {
	opts := defaults
	if p.MaxFileBytes != nil {
		opts.MaxFileBytes = *p.MaxFileBytes
	}

	o, ok := p.HandlerOverrides[name]
	if !ok {
		return opts
	}
	if o.ChunkBytes != nil {
		opts.ChunkBytes = *o.ChunkBytes
	}
	if o.OverlapBytes != nil {
		opts.OverlapBytes = *o.OverlapBytes
	}
	if o.MaxFileBytes != nil {
		opts.MaxFileBytes = *o.MaxFileBytes
	}
	if o.HeadingDepth != nil {
		opts.HeadingDepth = *o.HeadingDepth
	}
	if o.MaxRowsPerChunk != nil {
		opts.MaxRowsPerChunk = *o.MaxRowsPerChunk
	}
	return opts
}

// ForcedHandler returns the handler name forced for path's extension.
func (p *Policy) ForcedHandler(path string) (string, bool) {
	ext := Extension(path)
	if ext == "" {
		return "", false
	}
	name, ok := p.ForceHandlers[ext]
	return name, ok
}

// EffectiveMaxFileBytes returns the policy limit, or fallback when unset.
func (p *Policy) EffectiveMaxFileBytes(fallback int64) int64 {
	if p.MaxFileBytes != nil {
		return *p.MaxFileBytes
	}
	return fallback
}

// HandlerContext derives the run-scoped handler context. The threshold is
// clamped to [0,1].
func (p *Policy) HandlerContext(allowBinary bool, threshold float64) domain.HandlerContext {
	if p.AllowBinary != nil {
		allowBinary = *p.AllowBinary
	}
	if p.BinaryThreshold != nil {
		threshold = *p.BinaryThreshold
	}
	threshold = max(0, min(threshold, 1))
	return domain.HandlerContext{AllowBinary: allowBinary, BinaryThreshold: threshold}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
