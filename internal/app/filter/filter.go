// Package filter provides the filter chain for request validation.
package filter

import (
	"context"

	"github.com/osa030/castbox/internal/domain/track"
)

// RequestKind identifies the operation that produced a request.
type RequestKind int

const (
	RequestPlayNow RequestKind = iota // Preempting play
	RequestEnqueue                    // Single item appended to the queue
	RequestFolder                     // One item of a folder being appended
)

// String returns the string representation of the request kind.
func (k RequestKind) String() string {
	switch k {
	case RequestPlayNow:
		return "play_now"
	case RequestEnqueue:
		return "enqueue"
	case RequestFolder:
		return "folder"
	default:
		return "unknown"
	}
}

// Request represents a play request to be validated.
type Request struct {
	Kind RequestKind
	Item track.Item
}

// Result represents the result of a filter check.
type Result struct {
	Accepted bool
	Code     string // e.g., "invalid_item", "device_not_found", "queue_full"
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Filter is the interface for request filters.
type Filter interface {
	// Name returns the filter name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this filter can return.
	ReturnCodes() []string
	// ValidateConfig validates and applies the filter configuration.
	ValidateConfig(settings map[string]any) error
	// AppliesTo returns true if this filter should be applied to the given request kind.
	AppliesTo(kind RequestKind) bool
	// Check performs the filter check.
	Check(ctx context.Context, req Request) Result
}

// registry holds registered filter factories.
var registry = make(map[string]func() Filter)

// Register registers a filter factory.
func Register(name string, factory func() Filter) {
	registry[name] = factory
}

// GetRegistered returns all registered filter factories.
func GetRegistered() map[string]func() Filter {
	return registry
}
