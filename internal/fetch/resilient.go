// Package fetch provides the connection-aware fetch orchestrator: one
// logical request tried over the authenticated gateway when it is ready,
// falling through exactly once to the REST path otherwise. All dashboard
// data flows go through this single utility instead of each carrying its
// own dual-path code.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"contest-dashboard/internal/platform"
)

// Path identifies which transport served a request.
type Path string

const (
	PathGateway Path = "gateway"
	PathREST    Path = "rest"
)

// ErrSuperseded is returned when a newer request was issued before this
// one resolved. Callers must discard the result; only the response to the
// most recent request may update state.
var ErrSuperseded = errors.New("superseded by a newer request")

// StatusFunc reports the shared gateway's connection state.
type StatusFunc func() platform.GatewayStatus

// Options configures a Resilient fetcher.
type Options[T any] struct {
	// Status reports gateway readiness. Required.
	Status StatusFunc
	// Gateway performs the request over the real-time channel.
	Gateway func(context.Context) (T, error)
	// REST performs the equivalent request over HTTP. Required.
	REST func(context.Context) (T, error)
	// OnAttempt, if set, is called once per transport attempt.
	OnAttempt func(Path)
	// OnFallback, if set, is called when a gateway attempt falls through
	// to REST with the gateway error.
	OnFallback func(error)
}

// Resilient performs connection-aware fetches for one logical resource.
// Each call is tagged with a monotonically increasing sequence number;
// results that resolve after a newer call was issued are discarded.
type Resilient[T any] struct {
	opts Options[T]
	seq  atomic.Uint64
}

// New creates a Resilient fetcher.
func New[T any](opts Options[T]) (*Resilient[T], error) {
	if opts.Status == nil {
		return nil, fmt.Errorf("fetch: Status is required")
	}
	if opts.REST == nil {
		return nil, fmt.Errorf("fetch: REST is required")
	}
	return &Resilient[T]{opts: opts}, nil
}

// Do performs one fetch. If the gateway is connected and authenticated the
// request goes there first; a rejection or error falls through once to the
// REST path. A gateway that is not ready is a routing decision, not an
// error: REST is called directly with no gateway attempt. If both paths
// fail, the combined error is surfaced.
func (r *Resilient[T]) Do(ctx context.Context) (T, Path, error) {
	var zero T

	mySeq := r.seq.Add(1)

	value, path, err := r.attempt(ctx)

	// A slow response must not overwrite the result of a newer request.
	if r.seq.Load() != mySeq {
		return zero, path, ErrSuperseded
	}

	if err != nil {
		return zero, path, err
	}
	return value, path, nil
}

// attempt runs the gateway-then-REST routing for a single call.
func (r *Resilient[T]) attempt(ctx context.Context) (T, Path, error) {
	var zero T

	var gatewayErr error
	if r.opts.Gateway != nil && r.opts.Status().Ready() {
		r.observe(PathGateway)
		value, err := r.opts.Gateway(ctx)
		if err == nil {
			return value, PathGateway, nil
		}
		if ctx.Err() != nil {
			return zero, PathGateway, ctx.Err()
		}
		gatewayErr = err
		if r.opts.OnFallback != nil {
			r.opts.OnFallback(err)
		}
	}

	r.observe(PathREST)
	value, err := r.opts.REST(ctx)
	if err != nil {
		if gatewayErr != nil {
			return zero, PathREST, fmt.Errorf("gateway: %v; rest fallback: %w", gatewayErr, err)
		}
		return zero, PathREST, err
	}
	return value, PathREST, nil
}

func (r *Resilient[T]) observe(p Path) {
	if r.opts.OnAttempt != nil {
		r.opts.OnAttempt(p)
	}
}

// GatewayJSON adapts a gateway request into a typed fetch function by
// decoding the raw payload into T.
func GatewayJSON[T any](gw platform.Gateway, topic, action string, params map[string]interface{}) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		var value T
		raw, err := gw.Request(ctx, topic, action, params)
		if err != nil {
			return value, err
		}
		if err := decode(raw, &value); err != nil {
			return value, err
		}
		return value, nil
	}
}

// decode unmarshals a gateway payload, treating an empty payload as a
// data-shape failure rather than usable data.
func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty gateway payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode gateway payload: %w", err)
	}
	return nil
}
