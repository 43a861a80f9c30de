package whatsapp

import (
	"context"
	"errors"
	"fmt"
)

// Handler processes each inbound message variant.
type Handler interface {
	HandleText(ctx context.Context, msg *TextMessage) error
	HandleInteractive(ctx context.Context, msg *InteractiveMessage) error
	HandleOrder(ctx context.Context, msg *OrderMessage) error
}

// Deduplicator claims message ids so platform redeliveries are handled once.
type Deduplicator interface {
	// Claim reports true when id was not seen before and is now claimed.
	Claim(ctx context.Context, id string) (bool, error)
	// Release drops a claim so a later redelivery is handled again.
	Release(ctx context.Context, id string) error
}

// DispatchResult counts the outcomes of one delivery.
type DispatchResult struct {
	Handled    int
	Duplicates int
	Failed     int
}

// Router routes parsed messages to a Handler by variant.
type Router struct {
	handler  Handler
	dedup    Deduplicator
	observer Observer
}

// NewRouter builds a router. dedup may be nil to handle every delivery.
func NewRouter(handler Handler, dedup Deduplicator, observer Observer) *Router {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Router{handler: handler, dedup: dedup, observer: observer}
}

// Dispatch hands every message of ev to the handler in order. Events for
// other objects are ignored. A failed message releases its claim and the
// failures are returned joined once all messages were attempted.
func (r *Router) Dispatch(ctx context.Context, ev *Event) (DispatchResult, error) {
	var res DispatchResult
	if ev == nil || ev.Object != BusinessAccountObject {
		return res, nil
	}

	var errs []error
	for _, msg := range ev.Messages {
		id := msg.Meta().ID

		if r.dedup != nil {
			claimed, err := r.dedup.Claim(ctx, id)
			// A broken dedup store must not drop messages.
			if err == nil && !claimed {
				res.Duplicates++
				r.observer.MessageRouted(msg, RouteDuplicate, nil)
				continue
			}
		}

		if err := r.route(ctx, msg); err != nil {
			res.Failed++
			r.observer.MessageRouted(msg, RouteFailed, err)
			if r.dedup != nil {
				_ = r.dedup.Release(ctx, id)
			}
			errs = append(errs, fmt.Errorf("%s message %s: %w", msg.Kind(), id, err))
			continue
		}
		res.Handled++
		r.observer.MessageRouted(msg, RouteHandled, nil)
	}
	return res, errors.Join(errs...)
}

func (r *Router) route(ctx context.Context, msg InboundMessage) error {
	if r.handler == nil {
		return nil
	}
	switch m := msg.(type) {
	case *TextMessage:
		return r.handler.HandleText(ctx, m)
	case *InteractiveMessage:
		return r.handler.HandleInteractive(ctx, m)
	case *OrderMessage:
		return r.handler.HandleOrder(ctx, m)
	default:
		return fmt.Errorf("unsupported message type %T", msg)
	}
}
