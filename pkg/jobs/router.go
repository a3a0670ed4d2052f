package jobs

import (
	"context"
	"fmt"
)

// Router sends each queue to its configured backend, falling back to a default one.
type Router struct {
	fallback Queue
	routes   map[string]Queue
}

func NewRouter(fallback Queue) *Router {
	return &Router{
		fallback: fallback,
		routes:   make(map[string]Queue),
	}
}

// Route directs jobs for queue to backend.
func (r *Router) Route(queue string, backend Queue) *Router {
	r.routes[queue] = backend

	return r
}

func (r *Router) Enqueue(ctx context.Context, queue string, payload map[string]any, opts ...Option) (string, error) {
	backend, ok := r.routes[queue]
	if !ok {
		backend = r.fallback
	}

	if backend == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownQueue, queue)
	}

	return backend.Enqueue(ctx, queue, payload, opts...)
}
