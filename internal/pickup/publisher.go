package pickup

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Publisher renders an order's pickup code and stores the result.
type Publisher struct {
	renderer Renderer
	store    Store
}

// NewPublisher creates a Publisher.
func NewPublisher(renderer Renderer, store Store) *Publisher {
	return &Publisher{renderer: renderer, store: store}
}

// Publish stores the QR artifact for an order and returns its URL.
func (p *Publisher) Publish(ctx context.Context, orderID uuid.UUID, code string) (string, error) {
	data, err := p.renderer.Render(code)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("pickup/%s.%s", orderID, p.renderer.Extension())
	return p.store.Put(ctx, key, data, p.renderer.ContentType())
}
