package message

import (
	"context"

	"github.com/Bars-377/web-chat/internal/domain"
)

// Repository defines append-only persistence of chat messages.
type Repository interface {
	// Append stores msg, assigning its ID and Timestamp, and returns the persisted record.
	Append(ctx context.Context, msg *domain.Message) (*domain.Message, error)

	// ListAll returns every stored message in insertion order.
	ListAll(ctx context.Context) ([]domain.Message, error)
}
