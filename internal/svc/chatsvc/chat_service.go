package chatsvc

import (
	"context"
	"fmt"

	"github.com/Bars-377/web-chat/internal/domain"
	"github.com/Bars-377/web-chat/internal/infra/logging"
	"github.com/Bars-377/web-chat/internal/repo/store"
)

// ChatService persists chat messages and serves the message history.
type ChatService struct {
	Store store.Store
	Log   logging.Logger
}

// NewChatService creates a ChatService on top of s.
func NewChatService(s store.Store) *ChatService {
	return &ChatService{
		Store: s,
		Log:   logging.GetLogger("svc.chatsvc.chat_service"),
	}
}

// Send stores content as a message from user to themselves. Each call runs in
// its own transaction, so a failure never affects earlier or later messages.
func (s *ChatService) Send(ctx context.Context, user domain.User, content string) (msg *domain.Message, err error) {
	log := s.Log.With(logging.Group("message", "sender_id", user.ID, "size", len(content)))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "send message failed", "error", err)
		} else {
			log.DebugContext(ctx, "message stored", "id", msg.ID)
		}
	}()

	err = store.WithTx(ctx, s.Store, func(tx store.Tx) (err error) {
		msg, err = tx.Messages().Append(ctx, domain.NewSelfMessage(user, content))

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	return msg, nil
}

// History returns every stored message in the order it was sent.
func (s *ChatService) History(ctx context.Context) (messages []domain.Message, err error) {
	defer func() {
		if err != nil {
			s.Log.ErrorContext(ctx, "fetch history failed", "error", err)
		} else {
			s.Log.DebugContext(ctx, "history fetched", "count", len(messages))
		}
	}()

	err = store.WithReadTx(ctx, s.Store, func(tx store.Tx) (err error) {
		messages, err = tx.Messages().ListAll(ctx)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	return messages, nil
}
