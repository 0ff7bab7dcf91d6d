package message

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Bars-377/web-chat/internal/domain"
	"github.com/Bars-377/web-chat/internal/repo/sqlite"
)

// SQLiteMessageRepository implements Repository on top of a SQLite connection or transaction.
// Timestamps are stored as unix microseconds.
type SQLiteMessageRepository struct {
	q   sqlite.Querier
	now func() time.Time
}

var _ Repository = (*SQLiteMessageRepository)(nil)

// NewSQLiteMessageRepository creates a repository issuing its statements through q.
func NewSQLiteMessageRepository(q sqlite.Querier) *SQLiteMessageRepository {
	return &SQLiteMessageRepository{
		q:   q,
		now: time.Now,
	}
}

// Append implements Repository.Append.
func (r *SQLiteMessageRepository) Append(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	stored := *msg
	stored.Timestamp = r.now().UTC().Truncate(time.Microsecond)

	res, err := r.q.ExecContext(ctx,
		"INSERT INTO messages (sender_id, receiver_id, username, content, created_at) VALUES (?, ?, ?, ?, ?)",
		stored.SenderID,
		stored.ReceiverID,
		stored.Username,
		stored.Content,
		stored.Timestamp.UnixMicro(),
	)
	if err != nil {
		if sqlite.IsForeignKeyViolation(err) {
			err = errors.Join(domain.ErrUserNotFound, err)
		}

		return nil, errors.Join(domain.ErrStorage, fmt.Errorf("insert message: %w", err))
	}

	if stored.ID, err = res.LastInsertId(); err != nil {
		return nil, errors.Join(domain.ErrStorage, fmt.Errorf("last insert id: %w", err))
	}

	return &stored, nil
}

// ListAll implements Repository.ListAll.
func (r *SQLiteMessageRepository) ListAll(ctx context.Context) (_ []domain.Message, err error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT id, sender_id, receiver_id, username, content, created_at FROM messages ORDER BY id ASC",
	)
	if err != nil {
		return nil, errors.Join(domain.ErrStorage, fmt.Errorf("query messages: %w", err))
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)

	for rows.Next() {
		var (
			msg     domain.Message
			created int64
		)

		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Username, &msg.Content, &created); err != nil {
			return nil, errors.Join(domain.ErrStorage, fmt.Errorf("scan message: %w", err))
		}

		msg.Timestamp = time.UnixMicro(created).UTC()
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Join(domain.ErrStorage, fmt.Errorf("iterate messages: %w", err))
	}

	return messages, nil
}
