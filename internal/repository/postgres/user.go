package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/internal/repository"
	apperrors "github.com/jwalitptl/reminderd/pkg/errors"
)

type userRepository struct {
	*BaseRepository
}

func NewUserRepository(base *BaseRepository) repository.UserRepository {
	return &userRepository{BaseRepository: base}
}

type userRow struct {
	ID             uuid.UUID `db:"id"`
	Email          string    `db:"email"`
	Language       string    `db:"language"`
	WebPushEnabled bool      `db:"web_push_enabled"`
	EmailEnabled   bool      `db:"email_enabled"`
	EmailFallback  bool      `db:"email_fallback"`
	PushEndpoint   *string   `db:"push_endpoint"`
	PushP256dh     *string   `db:"push_p256dh"`
	PushAuth       *string   `db:"push_auth"`
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `
		SELECT id, email, language, web_push_enabled, email_enabled,
			email_fallback, push_endpoint, push_p256dh, push_auth
		FROM users WHERE id = $1`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user := &model.User{
		ID:             row.ID,
		Email:          row.Email,
		Language:       row.Language,
		WebPushEnabled: row.WebPushEnabled,
		EmailEnabled:   row.EmailEnabled,
		EmailFallback:  row.EmailFallback,
	}
	if row.PushEndpoint != nil && *row.PushEndpoint != "" {
		user.PushSubscription = &model.PushSubscription{
			Endpoint: *row.PushEndpoint,
			P256dh:   derefString(row.PushP256dh),
			Auth:     derefString(row.PushAuth),
		}
	}
	return user, nil
}

func (r *userRepository) ClearPushSubscription(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE users
		SET push_endpoint = NULL, push_p256dh = NULL, push_auth = NULL, updated_at = NOW()
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear push subscription: %w", err)
	}
	return nil
}

func (r *userRepository) SavePushSubscription(ctx context.Context, userID uuid.UUID, sub *model.PushSubscription) error {
	query := `
		UPDATE users
		SET push_endpoint = $2, push_p256dh = $3, push_auth = $4, updated_at = NOW()
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID, sub.Endpoint, sub.P256dh, sub.Auth); err != nil {
		return fmt.Errorf("failed to save push subscription: %w", err)
	}
	return nil
}
