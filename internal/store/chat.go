package store

import (
	"context"
	"fmt"
	"time"

	"mutari/internal/utils"
	"mutari/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	chatMessagesTableName = "mutari.chat_messages"
	chatReadsTableName    = "mutari.chat_reads"
)

var (
	chatMessageColumns = utils.StructTagValues(types.ChatMessage{})
	readMarkerColumns  = utils.StructTagValues(types.ReadMarker{})
)

type ChatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

func (r *ChatRepository) CreateMessage(ctx context.Context, message *types.ChatMessage) error {
	message.ID = utils.NanoID()
	message.CreatedAt = time.Now()

	query, args, err := psql().Insert(chatMessagesTableName).
		SetMap(utils.StructToMap(message)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert chat message query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return unavailableOr(utils.ErrorWrapOrNil(err, "failed to create chat message"))
}

// MessagesByOffer returns an offer's conversation, oldest first.
func (r *ChatRepository) MessagesByOffer(ctx context.Context, offerID string) ([]*types.ChatMessage, error) {
	query, args, err := psql().Select(chatMessageColumns...).From(chatMessagesTableName).
		Where(sq.Eq{"offer_id": offerID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chat messages query: %w", err)
	}

	var messages = make([]*types.ChatMessage, 0)
	err = pgxscan.Select(ctx, r.pool, &messages, query, args...)
	if err != nil {
		return nil, unavailableOr(fmt.Errorf("failed to fetch chat messages: %w", err))
	}

	return messages, nil
}

// LatestIncoming returns, per offer, the newest message not sent by role.
// Only OfferID, RequestID, SenderRole and CreatedAt are set.
func (r *ChatRepository) LatestIncoming(ctx context.Context, offerIDs []string, role types.Role) ([]*types.ChatMessage, error) {
	if len(offerIDs) == 0 {
		return []*types.ChatMessage{}, nil
	}

	query, args, err := psql().
		Select("offer_id", "request_id", "sender_role", "max(created_at) AS created_at").
		From(chatMessagesTableName).
		Where(sq.Eq{"offer_id": offerIDs}).
		Where(sq.NotEq{"sender_role": string(role)}).
		GroupBy("offer_id", "request_id", "sender_role").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate latest incoming query: %w", err)
	}

	var messages []*types.ChatMessage
	err = pgxscan.Select(ctx, r.pool, &messages, query, args...)
	if err != nil {
		return nil, unavailableOr(fmt.Errorf("failed to fetch latest incoming messages: %w", err))
	}

	return messages, nil
}

// MarkRead moves role's read position on offerID forward to at.
func (r *ChatRepository) MarkRead(ctx context.Context, offerID string, role types.Role, at time.Time) error {
	query, args, err := psql().Insert(chatReadsTableName).
		Columns("offer_id", "role", "last_read_at").
		Values(offerID, string(role), at).
		Suffix("ON CONFLICT (offer_id, role) DO UPDATE SET last_read_at = GREATEST(chat_reads.last_read_at, EXCLUDED.last_read_at)").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate mark read query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return unavailableOr(utils.ErrorWrapOrNil(err, "failed to mark chat read"))
}

func (r *ChatRepository) ReadMarkers(ctx context.Context, offerIDs []string, role types.Role) ([]*types.ReadMarker, error) {
	if len(offerIDs) == 0 {
		return []*types.ReadMarker{}, nil
	}

	query, args, err := psql().Select(readMarkerColumns...).From(chatReadsTableName).
		Where(sq.Eq{"offer_id": offerIDs, "role": string(role)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate read markers query: %w", err)
	}

	var markers []*types.ReadMarker
	err = pgxscan.Select(ctx, r.pool, &markers, query, args...)
	if err != nil {
		return nil, unavailableOr(fmt.Errorf("failed to fetch read markers: %w", err))
	}

	return markers, nil
}
