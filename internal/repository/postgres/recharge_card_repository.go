package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rlserver-tools/internal/model"
	"rlserver-tools/internal/repository"
)

type rechargeCardRepository struct {
	pool *pgxpool.Pool
}

func NewRechargeCardRepository(pool *pgxpool.Pool) repository.RechargeCardRepository {
	return &rechargeCardRepository{pool: pool}
}

var _ repository.RechargeCardRepository = (*rechargeCardRepository)(nil)

const rechargeCardColumns = `
	id,
	card_code,
	amount,
	vip_level,
	duration_days,
	is_used,
	used_at,
	used_by,
	created_at
`

const insertRechargeCardSQL = `
	INSERT INTO recharge_cards (
		card_code, amount, vip_level, duration_days, is_used, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id
`

// BatchCreate inserts every card inside a single transaction. IDs are copied
// back onto the cards only after the commit succeeds.
func (r *rechargeCardRepository) BatchCreate(ctx context.Context, cards []*model.RechargeCard) error {
	if len(cards) == 0 {
		return nil
	}
	if r.pool == nil {
		return errors.New("database pool is nil")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	now := time.Now().UTC()
	for _, card := range cards {
		if card.CreatedAt.IsZero() {
			card.CreatedAt = now
		}

		batch.Queue(
			insertRechargeCardSQL,
			card.CardCode,
			card.Amount,
			card.VIPLevel,
			card.DurationDays,
			card.IsUsed,
			card.CreatedAt,
		)
	}

	ids := make([]int64, len(cards))
	results := tx.SendBatch(ctx, batch)
	for i := range cards {
		if err := results.QueryRow().Scan(&ids[i]); err != nil {
			_ = results.Close()
			return mapWriteError("insert recharge card", err)
		}
	}
	if err := results.Close(); err != nil {
		return mapWriteError("insert recharge card", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	for i, card := range cards {
		card.ID = ids[i]
	}
	return nil
}

func (r *rechargeCardRepository) FindByCode(ctx context.Context, code string) (*model.RechargeCard, error) {
	query := `SELECT ` + rechargeCardColumns + ` FROM recharge_cards WHERE card_code = $1`
	card, err := scanRechargeCard(r.pool.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return card, nil
}

func (r *rechargeCardRepository) Count(ctx context.Context, filter repository.RechargeCardFilter) (int64, error) {
	args := make([]any, 0, 2)
	conditions := make([]string, 0, 2)

	if filter.IsUsed != nil {
		args = append(args, *filter.IsUsed)
		conditions = append(conditions, fmt.Sprintf("is_used = $%d", len(args)))
	}
	if filter.VIPLevel != nil {
		args = append(args, *filter.VIPLevel)
		conditions = append(conditions, fmt.Sprintf("vip_level = $%d", len(args)))
	}

	var total int64
	query := `SELECT COUNT(*) FROM recharge_cards` + whereClause(conditions)
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func scanRechargeCard(src scanTarget) (*model.RechargeCard, error) {
	card := &model.RechargeCard{}
	err := src.Scan(
		&card.ID,
		&card.CardCode,
		&card.Amount,
		&card.VIPLevel,
		&card.DurationDays,
		&card.IsUsed,
		&card.UsedAt,
		&card.UsedBy,
		&card.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return card, nil
}
