package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"rlserver-tools/internal/model"
	"rlserver-tools/internal/repository"
)

const maxCardBatchSize = 5000

var (
	ErrInvalidCardCount = errors.New("invalid recharge card count")
	ErrEmptyCardCode    = errors.New("card code is required")
)

// CardDefaults is the fixed metadata stamped onto every card of a run.
// Values are validated by config.CardsConfig before they reach the service.
type CardDefaults struct {
	Amount       int
	VIPLevel     int
	DurationDays int
}

type CardStats struct {
	Total  int64
	Unused int64
	Used   int64
}

type RechargeCardService struct {
	cardRepo repository.RechargeCardRepository
	codes    *CodeGenerator
	defaults CardDefaults
	logger   *zap.Logger
}

func NewRechargeCardService(
	cardRepo repository.RechargeCardRepository,
	codes *CodeGenerator,
	defaults CardDefaults,
	logger *zap.Logger,
) *RechargeCardService {
	if codes == nil {
		codes = defaultCodeGenerator
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RechargeCardService{
		cardRepo: cardRepo,
		codes:    codes,
		defaults: defaults,
		logger:   logger,
	}
}

// GenerateAndInsert builds count cards and persists them in one transaction.
// On any error nothing is committed and the error is returned.
func (s *RechargeCardService) GenerateAndInsert(ctx context.Context, count int) ([]*model.RechargeCard, error) {
	if s.cardRepo == nil {
		return nil, errors.New("recharge card repository is nil")
	}
	if count <= 0 || count > maxCardBatchSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCardCount, count)
	}
	now := time.Now().UTC()
	cards := make([]*model.RechargeCard, 0, count)
	for i := 0; i < count; i++ {
		card := &model.RechargeCard{
			CardCode:     s.codes.Generate(),
			Amount:       s.defaults.Amount,
			VIPLevel:     s.defaults.VIPLevel,
			DurationDays: s.defaults.DurationDays,
			IsUsed:       false,
			CreatedAt:    now,
		}
		cards = append(cards, card)

		s.logger.Debug("recharge card staged",
			zap.String("card_code", card.CardCode),
			zap.Int("vip_level", card.VIPLevel),
			zap.Int("duration_days", card.DurationDays),
		)
	}

	if err := s.cardRepo.BatchCreate(ctx, cards); err != nil {
		return nil, fmt.Errorf("insert recharge cards: %w", err)
	}

	s.logger.Info("recharge cards inserted",
		zap.Int("count", len(cards)),
		zap.Int("amount", s.defaults.Amount),
		zap.Int("vip_level", s.defaults.VIPLevel),
		zap.Int("duration_days", s.defaults.DurationDays),
	)
	return cards, nil
}

// Stats counts cards by redemption state, optionally for one vip level.
func (s *RechargeCardService) Stats(ctx context.Context, vipLevel *int) (CardStats, error) {
	if s.cardRepo == nil {
		return CardStats{}, errors.New("recharge card repository is nil")
	}

	unused, used := false, true
	total, err := s.cardRepo.Count(ctx, repository.RechargeCardFilter{VIPLevel: vipLevel})
	if err != nil {
		return CardStats{}, fmt.Errorf("count recharge cards: %w", err)
	}
	unusedTotal, err := s.cardRepo.Count(ctx, repository.RechargeCardFilter{IsUsed: &unused, VIPLevel: vipLevel})
	if err != nil {
		return CardStats{}, fmt.Errorf("count unused recharge cards: %w", err)
	}
	usedTotal, err := s.cardRepo.Count(ctx, repository.RechargeCardFilter{IsUsed: &used, VIPLevel: vipLevel})
	if err != nil {
		return CardStats{}, fmt.Errorf("count used recharge cards: %w", err)
	}

	return CardStats{Total: total, Unused: unusedTotal, Used: usedTotal}, nil
}

// UnusedCount is the number of cards still available for redemption.
func (s *RechargeCardService) UnusedCount(ctx context.Context) (int64, error) {
	if s.cardRepo == nil {
		return 0, errors.New("recharge card repository is nil")
	}
	unused := false
	return s.cardRepo.Count(ctx, repository.RechargeCardFilter{IsUsed: &unused})
}

// Lookup finds a card by code. Codes are matched case-insensitively since
// every generated code is upper case.
func (s *RechargeCardService) Lookup(ctx context.Context, code string) (*model.RechargeCard, error) {
	if s.cardRepo == nil {
		return nil, errors.New("recharge card repository is nil")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrEmptyCardCode
	}

	card, err := s.cardRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("find recharge card %s: %w", code, err)
	}
	return card, nil
}
