package word

import (
	"context"
	"errors"
	"log/slog"

	"sudooom.spy/internal/game"
)

// FallbackSupplier 主词库失败时使用备用词库
type FallbackSupplier struct {
	primary  game.WordSupplier
	fallback game.WordSupplier
	logger   *slog.Logger
}

// NewFallbackSupplier 创建带备用的词库
func NewFallbackSupplier(primary, fallback game.WordSupplier) *FallbackSupplier {
	return &FallbackSupplier{
		primary:  primary,
		fallback: fallback,
		logger:   slog.Default().With("component", "FallbackSupplier"),
	}
}

// FetchWordPair 实现 game.WordSupplier
func (s *FallbackSupplier) FetchWordPair(ctx context.Context) (game.WordPair, error) {
	pair, err := s.primary.FetchWordPair(ctx)
	if err == nil {
		return pair, nil
	}
	s.logger.Warn("Primary word supplier failed, using fallback", "error", err)

	pair, fbErr := s.fallback.FetchWordPair(context.WithoutCancel(ctx))
	if fbErr != nil {
		return game.WordPair{}, errors.Join(err, fbErr)
	}
	return pair, nil
}
