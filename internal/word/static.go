package word

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"gopkg.in/yaml.v3"

	"sudooom.spy/internal/game"
)

//go:embed bank.yaml
var defaultBank []byte

type bankFile struct {
	Pairs []string `yaml:"pairs"`
}

// StaticSupplier 内置词库，随机选取词对
type StaticSupplier struct {
	pairs []game.WordPair
}

// NewStaticSupplier 创建内置词库
func NewStaticSupplier(pairs []game.WordPair) (*StaticSupplier, error) {
	if len(pairs) == 0 {
		return nil, errors.New("word bank is empty")
	}
	return &StaticSupplier{pairs: pairs}, nil
}

// LoadStaticSupplier 加载词库文件，path 为空时使用内置词库
func LoadStaticSupplier(path string) (*StaticSupplier, error) {
	data := defaultBank
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read word bank: %w", err)
		}
	}

	pairs, err := parseBank(data)
	if err != nil {
		return nil, err
	}
	return NewStaticSupplier(pairs)
}

func parseBank(data []byte) ([]game.WordPair, error) {
	var bank bankFile
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("parse word bank: %w", err)
	}

	pairs := make([]game.WordPair, 0, len(bank.Pairs))
	for i, raw := range bank.Pairs {
		pair, err := ParsePair(raw)
		if err != nil {
			return nil, fmt.Errorf("word bank entry %d %q: %w", i, raw, err)
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// Len 词对数量
func (s *StaticSupplier) Len() int {
	return len(s.pairs)
}

// FetchWordPair 实现 game.WordSupplier
func (s *StaticSupplier) FetchWordPair(ctx context.Context) (game.WordPair, error) {
	if err := ctx.Err(); err != nil {
		return game.WordPair{}, err
	}
	return s.pairs[rand.IntN(len(s.pairs))], nil
}
