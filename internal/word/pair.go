// Package word 为每局游戏提供平民词和卧底词
package word

import (
	"errors"
	"strings"

	"sudooom.spy/internal/game"
)

// ErrMalformedPair 词对格式错误（需要两个不同的、逗号分隔的词）
var ErrMalformedPair = errors.New("malformed word pair")

// ParsePair 解析 "car, van" 为平民词和卧底词
// 去除空白并转小写，第二个逗号之后的内容忽略
func ParsePair(raw string) (game.WordPair, error) {
	tokens := strings.Split(raw, ",")
	if len(tokens) < 2 {
		return game.WordPair{}, ErrMalformedPair
	}

	civilian := normalize(tokens[0])
	spy := normalize(tokens[1])
	if civilian == "" || spy == "" || civilian == spy {
		return game.WordPair{}, ErrMalformedPair
	}
	return game.WordPair{Civilian: civilian, Spy: spy}, nil
}

func normalize(token string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(token), ".\"'"))
}
