package game

import (
	crand "crypto/rand"
	"math/big"
	"math/rand/v2"
	"sync"
)

// lockedRand 房间共享的随机源
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newLockedRand(r *rand.Rand) *lockedRand {
	if r == nil {
		var seed [32]byte
		_, _ = crand.Read(seed[:])
		r = rand.New(rand.NewChaCha8(seed))
	}
	return &lockedRand{r: r}
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// shuffle Fisher-Yates 原地洗牌，每种排列等概率
func shuffle(names []string, rnd *lockedRand) {
	for i := len(names) - 1; i > 0; i-- {
		j := rnd.IntN(i + 1)
		names[i], names[j] = names[j], names[i]
	}
}

// roomCodeChars 房间码字符集
const roomCodeChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateRoomCode 生成随机房间码
func GenerateRoomCode(length int) string {
	code := make([]byte, length)
	for i := range length {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(roomCodeChars))))
		if err != nil {
			code[i] = roomCodeChars[rand.IntN(len(roomCodeChars))]
			continue
		}
		code[i] = roomCodeChars[n.Int64()]
	}
	return string(code)
}
