package game

// Tally 统计每人得票数
func Tally(votes map[string]string) map[string]int {
	counts := make(map[string]int, len(votes))
	for _, target := range votes {
		counts[target]++
	}
	return counts
}

// plurality 得票最多的玩家，平票时取字典序最小者
func plurality(votes map[string]string) string {
	best, bestCount := "", 0
	for target, count := range Tally(votes) {
		if count > bestCount || (count == bestCount && target < best) {
			best, bestCount = target, count
		}
	}
	return best
}
