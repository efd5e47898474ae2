package identity

// similarityRatio returns the Ratcliff/Obershelp ratio 2*M/T of a and b,
// where M is the total size of the matching blocks found by repeatedly
// taking the longest common substring (leftmost in a, then in b) and
// recursing on both sides. No junk heuristic is applied.
func similarityRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	index := make(map[rune][]int, len(rb))
	for j, r := range rb {
		index[r] = append(index[r], j)
	}
	matches := matchingSize(ra, index, 0, len(ra), 0, len(rb))
	return 2.0 * float64(matches) / float64(total)
}

func matchingSize(a []rune, index map[rune][]int, alo, ahi, blo, bhi int) int {
	i, j, k := longestMatch(a, index, alo, ahi, blo, bhi)
	if k == 0 {
		return 0
	}
	size := k
	if alo < i && blo < j {
		size += matchingSize(a, index, alo, i, blo, j)
	}
	if i+k < ahi && j+k < bhi {
		size += matchingSize(a, index, i+k, ahi, j+k, bhi)
	}
	return size
}

func longestMatch(a []rune, index map[rune][]int, alo, ahi, blo, bhi int) (besti, bestj, bestSize int) {
	besti, bestj = alo, blo
	runLen := map[int]int{}
	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range index[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := runLen[j-1] + 1
			next[j] = k
			if k > bestSize {
				besti, bestj, bestSize = i-k+1, j-k+1, k
			}
		}
		runLen = next
	}
	return besti, bestj, bestSize
}
