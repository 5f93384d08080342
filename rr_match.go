// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package tcpclient

// containsPattern reports whether pattern occurs as a contiguous
// substring of buf (spec.md §4.4: "plain byte-substring, not regex").
// Short patterns use a naive scan; longer ones use a Boyer-Moore-Horspool
// skip table so the receive loop's worst case stays close to linear in
// the number of collected bytes, as spec.md §4.4 recommends.
func containsPattern(buf, pattern []byte) bool {
	if len(pattern) == 0 {
		return false
	}
	if len(pattern) > len(buf) {
		return false
	}
	if len(pattern) <= 4 {
		return naiveIndex(buf, pattern) >= 0
	}
	return bmhIndex(buf, pattern) >= 0
}

func naiveIndex(buf, pattern []byte) int {
	n, m := len(buf), len(pattern)
	for i := 0; i+m <= n; i++ {
		j := 0
		for j < m && buf[i+j] == pattern[j] {
			j++
		}
		if j == m {
			return i
		}
	}
	return -1
}

// bmhIndex implements Boyer-Moore-Horspool: build a bad-character skip
// table keyed by byte value, then scan comparing right-to-left within
// each window, skipping ahead by the table's distance on a mismatch.
func bmhIndex(buf, pattern []byte) int {
	n, m := len(buf), len(pattern)

	var skip [256]int
	for i := range skip {
		skip[i] = m
	}
	for i := 0; i < m-1; i++ {
		skip[pattern[i]] = m - 1 - i
	}

	i := 0
	for i+m <= n {
		j := m - 1
		for j >= 0 && buf[i+j] == pattern[j] {
			j--
		}
		if j < 0 {
			return i
		}
		i += skip[buf[i+m-1]]
	}
	return -1
}
