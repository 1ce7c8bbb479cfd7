package deflate

import "sort"

// buildHuffmanLen is the package-merge-flavored bottom-up length
// builder of §4.4: repeatedly merge the two lightest groups, bumping
// every member's code length, biasing the merged weight to discourage
// deep trees. Grounded on gzipC.c's buildHuffmanLen (SYMBOL_TREE_MERGE_INC=20,
// DIST_TREE_MERGE_INC=7).
func buildHuffmanLen(freq []int, bias int, maxLen int) []int {
	lengths := make([]int, len(freq))

	type group struct {
		weight  int
		members []int
	}
	var groups []*group
	for i, f := range freq {
		if f > 0 {
			groups = append(groups, &group{weight: f, members: []int{i}})
		}
	}
	if len(groups) == 0 {
		return lengths
	}
	if len(groups) == 1 {
		lengths[groups[0].members[0]] = 1
		return lengths
	}
	for len(groups) > 1 {
		sort.Slice(groups, func(i, j int) bool { return groups[i].weight < groups[j].weight })
		a, b := groups[0], groups[1]
		for _, m := range a.members {
			lengths[m]++
		}
		for _, m := range b.members {
			lengths[m]++
		}
		merged := &group{weight: a.weight + b.weight + bias}
		merged.members = append(merged.members, a.members...)
		merged.members = append(merged.members, b.members...)
		groups = append(groups[2:], merged)
	}
	for i := range lengths {
		if lengths[i] > maxLen {
			lengths[i] = maxLen
		}
	}
	return lengths
}

// buildCanonicalCodes assigns ascending codes within each length,
// ordered by (length, symbol index), then bit-reverses each code so
// LSB-first bit writing yields the MSB-first code DEFLATE requires.
func buildCanonicalCodes(lengths []int) []uint16 {
	codes := make([]uint16, len(lengths))

	type sym struct{ length, idx int }
	var syms []sym
	for i, l := range lengths {
		if l > 0 {
			syms = append(syms, sym{l, i})
		}
	}
	sort.Slice(syms, func(i, j int) bool {
		if syms[i].length != syms[j].length {
			return syms[i].length < syms[j].length
		}
		return syms[i].idx < syms[j].idx
	})

	code := 0
	prevLen := 0
	for _, s := range syms {
		code <<= uint(s.length - prevLen)
		prevLen = s.length
		codes[s.idx] = reverseBits(uint16(code), s.length)
		code++
	}
	return codes
}

func reverseBits(v uint16, n int) uint16 {
	var r uint16
	for i := 0; i < n; i++ {
		r = (r << 1) | (v & 1)
		v >>= 1
	}
	return r
}
