package normalize

import "github.com/netspeak-go/netspeak/pkg/querytree"

// maxComplexity is the admission ceiling (§4.2.1).
const maxComplexity = 10000

// saturatingCap is the overflow ceiling for intermediate complexity
// arithmetic, matching the reference's UINT32_MAX saturation.
const saturatingCap = uint64(4294967295)

func satAdd(a, b uint64) uint64 {
	sum := a + b
	if sum < a || sum > saturatingCap {
		return saturatingCap
	}
	return sum
}

func satMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > saturatingCap/b {
		return saturatingCap
	}
	product := a * b
	if product > saturatingCap {
		return saturatingCap
	}
	return product
}

// complexity computes the worst-case multiplicative complexity of u
// (§4.2.1). CONCAT multiplies across children; ALTERNATION sums across
// branches; every other tag contributes its fixed per-unit factor without
// recursing into its own children, matching the reference's coarse,
// deliberately-not-tight bound.
func complexity(u *querytree.Unit, maxRegexMatches int) uint64 {
	switch u.Tag {
	case querytree.CONCAT:
		c := uint64(1)
		for _, child := range u.Children {
			c = satMul(c, complexity(child, maxRegexMatches))
		}
		return c
	case querytree.ALTERNATION:
		c := uint64(0)
		for _, child := range u.Children {
			c = satAdd(c, complexity(child, maxRegexMatches))
		}
		return c
	case querytree.WORD, querytree.QMARK:
		return 1
	case querytree.REGEX:
		return satMul(1, uint64(maxRegexMatches))
	case querytree.DICTSET:
		return 5
	case querytree.PLUS:
		return 4
	case querytree.STAR:
		return 5
	case querytree.OPTIONSET:
		return uint64(len(u.Children))
	case querytree.ORDERSET:
		return factorial(uint64(len(u.Children)))
	default:
		return 1
	}
}

func factorial(n uint64) uint64 {
	result := uint64(1)
	for i := uint64(2); i <= n; i++ {
		result = satMul(result, i)
		if result == saturatingCap {
			return saturatingCap
		}
	}
	return result
}

// unbounded marks "no finite upper bound" in a length-window estimate.
const unbounded = -1

// lengthBounds returns a coarse [min, max] structural length estimate for
// u, used by the second admission pass to drop alternatives that cannot
// possibly fit the request's length window before expansion is attempted.
// DICTSET counts as at least one position with no finite maximum, since a
// synonym may contribute several words; the exact length of each synonym
// is checked per candidate during expansion.
func lengthBounds(u *querytree.Unit) (min, max int) {
	switch u.Tag {
	case querytree.WORD, querytree.QMARK, querytree.REGEX:
		return 1, 1
	case querytree.DICTSET:
		return 1, unbounded
	case querytree.STAR:
		return 0, unbounded
	case querytree.PLUS:
		return 1, unbounded
	case querytree.OPTIONSET:
		if len(u.Children) == 0 {
			return 0, 0
		}
		mn, mx := lengthBounds(u.Children[0])
		for _, c := range u.Children[1:] {
			cmn, cmx := lengthBounds(c)
			if cmn < mn {
				mn = cmn
			}
			mx = maxBound(mx, cmx)
		}
		return mn, mx
	case querytree.ORDERSET, querytree.CONCAT:
		mn, mx := 0, 0
		for _, c := range u.Children {
			cmn, cmx := lengthBounds(c)
			mn += cmn
			mx = addBound(mx, cmx)
		}
		return mn, mx
	case querytree.ALTERNATION:
		if len(u.Children) == 0 {
			return 0, 0
		}
		mn, mx := lengthBounds(u.Children[0])
		for _, c := range u.Children[1:] {
			cmn, cmx := lengthBounds(c)
			if cmn < mn {
				mn = cmn
			}
			mx = maxBound(mx, cmx)
		}
		return mn, mx
	default:
		return 1, 1
	}
}

func addBound(a, b int) int {
	if a == unbounded || b == unbounded {
		return unbounded
	}
	return a + b
}

func maxBound(a, b int) int {
	if a == unbounded || b == unbounded {
		return unbounded
	}
	if a > b {
		return a
	}
	return b
}

// fitsWindow reports whether a branch whose structural bounds are (min,
// max) could possibly produce a NormQuery within [minLength, maxLength].
func fitsWindow(min, max, minLength, maxLength int) bool {
	if min > maxLength {
		return false
	}
	if max != unbounded && max < minLength {
		return false
	}
	return true
}
