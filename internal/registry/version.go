package registry

import (
	"strconv"
	"strings"
)

// CompareVersions orders two version strings by their numeric components
// and returns -1, 0 or 1. All characters other than digits and dots are
// stripped before splitting, and missing trailing components compare as 0.
// Pre-release and build-metadata suffixes are therefore ignored: "1.0.0-beta"
// orders the same as "1.0.0". This is a known looseness, not strict semver.
func CompareVersions(a, b string) int {
	as := splitNumeric(a)
	bs := splitNumeric(b)

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

func splitNumeric(v string) []int {
	var cleaned strings.Builder
	for _, r := range v {
		if r == '.' || (r >= '0' && r <= '9') {
			cleaned.WriteRune(r)
		}
	}

	parts := strings.Split(cleaned.String(), ".")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			n = 0
		}
		nums = append(nums, n)
	}
	return nums
}
