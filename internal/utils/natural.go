package utils

import (
	"sort"
	"strings"
	"unicode"
)

// NaturalLess compares strings treating runs of digits as numbers, so
// "page2" sorts before "page10".
func NaturalLess(a, b string) bool {
	for a != "" && b != "" {
		ca, cb := rune(a[0]), rune(b[0])
		if unicode.IsDigit(ca) && unicode.IsDigit(cb) {
			na, restA := digitRun(a)
			nb, restB := digitRun(b)
			ta, tb := strings.TrimLeft(na, "0"), strings.TrimLeft(nb, "0")
			if len(ta) != len(tb) {
				return len(ta) < len(tb)
			}
			if ta != tb {
				return ta < tb
			}
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			a, b = restA, restB
			continue
		}
		if ca != cb {
			return ca < cb
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func digitRun(s string) (string, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}

// SortNatural sorts ids in place in natural order.
func SortNatural(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return NaturalLess(ids[i], ids[j])
	})
}
