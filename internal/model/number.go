package model

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// NumberClass describes the shape of a card number string.
type NumberClass int

const (
	// NumberStandard is a plain in-set number, optionally with a single
	// trailing letter ("42", "042", "17a").
	NumberStandard NumberClass = iota
	// NumberPromo is promo slash notation: an index over a promo wave
	// code, e.g. "1/P3" is card 1 of promo wave P3.
	NumberPromo
	// NumberPrefixed carries a set or rarity prefix before the numeric
	// part, e.g. "OP01-042" or "SR-12".
	NumberPrefixed
)

var (
	standardNumRe = regexp.MustCompile(`^(\d+)([a-z])?$`)
	promoNumRe    = regexp.MustCompile(`^(\d+)/P(\d+)$`)
	prefixedNumRe = regexp.MustCompile(`^([A-Z]+[0-9]*)-(\d+)$`)
)

// ClassifyNumber determines how a number string should be interpreted
// and ordered. Unrecognized shapes fall back to NumberStandard so they
// still sort deterministically.
func ClassifyNumber(num string) NumberClass {
	switch {
	case promoNumRe.MatchString(num):
		return NumberPromo
	case prefixedNumRe.MatchString(num):
		return NumberPrefixed
	default:
		return NumberStandard
	}
}

// CompareNumbers orders two card number strings. Promo numbers sort
// after all non-promo numbers; among promos the numeric suffix of the
// promo wave code orders first ("1/P1" before "1/P2"), then the index
// within the wave. Standard numbers order by numeric value, prefixed
// numbers by prefix then numeric part.
func CompareNumbers(a, b string) int {
	ca, cb := ClassifyNumber(a), ClassifyNumber(b)

	promoA, promoB := ca == NumberPromo, cb == NumberPromo
	if promoA != promoB {
		if promoA {
			return 1
		}
		return -1
	}

	if promoA {
		ma := promoNumRe.FindStringSubmatch(a)
		mb := promoNumRe.FindStringSubmatch(b)
		if c := compareInts(ma[2], mb[2]); c != 0 { // wave code suffix
			return c
		}
		if c := compareInts(ma[1], mb[1]); c != 0 { // index within wave
			return c
		}
		return strings.Compare(a, b)
	}

	if ca == NumberPrefixed && cb == NumberPrefixed {
		ma := prefixedNumRe.FindStringSubmatch(a)
		mb := prefixedNumRe.FindStringSubmatch(b)
		if c := strings.Compare(ma[1], mb[1]); c != 0 {
			return c
		}
		return compareInts(ma[2], mb[2])
	}

	// Prefixed sorts after plain standard within the non-promo block.
	if ca != cb {
		if ca == NumberPrefixed {
			return 1
		}
		if cb == NumberPrefixed {
			return -1
		}
	}

	ma := standardNumRe.FindStringSubmatch(a)
	mb := standardNumRe.FindStringSubmatch(b)
	if ma != nil && mb != nil {
		if c := compareInts(ma[1], mb[1]); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}

// SortNumbers sorts number strings in ascending ingestion order.
func SortNumbers(nums []string) {
	sort.Slice(nums, func(i, j int) bool {
		return CompareNumbers(nums[i], nums[j]) < 0
	})
}

// NumericValue returns the leading numeric portion of a number string,
// used for pagination bounding. Returns 0 and false when the string has
// no usable numeric part.
func NumericValue(num string) (int, bool) {
	if m := promoNumRe.FindStringSubmatch(num); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	if m := prefixedNumRe.FindStringSubmatch(num); m != nil {
		n, _ := strconv.Atoi(m[2])
		return n, true
	}
	if m := standardNumRe.FindStringSubmatch(num); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	return 0, false
}

func compareInts(a, b string) int {
	na, _ := strconv.Atoi(a)
	nb, _ := strconv.Atoi(b)
	switch {
	case na < nb:
		return -1
	case na > nb:
		return 1
	default:
		return 0
	}
}
