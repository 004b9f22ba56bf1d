package model

import (
	"reflect"
	"testing"
)

func TestClassifyNumber(t *testing.T) {
	tests := []struct {
		num  string
		want NumberClass
	}{
		{"42", NumberStandard},
		{"042", NumberStandard},
		{"17a", NumberStandard},
		{"1/P3", NumberPromo},
		{"12/P1", NumberPromo},
		{"OP01-042", NumberPrefixed},
		{"SR-12", NumberPrefixed},
		{"weird", NumberStandard},
	}

	for _, tt := range tests {
		if got := ClassifyNumber(tt.num); got != tt.want {
			t.Errorf("ClassifyNumber(%q) = %v, want %v", tt.num, got, tt.want)
		}
	}
}

func TestCompareNumbers_PromosSortLast(t *testing.T) {
	// Promo-style numbers must sort after every non-promo number,
	// ordered among themselves by the wave code suffix.
	nums := []string{"1/P3", "204", "1/P1", "42", "2/P1", "1", "SR-12"}
	SortNumbers(nums)

	want := []string{"1", "42", "204", "SR-12", "1/P1", "2/P1", "1/P3"}
	if !reflect.DeepEqual(nums, want) {
		t.Errorf("SortNumbers = %v, want %v", nums, want)
	}
}

func TestCompareNumbers_StandardNumeric(t *testing.T) {
	// "9" sorts before "100" despite lexicographic order.
	if CompareNumbers("9", "100") >= 0 {
		t.Error("expected 9 < 100")
	}
	if CompareNumbers("042", "42") != 0 {
		t.Error("expected 042 == 42 numerically")
	}
	if CompareNumbers("17a", "17") <= 0 {
		t.Error("expected 17a > 17")
	}
}

func TestCompareNumbers_Prefixed(t *testing.T) {
	if CompareNumbers("OP01-042", "OP01-100") >= 0 {
		t.Error("expected OP01-042 < OP01-100")
	}
	if CompareNumbers("OP01-042", "OP02-001") >= 0 {
		t.Error("expected OP01 block before OP02 block")
	}
}

func TestNumericValue(t *testing.T) {
	tests := []struct {
		num  string
		want int
		ok   bool
	}{
		{"42", 42, true},
		{"042", 42, true},
		{"1/P3", 1, true},
		{"OP01-042", 42, true},
		{"", 0, false},
		{"???", 0, false},
	}

	for _, tt := range tests {
		got, ok := NumericValue(tt.num)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NumericValue(%q) = %d,%v want %d,%v", tt.num, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCardKey(t *testing.T) {
	c := Card{SeriesCode: "tfc1", Number: "042", Language: LangEnglish}
	if got := c.Key(); got != "tfc1/042/en" {
		t.Errorf("Key() = %q", got)
	}
}

func TestSeriesHasLanguage(t *testing.T) {
	s := Series{Code: "tfc1", Languages: []Language{LangEnglish, LangGerman}}
	if !s.HasLanguage(LangEnglish) {
		t.Error("expected en available")
	}
	if s.HasLanguage(LangJapanese) {
		t.Error("expected ja unavailable")
	}
}
