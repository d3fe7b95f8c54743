package palletid

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractStrict(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "marker and bare form collapse",
			text: "(00)123456789012345678 foo 123456789012345678",
			want: []string{"123456789012345678"},
		},
		{
			name: "marker without closing paren",
			text: "SSCC (00340123450000000017 end",
			want: []string{"340123450000000017"},
		},
		{
			name: "17 digit run ignored",
			text: "id 12345678901234567 end",
			want: []string{},
		},
		{
			name: "19 digit run ignored",
			text: "id 1234567890123456789 end",
			want: []string{},
		},
		{
			name: "two distinct ids keep order",
			text: "999999999999999999\n111111111111111111 999999999999999999",
			want: []string{"999999999999999999", "111111111111111111"},
		},
		{
			name: "letters glued to digits are not a boundary",
			text: "x123456789012345678",
			want: []string{},
		},
		{
			name: "empty",
			text: "",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text, Strict)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractTolerant(t *testing.T) {
	t.Run("confusions are fixed before matching", func(t *testing.T) {
		got := Extract("12O45678901234567I", Tolerant)
		if !contains(got, "120456789012345671") {
			t.Fatalf("got %v, want 120456789012345671", got)
		}
	})

	t.Run("lowercase l and bar become ones", func(t *testing.T) {
		got := Extract("pallet l2345678901234567| ok", Tolerant)
		if !contains(got, "123456789012345671") {
			t.Fatalf("got %v", got)
		}
	})

	t.Run("fragments are stitched", func(t *testing.T) {
		got := Extract("123 456789012345 - 678 / 999", Tolerant)
		if !contains(got, "123456789012345678") {
			t.Fatalf("got %v, want 123456789012345678", got)
		}
		for _, id := range got {
			if strings.HasPrefix(id, "123") && id != "123456789012345678" {
				t.Fatalf("start chunk 123 produced extra candidate %q", id)
			}
		}
	})

	t.Run("overflow yields nothing for that start", func(t *testing.T) {
		got := Extract("123 4567890123456789", Tolerant)
		if diff := cmp.Diff([]string{}, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("first exact combination wins", func(t *testing.T) {
		// 6+6+6 = 18 from the first chunk; 6+6 from the second falls short.
		got := Extract("111111 222222 333333", Tolerant)
		want := []string{"111111222222333333"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("short chunks are ignored", func(t *testing.T) {
		got := Extract("12 34 56 78 90 12 34 56 78", Tolerant)
		if len(got) != 0 {
			t.Fatalf("got %v, want none", got)
		}
	})

	t.Run("standalone and stitched dedupe", func(t *testing.T) {
		got := Extract("123456789012345678 and 123456789012345678", Tolerant)
		want := []string{"123456789012345678"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestExtractProperties(t *testing.T) {
	inputs := []string{
		"",
		"no digits here",
		"(00)123456789012345678 (00)876543210987654321",
		"Total 1234 page 2 of 3 ref 00012345678901 lot 5678",
		"OOO III lll ||| 123 456 789 012 345 678 901 234",
		"1234567890123456789012345678901234567890",
		"(00)|23456789O12345678",
	}
	for _, strategy := range []Strategy{Strict, Tolerant} {
		for _, in := range inputs {
			first := Extract(in, strategy)
			seen := map[string]bool{}
			for _, id := range first {
				if !Valid(id) {
					t.Errorf("%s: %q produced invalid id %q", strategy, in, id)
				}
				if seen[id] {
					t.Errorf("%s: %q produced duplicate %q", strategy, in, id)
				}
				seen[id] = true
			}
			if diff := cmp.Diff(first, Extract(in, strategy)); diff != "" {
				t.Errorf("%s: not idempotent for %q:\n%s", strategy, in, diff)
			}
		}
	}
}

func TestUnion(t *testing.T) {
	got := Union([]string{"A", "B"}, []string{"B", "C"}, nil, []string{"A"})
	want := []string{"A", "B", "C"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Union() mismatch (-want +got):\n%s", diff)
	}
	if got := Union(); len(got) != 0 {
		t.Errorf("Union() of nothing = %v", got)
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"strict", Strict, false},
		{"A", Strict, false},
		{" Tolerant ", Tolerant, false},
		{"b", Tolerant, false},
		{"fuzzy", Strict, true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseStrategy(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("O|lI o"); got != "0111 o" {
		t.Errorf("Normalize() = %q", got)
	}
}

func contains(ids []string, want string) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}
