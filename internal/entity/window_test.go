package entity

import (
	"strconv"
	"strings"
	"testing"
)

func render(controls []Control) string {
	parts := make([]string, 0, len(controls))
	for _, c := range controls {
		switch c.Kind {
		case First:
			parts = append(parts, "<<")
		case Prev:
			parts = append(parts, "<")
		case Next:
			parts = append(parts, ">")
		case Last:
			parts = append(parts, ">>")
		case Ellipsis:
			parts = append(parts, "...")
		case PageNumber:
			s := strconv.Itoa(c.Page)
			if c.Current {
				s = "[" + s + "]"
			}
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func TestWindow(t *testing.T) {
	cases := []struct {
		current, total, span int
		want                 string
	}{
		{1, 1, 3, "[1]"},
		{1, 2, 3, "[1] 2 >"},
		{2, 2, 3, "< 1 [2]"},
		{1, 10, 3, "[1] 2 3 4 ... 10 > >>"},
		{5, 10, 1, "<< < 1 ... 4 [5] 6 ... 10 > >>"},
		{10, 10, 3, "<< < 1 ... 7 8 9 [10] >>"},
		{3, 5, 3, "<< < 1 2 [3] 4 5 > >>"},
		{6, 8, 1, "<< < 1 ... 5 [6] 7 8 > >>"},
		{3, 8, 1, "<< < 1 2 [3] 4 ... 8 > >>"},
		{0, 0, 3, "[1]"},
		{9, 4, 3, "<< < 1 2 3 [4] >>"},
	}
	for _, tc := range cases {
		got := render(Window(tc.current, tc.total, tc.span))
		if got != tc.want {
			t.Fatalf("Window(%d, %d, %d) = %q, want %q", tc.current, tc.total, tc.span, got, tc.want)
		}
	}
}

func TestWindowControlTargets(t *testing.T) {
	for _, c := range Window(4, 9, DefaultSpan) {
		switch c.Kind {
		case First:
			if c.Page != 1 {
				t.Fatalf("first targets %d", c.Page)
			}
		case Prev:
			if c.Page != 3 {
				t.Fatalf("prev targets %d", c.Page)
			}
		case Next:
			if c.Page != 5 {
				t.Fatalf("next targets %d", c.Page)
			}
		case Last:
			if c.Page != 9 {
				t.Fatalf("last targets %d", c.Page)
			}
		case Ellipsis:
			if c.Page != 0 {
				t.Fatalf("ellipsis carries page %d", c.Page)
			}
		}
	}
}

func TestSearchReady(t *testing.T) {
	cases := map[string]bool{
		"":       true,
		"a":      false,
		"abcd":   false,
		"abcde":  true,
		"ñandú":  true,
		"phones": true,
	}
	for term, want := range cases {
		if got := SearchReady(term); got != want {
			t.Fatalf("SearchReady(%q) = %v, want %v", term, got, want)
		}
	}
}

func TestFilterSetValues(t *testing.T) {
	f := Filters("categoryName", "Phones", "model", "", "dangling")
	if len(f) != 2 {
		t.Fatalf("len = %d", len(f))
	}
	v := f.Values()
	if v.Get("categoryName") != "Phones" {
		t.Fatalf("categoryName = %q", v.Get("categoryName"))
	}
	if _, ok := v["model"]; !ok {
		t.Fatalf("empty filter dropped: %v", v)
	}
	if f.Get("missing") != "" {
		t.Fatalf("unexpected value for missing key")
	}
}

func TestFilterSetWith(t *testing.T) {
	base := Filters("categoryName", "Phones", "model", "")
	next := base.With("model", "Pixel")
	if base.Get("model") != "" {
		t.Fatalf("With mutated the receiver")
	}
	if next.Get("model") != "Pixel" || next.Get("categoryName") != "Phones" || len(next) != 2 {
		t.Fatalf("With = %+v", next)
	}
	if got := FilterSet(nil).With("status", "active"); len(got) != 1 || got.Get("status") != "active" {
		t.Fatalf("With on nil = %+v", got)
	}
}
