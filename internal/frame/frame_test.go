package frame

import "testing"

func TestTag(t *testing.T) {
	cases := []struct {
		index int
		want  string
	}{
		{0, "frame_0000"},
		{7, "frame_0007"},
		{43, "frame_0043"},
		{999, "frame_0999"},
		{6571, "frame_6571"},
		{12345, "frame_12345"}, // width is a minimum, never truncates
	}
	for _, tc := range cases {
		if got := Tag(tc.index); got != tc.want {
			t.Errorf("Tag(%d) = %q, want %q", tc.index, got, tc.want)
		}
	}
}

func TestRangeCount(t *testing.T) {
	cases := []struct {
		r    Range
		want int
	}{
		{Range{43, 6571}, 6529},
		{Range{0, 0}, 1},
		{Range{5, 4}, 0},
		{Range{100, 1}, 0},
	}
	for _, tc := range cases {
		if got := tc.r.Count(); got != tc.want {
			t.Errorf("Range{%d, %d}.Count() = %d, want %d", tc.r.Lower, tc.r.Upper, got, tc.want)
		}
	}
}

func TestRangeString(t *testing.T) {
	r := Range{43, 6571}
	if got, want := r.String(), "frame_0043..frame_6571"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
