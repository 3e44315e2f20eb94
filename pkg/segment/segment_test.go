package segment

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Segment
	}{
		{
			name: "no markers yields single zero-delay segment",
			raw:  "just a plain reply",
			want: []Segment{{0, "just a plain reply"}},
		},
		{
			name: "multi-line without markers stays one segment",
			raw:  "line one\nline two",
			want: []Segment{{0, "line one\nline two"}},
		},
		{
			name: "empty input falls back to raw",
			raw:  "",
			want: []Segment{{0, ""}},
		},
		{
			name: "whitespace-only input falls back to raw",
			raw:  "  \n\t\n ",
			want: []Segment{{0, "  \n\t\n "}},
		},
		{
			// marker line "-#3#-" is 5 chars: 3 + 5*7/10 = 6
			name: "single marker splits and delays the following segment",
			raw:  "Hi there\n-#3#-\nHow are you?",
			want: []Segment{{0, "Hi there"}, {6, "How are you?"}},
		},
		{
			name: "consecutive markers accumulate delay",
			raw:  "a\n-#2#-\n-#3#-\nb",
			want: []Segment{{0, "a"}, {11, "b"}},
		},
		{
			name: "leading marker delays the first segment",
			raw:  "-#1#-\nhi",
			want: []Segment{{4, "hi"}},
		},
		{
			name: "trailing marker with no following text is dropped",
			raw:  "bye\n-#9#-",
			want: []Segment{{0, "bye"}},
		},
		{
			name: "zero-second marker still adds typing time",
			raw:  "a\n-#0#-\nb",
			want: []Segment{{0, "a"}, {3, "b"}},
		},
		{
			// whitespace-only block between markers is dropped and its
			// accumulated delay does not leak into the next segment
			name: "whitespace-only segment resets pending delay",
			raw:  "a\n-#5#-\n \n-#2#-\nb",
			want: []Segment{{0, "a"}, {5, "b"}},
		},
		{
			// marker matched after trimming, typing time uses the raw line
			name: "indented marker counts its full line length",
			raw:  "a\n  -#2#-  \nb",
			want: []Segment{{0, "a"}, {8, "b"}},
		},
		{
			name: "marker-like text inside a line is literal",
			raw:  "the code -#3#- is not a marker",
			want: []Segment{{0, "the code -#3#- is not a marker"}},
		},
		{
			name: "negative numbers are not markers",
			raw:  "a\n-#-3#-\nb",
			want: []Segment{{0, "a\n-#-3#-\nb"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSplitIsPure(t *testing.T) {
	raw := "one\n-#4#-\ntwo\n-#1#-\nthree"
	first := Split(raw)
	second := Split(raw)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Split is not deterministic: %v vs %v", first, second)
	}
}

func TestSplitOrderingPreserved(t *testing.T) {
	raw := "s0\n-#1#-\ns1\n-#1#-\ns2\n-#1#-\ns3"
	got := Split(raw)
	want := []string{"s0", "s1", "s2", "s3"}
	if len(got) != len(want) {
		t.Fatalf("expected %d segments, got %d", len(want), len(got))
	}
	for i, seg := range got {
		if seg.Text != want[i] {
			t.Errorf("segment %d = %q, want %q", i, seg.Text, want[i])
		}
	}
}
