package words

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSlice(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []uint32
	}{
		{
			name: "empty",
			in:   nil,
			want: []uint32{},
		},
		{
			name: "shorter than a word",
			in:   []byte{0x01, 0x02, 0x03},
			want: []uint32{},
		},
		{
			name: "single word is little endian",
			in:   []byte{0xa4, 0x18, 0x10, 0x00},
			want: []uint32{0x001018a4},
		},
		{
			name: "trailing bytes dropped",
			in:   []byte{0x01, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0xff, 0xff},
			want: []uint32{0x00000001, 0x00000002},
		},
		{
			name: "order follows byte offset",
			in:   []byte{0x00, 0x00, 0x00, 0x50, 0x00, 0x00, 0x00, 0x54},
			want: []uint32{0x50000000, 0x54000000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Slice(tt.in)); diff != "" {
				t.Errorf("Slice() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAllOffsets(t *testing.T) {
	buf := make([]byte, 18)
	var offs []int
	for off := range All(buf) {
		offs = append(offs, off)
	}
	if diff := cmp.Diff([]int{0, 4, 8, 12}, offs); diff != "" {
		t.Errorf("offsets mismatch (-want +got):\n%s", diff)
	}
}

func TestAllStopsEarly(t *testing.T) {
	buf := make([]byte, 64)
	seen := 0
	for range All(buf) {
		seen++
		if seen == 3 {
			break
		}
	}
	if seen != 3 {
		t.Errorf("iterated %d words after break, want 3", seen)
	}
}

func FuzzCount(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{1, 2, 3, 4, 5})
	f.Fuzz(func(t *testing.T, b []byte) {
		n := 0
		for range All(b) {
			n++
		}
		if n != len(b)/4 || n != Count(b) {
			t.Fatalf("len %d: yielded %d words, Count %d", len(b), n, Count(b))
		}
	})
}
