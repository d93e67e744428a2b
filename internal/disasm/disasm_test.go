package disasm

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var errOdd = errors.New("odd word")

// evenDecoder accepts even words only and names them by value.
type evenDecoder struct{}

func (evenDecoder) Decode(w uint32) (Inst, error) {
	if w%2 != 0 {
		return Inst{}, errOdd
	}
	if w == 0 {
		return Inst{Op: "zero", Category: 0}, nil
	}
	return Inst{Op: "even", Category: 1}, nil
}

func (evenDecoder) Categories() []string { return []string{"Zero", "Even"} }

func TestSweep(t *testing.T) {
	code := []byte{
		0x00, 0x00, 0x00, 0x00, // zero
		0x01, 0x00, 0x00, 0x00, // odd, dropped
		0x02, 0x00, 0x00, 0x00, // even
		0xaa, 0xbb, // remainder
	}

	var dropped []int
	got := Sweep(code, 0x100, evenDecoder{}, func(off int, w uint32, err error) {
		if !errors.Is(err, errOdd) {
			t.Errorf("drop err = %v, want errOdd", err)
		}
		dropped = append(dropped, off)
	})

	want := Stream{
		{Offset: 0x100, Word: 0, Op: "zero", Category: 0},
		{Offset: 0x108, Word: 2, Op: "even", Category: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Sweep() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{4}, dropped); diff != "" {
		t.Errorf("dropped offsets mismatch (-want +got):\n%s", diff)
	}
}

func TestSweepNilDrop(t *testing.T) {
	got := Sweep([]byte{1, 0, 0, 0}, 0, evenDecoder{}, nil)
	if len(got) != 0 {
		t.Errorf("Sweep() = %v, want empty", got)
	}
}

func TestStreamOps(t *testing.T) {
	s := Stream{{Op: "add.w"}, {Op: "b"}}
	if diff := cmp.Diff([]string{"add.w", "b"}, s.Ops()); diff != "" {
		t.Errorf("Ops() mismatch (-want +got):\n%s", diff)
	}
}
