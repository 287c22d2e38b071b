package heuristic_test

import (
	"fmt"

	"fspatch/internal/heuristic"
)

func ExampleNew() {
	image := make([]byte, 0x70000)
	copy(image[0x6a234:], []byte{
		0x10, 0x00, 0x00, 0x94,
		0x08, 0x1c, 0x00, 0x12,
		0x1f, 0x05, 0x00, 0x71,
		0x41, 0x01, 0x00, 0x54,
	})

	v, _ := heuristic.Lookup(heuristic.FsNoCntChk)
	h, err := heuristic.New(image, v)
	if err != nil {
		fmt.Println(err)
		return
	}
	off, err := h.Offset()
	fmt.Printf("found=%v offset=0x%x err=%v\n", h.IsFound(), off, err)
	// Output: found=true offset=0x6a238 err=<nil>
}
