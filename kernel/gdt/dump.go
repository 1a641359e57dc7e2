package gdt

import (
	"io"

	"github.com/Harthann/Yak/kernel/kfmt"
)

// Dump writes one line per descriptor of the active table to w.
func Dump(w io.Writer) {
	for index, d := range table {
		if !d.Present() {
			kfmt.Fprintf(w, "gdt[%d] not present\n", index)
			continue
		}

		kfmt.Fprintf(w, "gdt[%d] sel 0x%4x base 0x%8x limit 0x%5x access 0x%2x flags 0x%x dpl %d\n",
			index, uint16(index<<3), d.Base(), d.Limit(), uint8(d.Access()), uint8(d.Flags()), d.DPL(),
		)
	}
}
