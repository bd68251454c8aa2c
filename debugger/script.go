package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dop251/goja"

	"github.com/sarchlab/rvsim/insts"
)

// parseReg accepts an ABI name ("a0"), an x-name ("x10") or a number.
func parseReg(name string) (uint8, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for r := uint8(0); r < insts.NumRegs; r++ {
		if insts.RegName(r) == name {
			return r, nil
		}
	}

	n, err := strconv.ParseUint(strings.TrimPrefix(name, "x"), 10, 8)
	if err != nil || n >= insts.NumRegs {
		return 0, fmt.Errorf("unknown register %q", name)
	}
	return uint8(n), nil
}

// newVM exposes the paused core to expressions:
//
//	reg(name)   committed register value
//	mem(addr)   word at addr
//	clock()     current cycle
//	stats()     performance counters
func (d *Debugger) newVM() *goja.Runtime {
	vm := goja.New()

	must := func(err error) {
		if err != nil {
			panic(vm.NewGoError(err))
		}
	}

	must(vm.Set("reg", func(v goja.Value) uint32 {
		r, err := parseReg(v.String())
		must(err)
		return d.core.Pipeline.Reg(r)
	}))
	must(vm.Set("mem", func(addr int64) uint32 {
		word, err := d.core.Memory().Read(uint32(addr), 4)
		must(err)
		return word
	}))
	must(vm.Set("clock", func() uint64 {
		return d.core.Pipeline.Clock()
	}))
	must(vm.Set("stats", func() any {
		return d.core.Pipeline.Stats()
	}))

	return vm
}

func (d *Debugger) eval(src string) error {
	if src == "" {
		return fmt.Errorf("nothing to evaluate")
	}

	v, err := d.vm.RunString(src)
	if err != nil {
		return err
	}

	switch x := v.Export().(type) {
	case int64:
		d.printf("%d (0x%x)\n", x, uint32(x))
	default:
		d.printf("%v\n", v)
	}
	return nil
}
