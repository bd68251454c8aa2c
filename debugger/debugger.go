// Package debugger implements the interactive console of the simulator.
//
// Commands operate on a paused core and write to an io.Writer, so the
// console can be driven from readline or from a test.
package debugger

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dop251/goja"
	"github.com/xlab/treeprint"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/report"
	"github.com/sarchlab/rvsim/timing/core"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

// ErrQuit is returned by Execute for the quit command.
var ErrQuit = errors.New("quit")

// Debugger drives a core from console commands.
type Debugger struct {
	core *core.Core
	out  io.Writer
	vm   *goja.Runtime
}

// New creates a debugger for c writing to out.
func New(c *core.Core, out io.Writer) *Debugger {
	d := &Debugger{core: c, out: out}
	d.vm = d.newVM()
	return d
}

func (d *Debugger) printf(format string, args ...any) {
	fmt.Fprintf(d.out, format, args...)
}

// Execute runs one command line.
func (d *Debugger) Execute(line string) error {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "", "n":
		d.step()
	case "c":
		d.cont()
	case "p":
		return d.print(arg)
	case "m":
		addr, err := parseAddr(arg)
		if err != nil {
			return err
		}
		s, err := d.core.Memory().CString(addr)
		if err != nil {
			return err
		}
		d.printf("%s\n", s)
	case "x":
		addr, err := parseAddr(arg)
		if err != nil {
			return err
		}
		word, err := d.core.Memory().Read(addr, 4)
		if err != nil {
			return err
		}
		d.printf("%08x: %08x  %s\n", addr, word, insts.Disassemble(word, addr))
	case "b":
		addr, err := parseAddr(arg)
		if err != nil {
			return fmt.Errorf("invalid breakpoint: %w", err)
		}
		if d.core.Pipeline.ToggleBreakpoint(addr) {
			d.printf("Set breakpoint %x\n", addr)
		} else {
			d.printf("Unset breakpoint %x\n", addr)
		}
	case "s":
		on := !d.core.Pipeline.Tracing()
		d.core.Pipeline.SetTrace(on)
		if on {
			d.printf("Debug spew on\n")
		} else {
			d.printf("Debug spew off\n")
		}
	case "e":
		return d.eval(arg)
	case "q":
		return ErrQuit
	case "h", "help":
		d.help()
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	return nil
}

func (d *Debugger) help() {
	d.printf(`n            next cycle
c            continue until a break
p <what>     print rob, reg, rs, bht, btac, ras, cdb, stats or bp
m <addr>     print the string at addr
x <addr>     print the word at addr
b <addr>     toggle a breakpoint on a committed pc
s            toggle the per-cycle trace
e <expr>     evaluate a JavaScript expression
q            quit
`)
}

func parseAddr(arg string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(arg, "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address: %q", arg)
	}
	return uint32(v), nil
}

func (d *Debugger) step() {
	reason, err := d.core.Pipeline.RunCycles(1)
	d.stopped(reason, err)
}

func (d *Debugger) cont() {
	reason, err := d.core.Run()
	d.stopped(reason, err)
}

// stopped reports why the core paused.
func (d *Debugger) stopped(reason pipeline.StopReason, err error) {
	if reason == pipeline.StopNone {
		return
	}

	switch {
	case err != nil:
		d.printf("Stopped (%s): %v\n", reason, err)
	case d.core.Halted():
		d.printf("Stopped (%s) at clock %d\n", reason, d.core.Pipeline.Clock())
	default:
		d.printf("Paused (%s)\n", reason)
	}
	d.Prompt()
}

// Prompt prints the approximate PC of the paused core.
func (d *Debugger) Prompt() {
	d.printf("PC: %x ish\n", d.core.Pipeline.State().PCLast)
}

// Run reads commands from rl until the program halts, the input ends or
// the user quits.
func (d *Debugger) Run(rl *readline.Instance) error {
	d.Prompt()
	for !d.core.Halted() {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := d.Execute(line); errors.Is(err, ErrQuit) {
			return nil
		} else if err != nil {
			d.printf("%v\n", err)
		}
	}
	return nil
}

// NewReadline creates a console with history kept in historyFile.
func NewReadline(historyFile string) (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:      "> ",
		HistoryFile: historyFile,
	})
}

func (d *Debugger) print(what string) error {
	s := d.core.Pipeline.State()

	var tree treeprint.Tree
	switch what {
	case "rob":
		tree = robTree(s)
	case "reg":
		tree = regTree(s)
	case "rs":
		tree = rsTree(s)
	case "bht":
		tree = bhtTree(s)
	case "btac":
		tree = btacTree(s)
	case "ras":
		tree = rasTree(s)
	case "cdb":
		tree = cdbTree(s)
	case "bp":
		tree = treeprint.NewWithRoot("breakpoints")
		for _, pc := range d.core.Pipeline.Breakpoints() {
			tree.AddNode(fmt.Sprintf("%x", pc))
		}
	case "stats":
		return report.New("", d.core.Pipeline).WriteText(d.out)
	default:
		return fmt.Errorf("unknown thing: %s", what)
	}

	d.printf("%s", tree.String())
	return nil
}
