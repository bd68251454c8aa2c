package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/insts"
)

var _ = Describe("Insts Package", func() {
	It("should name ABI registers", func() {
		Expect(insts.RegName(insts.RegZero)).To(Equal("zero"))
		Expect(insts.RegName(insts.RegSP)).To(Equal("sp"))
		Expect(insts.RegName(insts.RegT3)).To(Equal("t3"))
		Expect(insts.RegName(40)).To(Equal("?"))
	})

	It("should treat ra and t0 as link registers", func() {
		Expect(insts.IsLinkReg(insts.RegRA)).To(BeTrue())
		Expect(insts.IsLinkReg(insts.RegT0)).To(BeTrue())
		Expect(insts.IsLinkReg(insts.RegSP)).To(BeFalse())
		Expect(insts.IsLinkReg(insts.RegZero)).To(BeFalse())
	})

	It("should describe debug operations", func() {
		Expect(insts.DebugQuit.String()).To(Equal("quit"))
		Expect(insts.DebugInput.Valid()).To(BeTrue())
		Expect(insts.DebugOp(42).Valid()).To(BeFalse())
	})
})
