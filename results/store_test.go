package results_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/results"
	"github.com/sarchlab/rvsim/timing/config"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

var _ = Describe("Store", func() {
	var (
		store *results.Store
		t0    time.Time
	)

	record := func(name string, at time.Duration, retired uint64) *results.Record {
		return &results.Record{
			Name:    name,
			Time:    t0.Add(at),
			Config:  config.DefaultConfig(),
			Stats:   pipeline.Statistics{Retired: retired},
			Retired: retired,
			Stop:    pipeline.StopQuit.String(),
		}
	}

	BeforeEach(func() {
		var err error
		store, err = results.Open("")
		Expect(err).NotTo(HaveOccurred())
		t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	It("should round trip a record", func() {
		r := record("fib", 0, 42)
		r.Config.Features.GShare = true
		Expect(store.Put(r)).To(Succeed())

		got, err := store.List("fib")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(1))
		Expect(got[0].Retired).To(Equal(uint64(42)))
		Expect(got[0].Stats.Retired).To(Equal(uint64(42)))
		Expect(got[0].Config.Features.GShare).To(BeTrue())
		Expect(got[0].Time.Equal(r.Time)).To(BeTrue())
	})

	It("should list runs oldest first", func() {
		Expect(store.Put(record("fib", 2*time.Second, 3))).To(Succeed())
		Expect(store.Put(record("fib", 0, 1))).To(Succeed())
		Expect(store.Put(record("fib", time.Second, 2))).To(Succeed())

		got, err := store.List("fib")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(3))
		Expect(got[0].Retired).To(Equal(uint64(1)))
		Expect(got[2].Retired).To(Equal(uint64(3)))

		latest, ok, err := store.Latest("fib")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(latest.Retired).To(Equal(uint64(3)))
	})

	It("should keep names apart", func() {
		Expect(store.Put(record("fib", 0, 1))).To(Succeed())
		Expect(store.Put(record("fibonacci", 0, 2))).To(Succeed())
		Expect(store.Put(record("bubble", 0, 3))).To(Succeed())

		got, err := store.List("fib")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(1))

		all, err := store.List("")
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(3))

		names, err := store.Names()
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(Equal([]string{"bubble", "fib", "fibonacci"}))
	})

	It("should report a missing run", func() {
		_, ok, err := store.Latest("nothing")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("should delete the runs of a name", func() {
		Expect(store.Put(record("fib", 0, 1))).To(Succeed())
		Expect(store.Put(record("fib", time.Second, 2))).To(Succeed())
		Expect(store.Put(record("sort", 0, 3))).To(Succeed())

		Expect(store.Delete("fib")).To(Succeed())
		names, err := store.Names()
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(Equal([]string{"sort"}))
	})

	It("should reject bad names", func() {
		Expect(store.Put(record("a/b", 0, 1))).To(MatchError(results.ErrInvalidName))
		Expect(store.Put(record("", 0, 1))).To(MatchError(results.ErrInvalidName))
		_, err := store.List("x/y")
		Expect(err).To(MatchError(results.ErrInvalidName))
	})

	It("should persist to disk", func() {
		dir := GinkgoT().TempDir()
		disk, err := results.Open(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(disk.Put(record("fib", 0, 7))).To(Succeed())
		Expect(disk.Close()).To(Succeed())

		disk, err = results.Open(dir)
		Expect(err).NotTo(HaveOccurred())
		defer disk.Close()
		latest, ok, err := disk.Latest("fib")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(latest.Retired).To(Equal(uint64(7)))
	})
})
