package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	dedupe "github.com/okian/vendorhub/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		Convey("When created with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it starts empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When claiming keys", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the key is new", func() {
				ok := d.Claim(ctx, "key-1")

				Convey("Then the claim succeeds", func() {
					So(ok, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the key was already claimed", func() {
				d.Claim(ctx, "key-1")
				ok := d.Claim(ctx, "key-1")

				Convey("Then the second claim fails", func() {
					So(ok, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the key is released", func() {
				d.Claim(ctx, "key-1")
				d.Release(ctx, "key-1")

				Convey("Then it can be claimed again", func() {
					So(d.Size(), ShouldEqual, 0)
					So(d.Claim(ctx, "key-1"), ShouldBeTrue)
				})
			})

			Convey("And an unknown key is released", func() {
				d.Release(ctx, "missing")

				Convey("Then nothing changes", func() {
					So(d.Size(), ShouldEqual, 0)
				})
			})
		})

		Convey("When the bounded deduper is full", func() {
			var evicted []string
			d := dedupe.NewInMemoryDeduper(
				dedupe.WithMaxSize(3),
				dedupe.WithEvictionHook(func(key string) { evicted = append(evicted, key) }),
			)
			for i := 1; i <= 4; i++ {
				d.Claim(ctx, fmt.Sprintf("key-%d", i))
			}

			Convey("Then the oldest key is evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(evicted, ShouldResemble, []string{"key-1"})
				So(d.Claim(ctx, "key-1"), ShouldBeTrue)
				So(d.Claim(ctx, "key-4"), ShouldBeFalse)
			})
		})

		Convey("When unbounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			for i := 0; i < 1000; i++ {
				d.Claim(ctx, fmt.Sprint(i))
			}

			Convey("Then nothing is evicted", func() {
				So(d.Size(), ShouldEqual, 1000)
			})
		})

		Convey("When many goroutines claim the same key", func() {
			d := dedupe.NewInMemoryDeduper()
			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if d.Claim(ctx, "shared") {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one wins", func() {
				So(wins.Load(), ShouldEqual, int32(1))
			})
		})
	})
}
