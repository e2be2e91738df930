package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/squadron/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should be empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording ids", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the id is new", func() {
				seen := d.SeenAndRecord(ctx, "run-1")

				Convey("Then it should return false and record the id", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the id was already seen", func() {
				d.SeenAndRecord(ctx, "run-1")
				seen := d.SeenAndRecord(ctx, "run-1")

				Convey("Then it should return true", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the id differs only by case", func() {
				d.SeenAndRecord(ctx, "P1")

				Convey("Then it should be a distinct id", func() {
					So(d.SeenAndRecord(ctx, "p1"), ShouldBeFalse)
				})
			})
		})

		Convey("When case folding is enabled", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithCaseFolding(), dedupe.WithMaxSize(0))
			So(d.SeenAndRecord(ctx, "Alice"), ShouldBeFalse)

			Convey("Then ids differing only by case should collide", func() {
				So(d.SeenAndRecord(ctx, "ALICE"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "alice"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And unrecording with another case should forget the id", func() {
				d.Unrecord(ctx, "aLiCe")
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "alice"), ShouldBeFalse)
			})
		})

		Convey("When the deduper is bounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for i := 1; i <= 4; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("k%d", i)), ShouldBeFalse)
			}

			Convey("Then the oldest id should be evicted first", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "k4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "k2"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "k1"), ShouldBeFalse)
			})
		})

		Convey("When claiming a key with a value", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))
			first, seen := d.Claim(ctx, "key-1", "run-1")
			So(first, ShouldBeEmpty)
			So(seen, ShouldBeFalse)

			Convey("Then a second claim should return the first value", func() {
				first, seen := d.Claim(ctx, "key-1", "run-2")
				So(seen, ShouldBeTrue)
				So(first, ShouldEqual, "run-1")
			})

			Convey("Then an unrecorded key should be claimable again", func() {
				d.Unrecord(ctx, "key-1")
				_, seen := d.Claim(ctx, "key-1", "run-3")
				So(seen, ShouldBeFalse)
				first, _ := d.Claim(ctx, "key-1", "run-4")
				So(first, ShouldEqual, "run-3")
			})

			Convey("Then an evicted key should lose its value", func() {
				d.Claim(ctx, "key-2", "run-5")
				d.Claim(ctx, "key-3", "run-6")
				first, seen := d.Claim(ctx, "key-1", "run-7")
				So(seen, ShouldBeFalse)
				So(first, ShouldBeEmpty)
			})
		})

		Convey("When unrecording an unknown id", func() {
			d := dedupe.NewInMemoryDeduper()
			d.SeenAndRecord(ctx, "a")
			d.Unrecord(ctx, "b")

			Convey("Then nothing should change", func() {
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When many goroutines claim the same ids", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			var wg sync.WaitGroup
			var mu sync.Mutex
			claims := 0
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 100; i++ {
						if !d.SeenAndRecord(ctx, fmt.Sprintf("id-%d", i)) {
							mu.Lock()
							claims++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each id should be claimed exactly once", func() {
				So(claims, ShouldEqual, 100)
				So(d.Size(), ShouldEqual, 100)
			})
		})
	})
}
