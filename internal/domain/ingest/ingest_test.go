package ingest_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/okian/squadron/internal/domain/ingest"
	"github.com/okian/squadron/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	Convey("Given a comma separated candidate table", t, func() {
		input := "id,profileScore,eligibility\n" +
			"P1,100,\"a,b\"\n" +
			"p2,90,ab\n" +
			"P1,999,z\n" +
			"p3,abc,a\n" +
			"p4,70,\n" +
			",50,a\n" +
			"p5,60.5,c\n"

		Convey("When it is ingested", func() {
			pool, err := ingest.Parse([]byte(input))
			So(err, ShouldBeNil)

			Convey("Then the first row per id should win", func() {
				So(pool.Len(), ShouldEqual, 5)
				p1, ok := pool.Lookup("p1")
				So(ok, ShouldBeTrue)
				So(p1.ID, ShouldEqual, "P1")
				So(p1.Score, ShouldEqual, 100)
				So(p1.Tags, ShouldResemble, []string{"a", "b"})
				So(pool.Stats.Duplicates, ShouldEqual, 1)
			})

			Convey("Then bad rows should degrade instead of failing", func() {
				p3, _ := pool.Lookup("P3")
				So(p3.HasScore, ShouldBeFalse)
				p4, _ := pool.Lookup("p4")
				So(p4.Class(), ShouldEqual, model.ClassNoTags)
				So(pool.Stats.MissingID, ShouldEqual, 1)
				So(pool.Stats.NoScore, ShouldEqual, 1)
				So(pool.Stats.NoTags, ShouldEqual, 1)
			})

			Convey("Then only fully usable records should be eligible, in input order", func() {
				var ids []string
				for _, c := range pool.Eligible() {
					ids = append(ids, c.ID)
				}
				So(ids, ShouldResemble, []string{"P1", "p2", "p5"})
				So(pool.Stats.Eligible, ShouldEqual, 3)
				So(pool.Stats.Delimiter, ShouldEqual, ",")
			})

			Convey("Then re-ingesting should give the same partition", func() {
				again, err := ingest.Parse([]byte(input))
				So(err, ShouldBeNil)
				So(again.Eligible(), ShouldResemble, pool.Eligible())
				So(again.Stats, ShouldResemble, pool.Stats)
			})
		})
	})

	Convey("Given a tab separated table with alternative headers", t, func() {
		input := "\ufeffID\tScore\tEligible\nx1\t10\ta|b\nx2\t20\tB\n"

		Convey("When it is ingested", func() {
			pool, err := ingest.Parse([]byte(input))
			So(err, ShouldBeNil)

			Convey("Then the delimiter and aliases should be recognized", func() {
				So(pool.Stats.Delimiter, ShouldEqual, "\t")
				So(pool.Len(), ShouldEqual, 2)
				x2, _ := pool.Lookup("X2")
				So(x2.Score, ShouldEqual, 20)
				So(x2.Tags, ShouldResemble, []string{"b"})
			})
		})
	})

	Convey("Given a table whose delimiter cannot be sniffed", t, func() {
		input := "id\np1\np2\n"

		Convey("When it is ingested", func() {
			pool, err := ingest.Parse([]byte(input))

			Convey("Then it should fall back to commas and keep going", func() {
				So(err, ShouldBeNil)
				So(pool.Stats.Delimiter, ShouldEqual, ",")
				So(pool.Len(), ShouldEqual, 2)
				So(pool.Stats.NoScore, ShouldEqual, 2)
			})
		})
	})

	Convey("Given several score columns", t, func() {
		input := "id,profilescore,score,eligibility\np1,,42,a\n"

		Convey("When the preferred one is empty", func() {
			pool, _ := ingest.Parse([]byte(input))

			Convey("Then the next alias should be used", func() {
				p1, _ := pool.Lookup("p1")
				So(p1.HasScore, ShouldBeTrue)
				So(p1.Score, ShouldEqual, 42)
			})
		})
	})

	Convey("Given non-finite scores", t, func() {
		pool, _ := ingest.Parse([]byte("id,score,eligibility\na,NaN,x\nb,inf,x\nc,1e2,x\n"))

		Convey("Then only finite numbers should count as scores", func() {
			So(pool.Stats.NoScore, ShouldEqual, 2)
			c, _ := pool.Lookup("c")
			So(c.Score, ShouldEqual, 100)
		})
	})

	Convey("Given empty input", t, func() {
		pool, err := ingest.Parse(nil)

		Convey("Then the pool should be empty without error", func() {
			So(err, ShouldBeNil)
			So(pool.Len(), ShouldEqual, 0)
			So(pool.Eligible(), ShouldBeEmpty)
		})
	})

	Convey("Given a failing reader", t, func() {
		_, err := ingest.Read(failingReader{})

		Convey("Then the read error should be wrapped", func() {
			So(errors.Is(err, ingest.ErrRead), ShouldBeTrue)
		})
	})

	Convey("Given a reader", t, func() {
		pool, err := ingest.Read(strings.NewReader("id;score;eligibility\nq;5;k\n"))

		Convey("Then Read should behave like Parse", func() {
			So(err, ShouldBeNil)
			So(pool.Stats.Delimiter, ShouldEqual, ";")
			So(pool.Stats.Eligible, ShouldEqual, 1)
		})
	})
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestParseTags(t *testing.T) {
	Convey("Given raw eligibility fields", t, func() {
		cases := []struct {
			raw  string
			want []string
		}{
			{"a,b", []string{"a", "b"}},
			{"AB;c", []string{"a", "b", "c"}},
			{"x|yz", []string{"x", "y", "z"}},
			{"p q", []string{"p", "q"}},
			{"abc", []string{"a", "b", "c"}},
			{"A", []string{"a"}},
			{"a1,b", []string{"a1", "b"}},
			{"a,,b,", []string{"a", "b"}},
			{"a;b,c", []string{"a;b", "c"}},
			{"aa", []string{"a"}},
			{"", nil},
			{"   ", nil},
		}

		Convey("Then each should produce the expected tag set", func() {
			for _, tc := range cases {
				got := ingest.ParseTags(tc.raw)
				if tc.want == nil {
					So(got, ShouldBeEmpty)
					continue
				}
				So(got, ShouldResemble, tc.want)
			}
		})
	})
}

func TestSniff(t *testing.T) {
	Convey("Given samples with different delimiters", t, func() {
		Convey("Then the consistent delimiter should be picked", func() {
			So(ingest.Sniff([]byte("a,b,c\n1,2,3\n")).Delimiter, ShouldEqual, ',')
			So(ingest.Sniff([]byte("a;b\n1;2\n")).Delimiter, ShouldEqual, ';')
			So(ingest.Sniff([]byte("a|b|c\n1|\"x|y\"|3\n")).Delimiter, ShouldEqual, '|')
		})

		Convey("Then commas inside a tab table should not confuse it", func() {
			d := ingest.Sniff([]byte("id\tscore\telig\np\t1\ta,b\n"))
			So(d.Delimiter, ShouldEqual, '\t')
			So(d.Sniffed, ShouldBeTrue)
		})

		Convey("Then a sample without any delimiter should fall back", func() {
			d := ingest.Sniff([]byte("id\nx\n"))
			So(d.Delimiter, ShouldEqual, ingest.DefaultDelimiter)
			So(d.Sniffed, ShouldBeFalse)
		})

		Convey("Then a line cut by the sample boundary should be ignored", func() {
			var b strings.Builder
			b.WriteString("id,score,eligibility\n")
			for b.Len() < ingest.SampleSize-5 {
				b.WriteString("p,1,a\n")
			}
			b.WriteString("q,2,\"a,b,c,d,e,f,g,h\"\n")
			So(ingest.Sniff([]byte(b.String())).Delimiter, ShouldEqual, ',')
		})
	})
}
