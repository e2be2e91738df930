package eligibility_test

import (
	"testing"

	"github.com/okian/squadron/internal/domain/eligibility"
	"github.com/okian/squadron/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func cand(id string, tags ...string) model.Candidate {
	return model.NewCandidate(id, 1, true, tags)
}

func TestMatcher(t *testing.T) {
	Convey("Given groups of candidates", t, func() {
		Convey("When every member shares two tags", func() {
			group := []model.Candidate{cand("a", "y", "x", "z"), cand("b", "x", "y"), cand("c", "y", "x")}

			Convey("Then the smallest shared tag should represent the group", func() {
				So(eligibility.SharesTag(group), ShouldBeTrue)
				So(eligibility.CommonTags(group), ShouldResemble, []string{"x", "y"})
				So(eligibility.RepresentativeTag(group), ShouldEqual, "X")
			})
		})

		Convey("When one member shares nothing", func() {
			group := []model.Candidate{cand("a", "x"), cand("b", "x"), cand("d", "y")}

			Convey("Then the group should not match", func() {
				So(eligibility.SharesTag(group), ShouldBeFalse)
				So(eligibility.RepresentativeTag(group), ShouldEqual, eligibility.NoTag)
			})
		})

		Convey("When the group is empty", func() {
			Convey("Then it should not match", func() {
				So(eligibility.SharesTag(nil), ShouldBeFalse)
				So(eligibility.RepresentativeTag(nil), ShouldEqual, eligibility.NoTag)
			})
		})

		Convey("When the group has a single member", func() {
			group := []model.Candidate{cand("solo", "q", "b")}

			Convey("Then its own smallest tag should represent it", func() {
				So(eligibility.RepresentativeTag(group), ShouldEqual, "B")
			})
		})

		Convey("When matching", func() {
			group := []model.Candidate{cand("a", "x", "y"), cand("b", "y")}
			before := append([]string(nil), group[0].Tags...)
			eligibility.CommonTags(group)

			Convey("Then member tags should be left untouched", func() {
				So(group[0].Tags, ShouldResemble, before)
			})
		})
	})
}
