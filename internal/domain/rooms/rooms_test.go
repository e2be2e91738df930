package rooms_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/squadron/internal/domain/rooms"
	. "github.com/smartystreets/goconvey/convey"
)

func teams(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Team_A%d", i+1)
	}
	return out
}

func TestAssign(t *testing.T) {
	Convey("Given seven teams, two rooms and capacity three", t, func() {
		a := rooms.NewAssigner()

		Convey("When assigning", func() {
			alloc, err := a.Assign(teams(7), 2, 3)
			So(err, ShouldBeNil)

			Convey("Then rooms should fill in order and one team is dropped", func() {
				So(len(alloc.Assignments), ShouldEqual, 6)
				So(alloc.Counts(), ShouldResemble, map[string]int{"Room_1": 3, "Room_2": 3})
				So(alloc.Assignments[0], ShouldResemble, rooms.Assignment{Team: "Team_A1", Room: "Room_1"})
				So(alloc.Assignments[3], ShouldResemble, rooms.Assignment{Team: "Team_A4", Room: "Room_2"})
				So(alloc.Dropped, ShouldResemble, []string{"Team_A7"})
			})
		})
	})

	Convey("Given fewer teams than seats", t, func() {
		a := rooms.NewAssigner(rooms.WithLabelPrefix("Room"))

		Convey("Then nothing should be dropped and labels use the prefix", func() {
			alloc, err := a.Assign(teams(2), 5, 10)
			So(err, ShouldBeNil)
			So(alloc.Dropped, ShouldBeEmpty)
			So(alloc.Assignments[1].Room, ShouldEqual, "Room1")
		})
	})

	Convey("Given no teams", t, func() {
		Convey("Then the allocation should be empty", func() {
			alloc, err := rooms.NewAssigner().Assign(nil, 1, 1)
			So(err, ShouldBeNil)
			So(alloc.Assignments, ShouldBeEmpty)
			So(alloc.Dropped, ShouldBeEmpty)
		})
	})

	Convey("Given invalid parameters", t, func() {
		a := rooms.NewAssigner()

		Convey("Then zero rooms should be rejected", func() {
			_, err := a.Assign(teams(1), 0, 3)
			So(errors.Is(err, rooms.ErrInvalidRooms), ShouldBeTrue)
		})

		Convey("Then zero capacity should be rejected", func() {
			_, err := a.Assign(teams(1), 3, 0)
			So(errors.Is(err, rooms.ErrInvalidCapacity), ShouldBeTrue)
		})
	})
}
