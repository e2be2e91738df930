package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/squadron/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSubmitResponse(t *testing.T) {
	Convey("Given submission acknowledgements", t, func() {
		Convey("When a run was queued", func() {
			b, err := json.Marshal(types.SubmitResponse{RunID: "r1", Status: "queued"})

			Convey("Then the duplicate flag should be omitted", func() {
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, `{"run_id":"r1","status":"queued"}`)
			})
		})

		Convey("When the key was already used", func() {
			b, err := json.Marshal(types.SubmitResponse{Status: "accepted", Duplicate: true})

			Convey("Then only the status and flag should be present", func() {
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, `{"status":"accepted","duplicate":true}`)
			})
		})
	})
}

func TestPredictRequest(t *testing.T) {
	Convey("Given a prediction request body", t, func() {
		body := `{"name":"Blue","tech_stack_used":"React Go"}`

		Convey("When decoding it", func() {
			var req types.PredictRequest
			err := json.Unmarshal([]byte(body), &req)

			Convey("Then the snake_case fields should be mapped", func() {
				So(err, ShouldBeNil)
				So(req.Name, ShouldEqual, "Blue")
				So(req.TechStackUsed, ShouldEqual, "React Go")
			})
		})
	})
}
