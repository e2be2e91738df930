package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/squadron/internal/adapters/http/api"
	"github.com/okian/squadron/internal/domain/model"
	"github.com/okian/squadron/internal/domain/rooms"
	"github.com/okian/squadron/internal/domain/scoring"
	"github.com/okian/squadron/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeDeps struct {
	formReq   *types.FormRequest
	submitErr error
	duplicate bool
	runs      map[string]*model.Run
	roomsArgs []int
	roster    []string
	predicted types.PredictRequest
	tableErr  error
}

func newFakeDeps() *fakeDeps {
	return &fakeDeps{runs: map[string]*model.Run{
		"done": {ID: "done", Status: model.RunDone, Teams: []model.TeamRecord{
			{TeamID: "Team_AI1", Members: []string{"a", "b"}, Scores: []float64{90, 80.5}},
		}},
		"queued": {ID: "queued", Status: model.RunQueued},
	}}
}

func (f *fakeDeps) FormTeams(_ context.Context, req *types.FormRequest) (*model.Run, error) {
	f.formReq = req
	if len(req.Input) == 0 {
		return nil, fmt.Errorf("%w: empty", types.ErrInvalidInput)
	}
	return &model.Run{
		ID:        "r1",
		Status:    model.RunDone,
		Teams:     []model.TeamRecord{{TeamID: "Team_AI1", Members: []string{"a", "b"}, Scores: []float64{90, 80}}},
		Leftovers: []model.Leftover{{ID: "c", Score: 50}, {ID: "d", Score: 40}},
	}, nil
}

func (f *fakeDeps) SubmitRun(_ context.Context, req *types.FormRequest) (types.SubmitResponse, error) {
	f.formReq = req
	if f.submitErr != nil {
		return types.SubmitResponse{}, f.submitErr
	}
	if f.duplicate {
		return types.SubmitResponse{RunID: "r1", Status: "accepted", Duplicate: true}, nil
	}
	return types.SubmitResponse{RunID: "r2", Status: "queued"}, nil
}

func (f *fakeDeps) GetRun(_ context.Context, id string) (*model.Run, error) {
	run, ok := f.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, id)
	}
	return run, nil
}

func (f *fakeDeps) FinishedRun(ctx context.Context, id string) (*model.Run, error) {
	run, err := f.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Status != model.RunDone {
		return nil, types.ErrNotFinished
	}
	return run, nil
}

func (f *fakeDeps) AssignRooms(_ context.Context, teams []string, roomCount, capacity int) (*rooms.Allocation, error) {
	f.roster = teams
	f.roomsArgs = []int{roomCount, capacity}
	return rooms.NewAssigner().Assign(teams, roomCount, capacity)
}

func (f *fakeDeps) PredictScore(_ context.Context, req types.PredictRequest) (types.PredictResponse, error) {
	f.predicted = req
	return types.PredictResponse{Name: req.Name, Score: 142}, nil
}

func (f *fakeDeps) PredictTable(_ context.Context, r io.Reader) ([]scoring.Result, error) {
	if f.tableErr != nil {
		return nil, f.tableErr
	}
	_, _ = io.ReadAll(r)
	return []scoring.Result{{Name: "Blue", Score: 120}, {Name: "Red", Score: 95}}, nil
}

func (f *fakeDeps) GetStats(context.Context) types.Stats {
	return types.Stats{RunsStored: 3, Workers: 2, Store: "memory"}
}

type part struct {
	field, filename, content string
}

func multipartRequest(t *testing.T, target string, parts ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		if p.filename == "" {
			_ = mw.WriteField(p.field, p.content)
			continue
		}
		fw, err := mw.CreateFormFile(p.field, p.filename)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte(p.content))
	}
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newMux(deps api.Dependencies, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, opts...).Register(context.Background(), mux)
	return mux
}

func serve(mux *http.ServeMux, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var out map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given a registered server", t, func() {
		mux := newMux(newFakeDeps())

		Convey("Then /healthz should expose metrics", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then /stats should return the stats as JSON", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/stats", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusOK)
			var st types.Stats
			So(json.Unmarshal(w.Body.Bytes(), &st), ShouldBeNil)
			So(st.RunsStored, ShouldEqual, 3)
			So(st.Store, ShouldEqual, "memory")
		})

		Convey("Then a wrong method should be rejected", func() {
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/stats", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, http.MethodGet)
		})
	})
}

func TestPostTeams(t *testing.T) {
	Convey("Given a registered server", t, func() {
		deps := newFakeDeps()
		mux := newMux(deps)

		Convey("When uploading a candidate file with parameters", func() {
			req := multipartRequest(t, "/teams",
				part{field: "file", filename: "candidates.csv", content: "id,score,eligibility\na,90,ai\n"},
				part{field: "score_threshold", content: "150"},
				part{field: "chunk_size", content: "2"},
			)
			w := serve(mux, req)

			Convey("Then the team CSV should be returned with summary headers", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "text/csv")
				So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, "teams.csv")
				So(w.Header().Get("X-Run-ID"), ShouldEqual, "r1")
				So(w.Header().Get("X-Teams-Formed"), ShouldEqual, "1")
				So(w.Header().Get("X-Leftover-Count"), ShouldEqual, "2")
				So(w.Body.String(), ShouldStartWith, "team_id,participant_names,score_list\n")
				So(w.Body.String(), ShouldContainSubstring, "Team_AI1,a  b,90  80")
			})

			Convey("Then the parameters should reach the service", func() {
				So(string(deps.formReq.Input), ShouldContainSubstring, "a,90,ai")
				So(*deps.formReq.ScoreThreshold, ShouldEqual, 150)
				So(*deps.formReq.ChunkSize, ShouldEqual, 2)
			})
		})

		Convey("When posting a raw CSV body with query parameters", func() {
			req := httptest.NewRequest(http.MethodPost, "/teams?chunk_size=3", strings.NewReader("id,score\n"))
			req.Header.Set("Content-Type", "text/csv")
			w := serve(mux, req)

			Convey("Then the body should be used as the input", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(string(deps.formReq.Input), ShouldEqual, "id,score\n")
				So(*deps.formReq.ChunkSize, ShouldEqual, 3)
				So(deps.formReq.ScoreThreshold, ShouldBeNil)
			})
		})

		Convey("When the multipart form lacks the file", func() {
			w := serve(mux, multipartRequest(t, "/teams", part{field: "chunk_size", content: "2"}))

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When a parameter is not a number", func() {
			req := httptest.NewRequest(http.MethodPost, "/teams?score_threshold=high", strings.NewReader("id\n"))
			w := serve(mux, req)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["message"], ShouldContainSubstring, "score_threshold")
			})
		})

		Convey("When the service rejects the input", func() {
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/teams", http.NoBody))

			Convey("Then the input error should map to 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})

	Convey("Given a server with a tiny upload limit", t, func() {
		mux := newMux(newFakeDeps(), api.WithMaxUploadBytes(8))

		Convey("When the body exceeds it", func() {
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/teams", strings.NewReader("id,score,eligibility\n")))

			Convey("Then it should be rejected as too large", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
			})
		})
	})
}

func TestRuns(t *testing.T) {
	Convey("Given a registered server", t, func() {
		deps := newFakeDeps()
		mux := newMux(deps)

		Convey("When submitting a run with an idempotency key", func() {
			req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader("id\n"))
			req.Header.Set("Idempotency-Key", "k1")
			w := serve(mux, req)

			Convey("Then it should be accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.formReq.IdempotencyKey, ShouldEqual, "k1")
				var ack types.SubmitResponse
				So(json.Unmarshal(w.Body.Bytes(), &ack), ShouldBeNil)
				So(ack.RunID, ShouldEqual, "r2")
			})
		})

		Convey("When the submission is a duplicate", func() {
			deps.duplicate = true
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader("id\n")))

			Convey("Then it should answer 200 with the flag and the first run id", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
				So(w.Body.String(), ShouldContainSubstring, `"run_id":"r1"`)
			})
		})

		Convey("When the queue is full", func() {
			deps.submitErr = fmt.Errorf("%w: queue full", types.ErrBackpressure)
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader("id\n")))

			Convey("Then it should answer 429", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decodeError(w)["code"], ShouldEqual, "backpressure")
			})
		})

		Convey("When reading runs", func() {
			Convey("Then a known run should be returned as JSON", func() {
				w := serve(mux, httptest.NewRequest(http.MethodGet, "/runs/done", http.NoBody))
				So(w.Code, ShouldEqual, http.StatusOK)
				var run model.Run
				So(json.Unmarshal(w.Body.Bytes(), &run), ShouldBeNil)
				So(run.ID, ShouldEqual, "done")
			})

			Convey("Then an unknown run should be 404", func() {
				w := serve(mux, httptest.NewRequest(http.MethodGet, "/runs/nope", http.NoBody))
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("Then a finished run's CSV should be served", func() {
				w := serve(mux, httptest.NewRequest(http.MethodGet, "/runs/done/teams.csv", http.NoBody))
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "Team_AI1,a  b,90  80.50")
			})

			Convey("Then an unfinished run's CSV should be 409", func() {
				w := serve(mux, httptest.NewRequest(http.MethodGet, "/runs/queued/teams.csv", http.NoBody))
				So(w.Code, ShouldEqual, http.StatusConflict)
			})
		})
	})
}

func TestPostRooms(t *testing.T) {
	Convey("Given a registered server", t, func() {
		deps := newFakeDeps()
		mux := newMux(deps)
		roster := part{field: "teams_file", filename: "teams.csv", content: "Team_ID,members\nT1,a\nT2,b\n,c\nT3,d\n"}

		Convey("When room counts come as form fields", func() {
			w := serve(mux, multipartRequest(t, "/rooms", roster,
				part{field: "rooms_available", content: "1"},
				part{field: "room_capacity", content: "2"},
			))

			Convey("Then the allocation CSV should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, "room_allocation.csv")
				So(w.Header().Get("X-Teams-Dropped"), ShouldEqual, "1")
				So(w.Body.String(), ShouldEqual, "team,room\nT1,Room_1\nT2,Room_1\n")
				So(deps.roster, ShouldResemble, []string{"T1", "T2", "T3"})
			})
		})

		Convey("When room counts come as a file", func() {
			w := serve(mux, multipartRequest(t, "/rooms", roster,
				part{field: "rooms_file", filename: "rooms.csv", content: "rooms_available,room_capacity\n3,1\n"},
			))

			Convey("Then they should be read from it", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.roomsArgs, ShouldResemble, []int{3, 1})
			})
		})

		Convey("When the room counts are missing", func() {
			w := serve(mux, multipartRequest(t, "/rooms", roster))

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["message"], ShouldContainSubstring, "rooms_file")
			})
		})

		Convey("When a room count is not positive", func() {
			w := serve(mux, multipartRequest(t, "/rooms", roster,
				part{field: "rooms_available", content: "0"},
				part{field: "room_capacity", content: "2"},
			))

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the request is not multipart", func() {
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/rooms", strings.NewReader("team\nT1\n")))

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestPredict(t *testing.T) {
	Convey("Given a registered server", t, func() {
		deps := newFakeDeps()
		mux := newMux(deps)

		Convey("When predicting one team", func() {
			req := httptest.NewRequest(http.MethodPost, "/predict",
				strings.NewReader(`{"name":"Blue","tech_stack_used":"React Node.js"}`))
			w := serve(mux, req)

			Convey("Then the score should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.predicted.TechStackUsed, ShouldEqual, "React Node.js")
				So(w.Body.String(), ShouldContainSubstring, `"score":142`)
			})
		})

		Convey("When the JSON is malformed", func() {
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{`)))

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When uploading a feature table", func() {
			w := serve(mux, multipartRequest(t, "/predict/upload",
				part{field: "file", filename: "features.csv", content: "team name,React\nBlue,1\n"}))

			Convey("Then the predictions CSV should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, "predicted_scores.csv")
				So(w.Body.String(), ShouldEqual, "team_name,score\nBlue,120\nRed,95\n")
			})
		})

		Convey("When the table is rejected", func() {
			deps.tableErr = fmt.Errorf("%w: %w", types.ErrInvalidInput, errors.New("non-numeric"))
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/predict/upload", strings.NewReader("React\nx\n")))

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given operation errors", t, func() {
		cause := errors.New("boom")

		Convey("Then WrapKind should match both kind and cause", func() {
			err := api.WrapKind("op", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "op: bad request: boom")
		})

		Convey("Then NewKind and Wrap should render the operation", func() {
			So(api.NewKind("op", api.ErrBadRequest).Error(), ShouldEqual, "op: bad request")
			So(api.Wrap("op", cause).Error(), ShouldEqual, "op: boom")
			So(api.Wrap("op", nil), ShouldBeNil)
			So(api.WrapKind("op", api.ErrBadRequest, nil), ShouldBeNil)
		})
	})
}
