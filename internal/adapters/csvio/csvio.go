// Package csvio reads and writes the tabular files exchanged with callers.
package csvio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/okian/squadron/internal/domain/ingest"
	"github.com/okian/squadron/internal/domain/model"
	"github.com/okian/squadron/internal/domain/rooms"
	"github.com/okian/squadron/internal/domain/scoring"
)

// Output headers.
var (
	TeamsHeader       = []string{"team_id", "participant_names", "score_list"}
	RoomsHeader       = []string{"team", "room"}
	PredictionsHeader = []string{"team_name", "score"}
)

// Roster and room parameter column names, matched case-insensitively.
var (
	rosterTeamColumns = []string{"team", "team_id", "team_name", "team name"}
	roomsColumn       = "rooms_available"
	capacityColumn    = "room_capacity"
)

// Sentinel errors for caller-supplied tables.
var (
	ErrNoTeamColumn = errors.New("no team column")
	ErrRoomParams   = errors.New("invalid room parameters")
	ErrWrite        = errors.New("write csv")
)

// WriteTeams writes the formation output. The header is always written.
func WriteTeams(w io.Writer, teams []model.TeamRecord) error {
	rows := make([][]string, 0, len(teams))
	for _, t := range teams {
		rows = append(rows, []string{t.TeamID, t.ParticipantNames(), t.ScoreList()})
	}
	return writeAll(w, TeamsHeader, rows)
}

// WriteRooms writes team to room assignments in fill order.
func WriteRooms(w io.Writer, assignments []rooms.Assignment) error {
	rows := make([][]string, 0, len(assignments))
	for _, a := range assignments {
		rows = append(rows, []string{a.Team, a.Room})
	}
	return writeAll(w, RoomsHeader, rows)
}

// WritePredictions writes batch prediction results.
func WritePredictions(w io.Writer, results []scoring.Result) error {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{r.Name, strconv.Itoa(r.Score)})
	}
	return writeAll(w, PredictionsHeader, rows)
}

func writeAll(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// ReadRoster returns the team names of a roster table in row order. The
// team column is the first of team, team_id, team_name and "team name";
// blank names are skipped.
func ReadRoster(r io.Reader) ([]string, error) {
	header, rows, err := readTable(r)
	if err != nil {
		return nil, err
	}
	col := column(header, rosterTeamColumns...)
	if col < 0 {
		return nil, fmt.Errorf("%w: want one of %s", ErrNoTeamColumn, strings.Join(rosterTeamColumns, ", "))
	}

	teams := make([]string, 0, len(rows))
	for _, rec := range rows {
		if col >= len(rec) {
			continue
		}
		if name := strings.TrimSpace(rec[col]); name != "" {
			teams = append(teams, name)
		}
	}
	return teams, nil
}

// ReadRoomParams reads rooms_available and room_capacity from the first
// data row of a table.
func ReadRoomParams(r io.Reader) (int, int, error) {
	header, rows, err := readTable(r)
	if err != nil {
		return 0, 0, err
	}
	rc, cc := column(header, roomsColumn), column(header, capacityColumn)
	if rc < 0 || cc < 0 {
		return 0, 0, fmt.Errorf("%w: want columns %s and %s", ErrRoomParams, roomsColumn, capacityColumn)
	}
	if len(rows) == 0 || rc >= len(rows[0]) || cc >= len(rows[0]) {
		return 0, 0, fmt.Errorf("%w: no values", ErrRoomParams)
	}
	n, err := ParsePositive(roomsColumn, rows[0][rc])
	if err != nil {
		return 0, 0, err
	}
	c, err := ParsePositive(capacityColumn, rows[0][cc])
	if err != nil {
		return 0, 0, err
	}
	return n, c, nil
}

// ParsePositive parses an integer of at least 1.
func ParsePositive(name, raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%w: %s must be an integer >= 1, got %q", ErrRoomParams, name, raw)
	}
	return v, nil
}

func readTable(r io.Reader) ([]string, [][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read table: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = ingest.Sniff(data).Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = cr.Comma != '\t'
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse table: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}

func column(header []string, names ...string) int {
	for _, n := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), n) {
				return i
			}
		}
	}
	return -1
}
