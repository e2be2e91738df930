package smoke

import (
	"fmt"
	"strings"

	"github.com/okian/squadron/internal/domain/eligibility"
	"github.com/okian/squadron/internal/domain/model"
)

// Verify checks returned team rows (team_id, participant_names,
// score_list) against the generated set.
func Verify(run int, set *Set, rows [][]string, threshold float64, chunk int) []Violation {
	var out []Violation
	bad := func(team, format string, args ...any) {
		out = append(out, Violation{Run: run, TeamID: team, Reason: fmt.Sprintf(format, args...)})
	}

	placed := make(map[string]string)
	for seq, row := range rows {
		if len(row) < 3 {
			bad("", "row %d has %d columns", seq+1, len(row))
			continue
		}
		teamID := row[0]
		names := strings.Split(row[1], model.MemberSeparator)
		if len(names) != chunk {
			bad(teamID, "has %d members, want %d", len(names), chunk)
		}

		members := make([]model.Candidate, 0, len(names))
		var total float64
		for _, name := range names {
			c, ok := set.Candidates[name]
			switch {
			case !ok:
				bad(teamID, "unknown member %q", name)
				continue
			case !c.Eligible():
				bad(teamID, "member %q is not eligible", name)
			}
			if prev, dup := placed[name]; dup {
				bad(teamID, "member %q already placed in %s", name, prev)
			}
			placed[name] = teamID
			members = append(members, c)
			total += c.Score
		}

		if total < threshold {
			bad(teamID, "total %s below threshold %s", model.FormatScore(total), model.FormatScore(threshold))
		}
		if !eligibility.SharesTag(members) {
			bad(teamID, "members share no tag")
		}
		want := fmt.Sprintf("Team_%s%d", eligibility.RepresentativeTag(members), seq+1)
		if teamID != want {
			bad(teamID, "team id should be %s", want)
		}
	}
	return out
}
