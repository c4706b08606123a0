package seasonsim

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/roster"
)

// Generator produces catalogs, squads, transfers and match reports.
// It is not safe for concurrent use.
type Generator struct {
	rnd   *rand.Rand
	rules roster.Rules
}

// NewGenerator seeds a generator for the given squad rules.
func NewGenerator(seed uint64, rules roster.Rules) *Generator {
	return &Generator{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), rules: rules}
}

// Catalog builds teams feeder teams of fifteen athletes each.
func (g *Generator) Catalog(teams int) []model.Athlete {
	var out []model.Athlete
	for t := 1; t <= teams; t++ {
		team := fmt.Sprintf("team-%02d", t)
		for _, pos := range model.Positions {
			for i := 1; i <= squadShape[pos]; i++ {
				id := fmt.Sprintf("t%02d-%s-%d", t, pos, i)
				tenths := priceFloorTenths + g.rnd.IntN(priceSpanTenths)
				out = append(out, model.Athlete{
					ID:       id,
					Name:     fmt.Sprintf("%s %s %d", team, pos, i),
					Team:     team,
					Position: pos,
					Price:    decimal.New(int64(tenths), -1),
				})
			}
		}
	}
	return out
}

// Squad picks a legal draft for managerID from catalog, or an error when the
// catalog cannot satisfy the formation within the team cap.
func (g *Generator) Squad(managerID string, catalog []model.Athlete) (model.RosterDraft, error) {
	byPos := map[model.Position][]model.Athlete{}
	for _, a := range catalog {
		byPos[a.Position] = append(byPos[a.Position], a)
	}

	perTeam := map[string]int{}
	var ids []string
	for _, pos := range model.Positions {
		pool := slices.Clone(byPos[pos])
		g.rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		need := g.rules.Formation[pos]
		for _, a := range pool {
			if need == 0 {
				break
			}
			if g.rules.MaxPerTeam > 0 && perTeam[a.Team] >= g.rules.MaxPerTeam {
				continue
			}
			perTeam[a.Team]++
			ids = append(ids, a.ID)
			need--
		}
		if need > 0 {
			return model.RosterDraft{}, fmt.Errorf("catalog short of %d %s for %s", need, pos, managerID)
		}
	}
	sort.Strings(ids)
	return model.RosterDraft{
		ManagerID:  managerID,
		AthleteIDs: ids,
		CaptainID:  ids[g.rnd.IntN(len(ids))],
	}, nil
}

// Swap replaces one athlete of l with another of the same position, keeping
// the team cap. It reports false when no candidate fits.
func (g *Generator) Swap(l model.TeamLedger, catalog model.Catalog) (model.RosterDraft, bool) {
	if len(l.Roster) == 0 {
		return model.RosterDraft{}, false
	}
	perTeam := map[string]int{}
	for _, id := range l.Roster {
		perTeam[catalog[id].Team]++
	}

	out := catalog[l.Roster[g.rnd.IntN(len(l.Roster))]]
	perTeam[out.Team]--

	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	g.rnd.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	for _, id := range ids {
		in := catalog[id]
		if in.Position != out.Position || slices.Contains(l.Roster, id) {
			continue
		}
		if g.rules.MaxPerTeam > 0 && perTeam[in.Team] >= g.rules.MaxPerTeam {
			continue
		}
		next := make([]string, 0, len(l.Roster))
		for _, r := range l.Roster {
			if r == out.ID {
				r = in.ID
			}
			next = append(next, r)
		}
		captain := l.CaptainID
		if captain == out.ID {
			captain = in.ID
		}
		return model.RosterDraft{
			ManagerID:   l.ManagerID,
			AthleteIDs:  next,
			CaptainID:   captain,
			BaseVersion: l.Version,
		}, true
	}
	return model.RosterDraft{}, false
}

// Reports produces one match report for roughly two thirds of the catalog.
func (g *Generator) Reports(catalog []model.Athlete) []model.MatchEventReport {
	results := []model.Result{model.ResultWin, model.ResultDraw, model.ResultLoss}
	var out []model.MatchEventReport
	for _, a := range catalog {
		if g.rnd.IntN(3) == 0 {
			continue
		}
		r := model.MatchEventReport{
			AthleteID:     a.ID,
			Result:        results[g.rnd.IntN(len(results))],
			CleanSheet:    g.rnd.IntN(4) == 0,
			ManOfTheMatch: g.rnd.IntN(20) == 0,
		}
		if a.Position != model.Keeper && g.rnd.IntN(5) == 0 {
			r.Goals = 1 + g.rnd.IntN(2)
		}
		if a.Position != model.Keeper && g.rnd.IntN(6) == 0 {
			r.Assists = 1
		}
		if g.rnd.IntN(8) == 0 {
			r.Cards[0] = 1
		}
		out = append(out, r)
	}
	return out
}

// Pick reports whether an event with probability p happens.
func (g *Generator) Pick(p float64) bool {
	return g.rnd.Float64() < p
}
