package tenure

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenureline/internal/config"
	"tenureline/internal/domain"
)

func testPipeline(t *testing.T, cfg *config.Config) *Pipeline {
	t.Helper()
	p, err := New(cfg, nil)
	require.NoError(t, err)
	p.Now = fixedNow(t)
	return p
}

// pipelineConfig keys post identity on dept alone so a minister and a
// minister of state land on the same post, and disables the span checks
// that would otherwise flag the open tenures these fixtures leave behind.
func pipelineConfig() *config.Config {
	cfg := config.Default()
	cfg.PostID.Fields = []string{"dept"}
	cfg.Builder.LongTenureDays = 0
	cfg.Builder.GapDays = 0
	return cfg
}

func councilOrders(t *testing.T) []domain.Order {
	t.Helper()
	return []domain.Order{
		{
			OrderID: "ord-1", Date: day(t, "2000-01-10"), Category: "Council of Ministers",
			Details: []domain.OrderDetail{
				{DetailIdx: 0, OfficerID: "off-1", Assumes: []domain.Post{homePost()}},
				{DetailIdx: 1, OfficerID: "off-2", Assumes: []domain.Post{statePost("home")}},
			},
		},
		{
			OrderID: "ord-2", Date: day(t, "2003-04-01"), Category: "Council of Ministers",
			Details: []domain.OrderDetail{
				{DetailIdx: 0, OfficerID: "off-1", Continues: []domain.Post{homePost()}},
			},
		},
	}
}

func TestPipelineRun(t *testing.T) {
	p := testPipeline(t, pipelineConfig())
	res, err := p.Run(context.Background(), councilOrders(t))
	require.NoError(t, err)
	require.Len(t, res.Tenures, 2)

	// officers come out in ascending id order
	minister, state := res.Tenures[0], res.Tenures[1]
	assert.Equal(t, "off-1", minister.OfficerID)
	assert.Equal(t, "off-2", state.OfficerID)
	assert.Equal(t, "D:ministries>home", minister.PostID)

	assert.True(t, state.Open())
	assert.Equal(t, []string{minister.TenureID}, state.ManagerIDs)
	assert.Equal(t, []string{state.TenureID}, minister.ReporteeIDs)
	require.Empty(t, res.Errors)
}

func TestPipelineRunDeterministic(t *testing.T) {
	p := testPipeline(t, pipelineConfig())
	first, err := p.Run(context.Background(), councilOrders(t))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := p.Run(context.Background(), councilOrders(t))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestPipelineRunUniqueTenureIDs(t *testing.T) {
	p := testPipeline(t, pipelineConfig())
	res, err := p.Run(context.Background(), councilOrders(t))
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, te := range res.Tenures {
		assert.False(t, seen[te.TenureID], "duplicate tenure id %s", te.TenureID)
		seen[te.TenureID] = true
	}
}

func TestPipelineRunNoOverlapPerOfficerPost(t *testing.T) {
	orders := append(councilOrders(t),
		domain.Order{
			OrderID: "ord-3", Date: day(t, "2005-01-01"), Category: "Council of Ministers",
			Details: []domain.OrderDetail{
				{DetailIdx: 0, OfficerID: "off-1", Relinquishes: []domain.Post{homePost()}},
			},
		},
		domain.Order{
			OrderID: "ord-4", Date: day(t, "2007-01-01"), Category: "Council of Ministers",
			Details: []domain.OrderDetail{
				{DetailIdx: 0, OfficerID: "off-1", Assumes: []domain.Post{homePost()}},
			},
		},
	)
	p := testPipeline(t, pipelineConfig())
	res, err := p.Run(context.Background(), orders)
	require.NoError(t, err)

	now := fixedNow(t)()
	for i, a := range res.Tenures {
		for _, b := range res.Tenures[i+1:] {
			if a.OfficerID == b.OfficerID && a.PostID == b.PostID {
				assert.Zero(t, a.OverlapDays(b, now),
					"tenures %s and %s overlap", a.TenureID, b.TenureID)
			}
		}
	}
}

func TestPipelineRunCollectsExtractionErrors(t *testing.T) {
	orders := []domain.Order{{
		OrderID: "ord-1", Date: day(t, "2000-01-10"), Category: "Independent Charge",
		Details: []domain.OrderDetail{
			{DetailIdx: 0, OfficerID: "off-1", Assumes: []domain.Post{homePost()}},
			{DetailIdx: 1, OfficerID: "off-1", Assumes: []domain.Post{financePost()}},
		},
	}}
	p := testPipeline(t, pipelineConfig())
	res, err := p.Run(context.Background(), orders)
	require.NoError(t, err)
	require.Len(t, res.Tenures, 1)

	counts := CountByKind(res.Errors)
	assert.Equal(t, 1, counts[KindDuplicateOfficer])
}

func TestPipelineRecoversAbortedOfficer(t *testing.T) {
	p := testPipeline(t, pipelineConfig())
	event := func(officerID string, verb domain.Verb, dept string) DetailInfo {
		return DetailInfo{
			OrderID: "ord-1", OrderDate: day(t, "2000-01-10"), Category: "Independent Charge",
			DetailIdx: 0, OfficerID: officerID, Verb: verb,
			PostID: "D:ministries>" + dept, Role: "Cabinet Minister",
		}
	}
	byOfficer := map[string][]DetailInfo{
		"off-1": {event("off-1", domain.VerbAssumes, "home")},
		"off-2": {event("off-2", domain.Verb("transfers"), "home")},
		"off-3": {event("off-3", domain.VerbAssumes, "finance")},
	}

	res, err := p.build(context.Background(), byOfficer)
	require.NoError(t, err)

	// the corrupt stream sinks off-2 alone
	require.Len(t, res.Tenures, 2)
	assert.Equal(t, "off-1", res.Tenures[0].OfficerID)
	assert.Equal(t, "off-3", res.Tenures[1].OfficerID)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, KindOfficerAborted, res.Errors[0].Kind)
	assert.Equal(t, "officer.off-2", res.Errors[0].Path)
}

func TestPipelineRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := testPipeline(t, pipelineConfig())
	_, err := p.Run(ctx, councilOrders(t))
	assert.ErrorIs(t, err, context.Canceled)
}
