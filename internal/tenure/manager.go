package tenure

import (
	"sort"
	"time"

	"tenureline/internal/config"
	"tenureline/internal/domain"
)

// LinkManagers fills in ManagerIDs and ReporteeIDs across the full tenure
// list. A tenure held under a subordinate role reports to every tenure on the
// same post, overlapping in time, whose role is not itself subordinate.
// Runs single-threaded over the whole list; callers must not share tenures
// with concurrent writers.
func LinkManagers(tenures []domain.Tenure, cfg config.ManagerConfig, now time.Time) []DataError {
	byPost := map[string][]int{}
	for i, t := range tenures {
		byPost[t.PostID] = append(byPost[t.PostID], i)
	}

	byID := map[string]int{}
	for i, t := range tenures {
		byID[t.TenureID] = i
	}

	var errs []DataError
	for i := range tenures {
		t := &tenures[i]
		if !cfg.IsSubordinate(t.Role) {
			continue
		}

		var managers, leafs []domain.Tenure
		for _, j := range byPost[t.PostID] {
			if j == i {
				continue
			}
			o := tenures[j]
			if !t.Overlaps(o, now) {
				continue
			}
			if cfg.IsSubordinate(o.Role) {
				leafs = append(leafs, o)
			} else {
				managers = append(managers, o)
			}
		}

		if len(leafs) > 0 {
			errs = append(errs, managerWithLeafRoleError(*t, leafs))
		}
		if len(managers) == 0 {
			errs = append(errs, noManagerError(*t))
			continue
		}

		sort.SliceStable(managers, func(a, b int) bool {
			if !managers[a].StartDate.Equal(managers[b].StartDate) {
				return managers[a].StartDate.Before(managers[b].StartDate)
			}
			return managers[a].TenureID < managers[b].TenureID
		})
		for _, m := range managers {
			t.ManagerIDs = append(t.ManagerIDs, m.TenureID)
			mgr := &tenures[byID[m.TenureID]]
			mgr.ReporteeIDs = append(mgr.ReporteeIDs, t.TenureID)
		}
	}
	return errs
}
