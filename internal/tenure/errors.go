package tenure

import (
	"fmt"
	"strings"

	"tenureline/internal/domain"
)

// DataError is a recoverable data problem found while building tenures. The
// run keeps going; errors are collected and reported alongside the output.
// Path locates the offending order detail ("order.details{idx}") or tenure
// ("te.{tenure_id}").
type DataError struct {
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e DataError) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.Path, e.Message)
}

const (
	KindMissingAssume       = "TenureMissingAssumeError"
	KindMultipleRoles       = "TenureMultipleRolesError"
	KindLongTenure          = "TenureLongError"
	KindGap                 = "TenureGapError"
	KindManagerWithLeafRole = "TenureManagerWithLeafRole"
	KindNoManager           = "TenureWithNoManager"
	KindDuplicateOfficer    = "OrderDuplicateOfficerError"
	KindOfficerAborted      = "OfficerAbortedError"
)

func detailPath(detailIdx int) string {
	return fmt.Sprintf("order.details%d", detailIdx)
}

func tenurePath(t domain.Tenure) string {
	return fmt.Sprintf("te.%s", t.TenureID)
}

func missingAssumeError(info DetailInfo) DataError {
	return DataError{
		Kind: KindMissingAssume,
		Path: detailPath(info.DetailIdx),
		Message: fmt.Sprintf("missing assume for %s: %s[%d] post: %s officer: %s",
			info.Verb, info.OrderID, info.DetailIdx, info.PostID, info.OfficerID),
	}
}

func multipleRolesError(open DetailInfo, events []DetailInfo) DataError {
	parts := make([]string, 0, len(events))
	for _, e := range events {
		parts = append(parts, fmt.Sprintf("%s:%d-%s", e.OrderID, e.DetailIdx, e.Role))
	}
	return DataError{
		Kind:    KindMultipleRoles,
		Path:    detailPath(open.DetailIdx),
		Message: fmt.Sprintf("multiple roles officer: %s %s", open.OfficerID, strings.Join(parts, "|")),
	}
}

func longTenureError(t domain.Tenure, days int) DataError {
	return DataError{
		Kind:    KindLongTenure,
		Path:    tenurePath(t),
		Message: fmt.Sprintf("long tenure %s post: %s duration_days: %d", t.String(), t.PostID, days),
	}
}

func gapError(prev, next domain.Tenure, days int) DataError {
	return DataError{
		Kind: KindGap,
		Path: tenurePath(next),
		Message: fmt.Sprintf("officer %s gap of %d days between %s and %s",
			next.OfficerID, days, prev.TenureID, next.TenureID),
	}
}

func managerWithLeafRoleError(t domain.Tenure, leafs []domain.Tenure) DataError {
	ids := make([]string, 0, len(leafs))
	for _, l := range leafs {
		ids = append(ids, l.OfficerID)
	}
	return DataError{
		Kind:    KindManagerWithLeafRole,
		Path:    tenurePath(t),
		Message: fmt.Sprintf("t_id: %s mgrs_id: %s post_id: %s", t.OfficerID, strings.Join(ids, ", "), t.PostID),
	}
}

func noManagerError(t domain.Tenure) DataError {
	return DataError{
		Kind:    KindNoManager,
		Path:    tenurePath(t),
		Message: fmt.Sprintf("t_id: %s post_id: %s", t.OfficerID, t.PostID),
	}
}

func duplicateOfficerError(orderID string, detailIdx int, officerID string) DataError {
	return DataError{
		Kind:    KindDuplicateOfficer,
		Path:    detailPath(detailIdx),
		Message: fmt.Sprintf("officer %s appears more than once in order %s", officerID, orderID),
	}
}

func officerAbortedError(officerID string, cause any) DataError {
	return DataError{
		Kind:    KindOfficerAborted,
		Path:    fmt.Sprintf("officer.%s", officerID),
		Message: fmt.Sprintf("officer stream aborted: %v", cause),
	}
}

// CountByKind tallies errors per kind, for run summaries.
func CountByKind(errs []DataError) map[string]int {
	counts := map[string]int{}
	for _, e := range errs {
		counts[e.Kind]++
	}
	return counts
}
