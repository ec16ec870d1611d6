package tenure

import (
	"time"

	"github.com/sirupsen/logrus"

	"tenureline/internal/config"
	"tenureline/internal/domain"
)

// DetailInfo is one post-assignment event flattened out of an order detail.
// It is the unit the builder replays.
type DetailInfo struct {
	OrderID   string
	OrderDate time.Time
	Category  string
	DetailIdx int
	OfficerID string
	Verb      domain.Verb
	PostID    string
	Role      string
}

// Extractor flattens orders into DetailInfos, screening out rows the builder
// cannot use: implausible order dates, details without an officer, and
// repeat appearances of an officer within one order.
type Extractor struct {
	Builder  config.BuilderConfig
	IDFields []string
	Now      func() time.Time
	Log      *logrus.Entry
}

func NewExtractor(cfg *config.Config, log *logrus.Entry) *Extractor {
	return &Extractor{
		Builder:  cfg.Builder,
		IDFields: cfg.PostID.Fields,
		Now:      time.Now,
		Log:      log,
	}
}

func (x *Extractor) validDate(d time.Time) bool {
	if d.IsZero() {
		return false
	}
	maxYear := x.Now().Year() + x.Builder.MaxYearOffset
	return d.Year() >= x.Builder.MinYear && d.Year() <= maxYear
}

// OrderInfos extracts the events of a single order. An order whose date fails
// the plausibility window is dropped whole; a detail that names an officer
// already seen in the same order is dropped with an error.
func (x *Extractor) OrderInfos(o domain.Order) ([]DetailInfo, []DataError) {
	if !x.validDate(o.Date) {
		x.log().WithFields(logrus.Fields{
			"order_id":   o.OrderID,
			"order_date": domain.FormatDate(o.Date),
		}).Warn("skipping order, date outside plausible window")
		return nil, nil
	}

	var infos []DetailInfo
	var errs []DataError
	seen := map[string]bool{}
	for _, d := range o.Details {
		if d.OfficerID == "" {
			continue
		}
		if seen[d.OfficerID] {
			errs = append(errs, duplicateOfficerError(o.OrderID, d.DetailIdx, d.OfficerID))
			continue
		}
		seen[d.OfficerID] = true
		for _, vp := range d.Posts() {
			infos = append(infos, x.detailInfo(o, d, vp))
		}
	}
	return infos, errs
}

func (x *Extractor) detailInfo(o domain.Order, d domain.OrderDetail, vp domain.VerbPost) DetailInfo {
	postID := vp.Post.PostID
	if postID == "" {
		postID = vp.Post.Identity(x.IDFields)
	}
	role := vp.Post.Role()
	if role == "" {
		role = x.Builder.DefaultRole
	}
	return DetailInfo{
		OrderID:   o.OrderID,
		OrderDate: o.Date,
		Category:  o.Category,
		DetailIdx: d.DetailIdx,
		OfficerID: d.OfficerID,
		Verb:      vp.Verb,
		PostID:    postID,
		Role:      role,
	}
}

func (x *Extractor) log() *logrus.Entry {
	if x.Log != nil {
		return x.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
