package tenure

import (
	"context"
	"runtime"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"tenureline/internal/config"
	"tenureline/internal/domain"
)

// Pipeline runs the full reconstruction: extract events from orders, replay
// each officer's stream, then link managers. Officers are independent after
// extraction, so replay fans out across a bounded worker pool.
type Pipeline struct {
	Config     *config.Config
	Ministries []domain.Ministry
	Now        func() time.Time
	Workers    int
	Log        *logrus.Entry
}

// Result is the output of one run.
type Result struct {
	Tenures []domain.Tenure
	Errors  []DataError
}

func New(cfg *config.Config, log *logrus.Entry) (*Pipeline, error) {
	now := time.Now
	ministries, err := cfg.ParseMinistries(now())
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Config:     cfg,
		Ministries: ministries,
		Now:        now,
		Workers:    runtime.NumCPU(),
		Log:        log,
	}, nil
}

// Run reconstructs tenures from the given orders. The order slice is not
// mutated. Output is deterministic: tenures are grouped by officer id in
// ascending order, and within an officer follow replay close order.
func (p *Pipeline) Run(ctx context.Context, orders []domain.Order) (Result, error) {
	x := NewExtractor(p.Config, p.Log)
	x.Now = p.Now

	var extractErrs []DataError
	byOfficer := map[string][]DetailInfo{}
	for _, o := range orders {
		infos, errs := x.OrderInfos(o)
		extractErrs = append(extractErrs, errs...)
		for _, info := range infos {
			byOfficer[info.OfficerID] = append(byOfficer[info.OfficerID], info)
		}
	}

	result, err := p.build(ctx, byOfficer)
	if err != nil {
		return Result{}, err
	}
	result.Errors = append(extractErrs, result.Errors...)

	p.log().WithFields(logrus.Fields{
		"orders":   len(orders),
		"officers": len(byOfficer),
		"tenures":  len(result.Tenures),
		"errors":   len(result.Errors),
	}).Info("tenure build complete")
	return result, nil
}

// build replays every officer's event stream across the worker pool, then
// links managers. A panic inside one officer's replay aborts that officer
// only and is reported as an OfficerAbortedError.
func (p *Pipeline) build(ctx context.Context, byOfficer map[string][]DetailInfo) (Result, error) {
	officerIDs := make([]string, 0, len(byOfficer))
	for id := range byOfficer {
		officerIDs = append(officerIDs, id)
	}
	sort.Strings(officerIDs)

	b := NewBuilder(p.Config, p.Ministries, p.Log)
	b.Now = p.Now

	type officerResult struct {
		tenures []domain.Tenure
		errs    []DataError
	}
	results := make([]officerResult, len(officerIDs))

	g, ctx := errgroup.WithContext(ctx)
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, id := range officerIDs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// each goroutine writes only its own slot
			defer func() {
				if r := recover(); r != nil {
					p.log().WithFields(logrus.Fields{
						"officer_id": id,
						"cause":      r,
					}).Error("officer replay aborted")
					results[i] = officerResult{errs: []DataError{officerAbortedError(id, r)}}
				}
			}()
			tenures, errs := b.BuildOfficer(id, byOfficer[id])
			results[i] = officerResult{tenures: tenures, errs: errs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var result Result
	for _, r := range results {
		result.Tenures = append(result.Tenures, r.tenures...)
		result.Errors = append(result.Errors, r.errs...)
	}

	result.Errors = append(result.Errors,
		LinkManagers(result.Tenures, p.Config.Manager, p.Now())...)
	return result, nil
}

func (p *Pipeline) log() *logrus.Entry {
	if p.Log != nil {
		return p.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
