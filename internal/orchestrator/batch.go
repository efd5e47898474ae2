package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchResult pairs a case id with its run outcome or error.
type BatchResult struct {
	CaseID  string      `json:"caseId"`
	Outcome *RunOutcome `json:"outcome,omitempty"`
	Err     error       `json:"-"`
}

// RunBatch runs independent cases concurrently, at most BatchParallelism at a
// time. Results keep the order of caseIDs. A failed case does not stop the
// others; the returned error is the context's.
func (d *Driver) RunBatch(ctx context.Context, caseIDs []string) ([]BatchResult, error) {
	results := make([]BatchResult, len(caseIDs))

	var g errgroup.Group
	g.SetLimit(d.opts.BatchParallelism)
	for i, id := range caseIDs {
		i, id := i, id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = BatchResult{CaseID: id, Err: err}
				return nil
			}
			out, err := d.Run(ctx, id)
			results[i] = BatchResult{CaseID: id, Outcome: out, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	d.log.Info("batch finished", map[string]interface{}{"cases": len(caseIDs)})
	return results, ctx.Err()
}
