package executor

import (
	"context"

	"github.com/getpup/pupsourcing-migrator/adapter"
	"github.com/getpup/pupsourcing-migrator/plan"
)

// Runner executes a plan against one target.
// This interface allows for mock implementations in tests.
type Runner interface {
	// Run executes p against a in plan order and reports every attempted step.
	// database names the target for logging and metrics.
	Run(ctx context.Context, database string, p plan.Plan, a adapter.Adapter) *Report
}
