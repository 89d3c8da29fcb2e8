package ledger

import (
	"fmt"

	"github.com/flemzord/slackapprove/internal/core"
	"github.com/flemzord/slackapprove/internal/cron"
	"github.com/flemzord/slackapprove/internal/telemetry"
)

// Provide publishes s, instrumented, as the application's decision ledger.
// When pruneSchedule is non-empty and a scheduler is registered, a prune
// job is added to it. Only one ledger may be provided per application.
func Provide(ctx *core.AppContext, s Store, pruneSchedule string) error {
	if existing, ok := core.ServiceAs[Store](ctx, ServiceName); ok {
		return fmt.Errorf("ledger: %s already provided, cannot add %s", existing.Backend(), s.Backend())
	}

	metrics, _ := core.ServiceAs[*telemetry.Metrics](ctx, telemetry.ServiceName)
	ctx.RegisterService(ServiceName, Instrument(s, metrics, nil, ctx.Logger))

	if pruneSchedule == "" {
		return nil
	}
	sched, ok := core.ServiceAs[*cron.Scheduler](ctx, cron.ServiceName)
	if !ok {
		ctx.Logger.Warn("ledger: no scheduler, expired decisions will not be pruned", "backend", s.Backend())
		return nil
	}
	return sched.RegisterJob(&cron.PruneJob{
		Store:        s,
		Logger:       ctx.Logger,
		Backend:      s.Backend(),
		ScheduleExpr: pruneSchedule,
	})
}
