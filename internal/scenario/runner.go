package scenario

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/johnjkle/traderev/internal/config"
	"github.com/johnjkle/traderev/internal/reporting"
	"github.com/johnjkle/traderev/internal/session"
)

// Runner executes scenarios one after another, each in its own session.
type Runner struct {
	cfg      config.Interface
	sessions *session.Manager
	logger   *zap.Logger
	now      func() time.Time
}

func NewRunner(cfg config.Interface, sessions *session.Manager, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		sessions: sessions,
		logger:   logger.Named("runner"),
		now:      time.Now,
	}
}

// Run executes the named scenarios, or all of them when names is empty. A failing
// scenario does not stop the run; a canceled ctx does, and its error is returned
// with the partial report.
func (r *Runner) Run(ctx context.Context, names ...string) (*reporting.RunReport, error) {
	selected, err := Select(names...)
	if err != nil {
		return nil, err
	}

	b := r.cfg.Browser()
	report := reporting.NewRunReport(b.Backend+"/"+b.Name, r.now())
	defer func() { report.Finished = r.now() }()

	for _, sc := range selected {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Results = append(report.Results, r.runOne(ctx, sc))
	}
	return report, ctx.Err()
}

func (r *Runner) runOne(ctx context.Context, sc Scenario) reporting.ScenarioResult {
	log := r.logger.With(zap.String("scenario", sc.Name))
	log.Info("Running scenario.")
	start := r.now()

	var (
		out  Result
		sess *session.Session
	)
	err := r.sessions.Run(ctx, func(ctx context.Context, s *session.Session) error {
		sess = s
		var err error
		out, err = sc.Run(ctx, Env{
			Session:  s,
			Sites:    r.cfg.Sites(),
			Timeouts: r.cfg.Timeouts(),
			Filter:   r.cfg.Filter(),
			Logger:   log,
		})
		return err
	})

	res := reporting.ScenarioResult{
		Name:         sc.Name,
		Status:       Classify(err),
		Duration:     r.now().Sub(start),
		Message:      out.Message,
		PostingCount: out.PostingCount,
	}
	if sess != nil {
		res.Screenshot = sess.Screenshot()
	}
	if err != nil {
		res.Message = err.Error()
		log.Error("Scenario did not pass.", zap.String("status", string(res.Status)), zap.Error(err))
	} else {
		log.Info("Scenario passed.", zap.Duration("took", res.Duration))
	}
	return res
}

// Classify maps a scenario error to its report status.
func Classify(err error) reporting.Status {
	var ae *AssertionError
	switch {
	case err == nil:
		return reporting.StatusPass
	case errors.As(err, &ae):
		return reporting.StatusFail
	default:
		return reporting.StatusError
	}
}
