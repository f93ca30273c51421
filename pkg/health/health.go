// Package health runs preflight checks against the external dependencies of
// a preprocessing run, so an unreachable lemmatizer or database fails the run
// before any input is read.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Status is the state of one dependency or of the whole report.
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// Check verifies one dependency.
type Check func(ctx context.Context) error

// Result is the outcome of one Check.
type Result struct {
	Status  Status
	Err     error
	Latency time.Duration
}

// Report is the outcome of a preflight run.
type Report struct {
	Status     Status
	Components map[string]Result
}

// Err returns nil when every component is up, otherwise an ErrDependency
// naming the failed components in sorted order.
func (r Report) Err() error {
	if r.Status == StatusUp {
		return nil
	}
	var failed []string
	for name, res := range r.Components {
		if res.Status != StatusUp {
			failed = append(failed, fmt.Sprintf("%s (%v)", name, res.Err))
		}
	}
	sort.Strings(failed)
	return apperrors.Newf(apperrors.ErrDependency, "preflight failed: %s", strings.Join(failed, ", "))
}

// Checker holds the named checks of one run.
type Checker struct {
	checks  map[string]Check
	timeout time.Duration
	logger  *slog.Logger
}

// NewChecker creates a Checker that gives each check up to timeout. A zero
// timeout leaves checks bounded only by the context passed to Run.
func NewChecker(timeout time.Duration) *Checker {
	return &Checker{
		checks:  make(map[string]Check),
		timeout: timeout,
		logger:  logger.WithComponent("preflight"),
	}
}

// Register adds check under name, replacing any earlier one.
func (c *Checker) Register(name string, check Check) {
	c.checks[name] = check
}

// Run executes every check concurrently. The report is down if any check
// failed.
func (c *Checker) Run(ctx context.Context) Report {
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]Result, len(names))
	var g errgroup.Group
	for i, name := range names {
		i := i
		check := c.checks[name]
		g.Go(func() error {
			results[i] = c.runOne(ctx, check)
			return nil
		})
	}
	g.Wait()

	report := Report{Status: StatusUp, Components: make(map[string]Result, len(names))}
	for i, name := range names {
		res := results[i]
		report.Components[name] = res
		if res.Status != StatusUp {
			report.Status = StatusDown
			c.logger.Warn("dependency down", "name", name, "error", res.Err, "latency", res.Latency)
			continue
		}
		c.logger.Debug("dependency up", "name", name, "latency", res.Latency)
	}
	c.logger.Info("preflight complete", "status", report.Status, "components", len(names))
	return report
}

func (c *Checker) runOne(ctx context.Context, check Check) Result {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	start := time.Now()
	err := check(ctx)
	res := Result{Status: StatusUp, Latency: time.Since(start)}
	if err != nil {
		res.Status = StatusDown
		res.Err = err
	}
	return res
}
