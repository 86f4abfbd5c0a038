// Package health aggregates component checks for the /health endpoint.
package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/reposearch/internal/db"
)

// Status is the overall verdict.
type Status string

const (
	Healthy Status = "ok"
	// Degraded means a provider is down; search still answers through its fallbacks.
	Degraded Status = "degraded"
	// Unhealthy means the database is unreachable.
	Unhealthy Status = "error"
)

// CheckResult is one component's outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Report is what /health returns.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Checker probes an upstream provider (embedding, LLM).
type Checker interface {
	HealthCheck(ctx context.Context) error
}

const (
	componentDatabase = "database"
	checkTimeout      = 5 * time.Second
)

type probe struct {
	name  string
	check func(ctx context.Context) error
}

// Service runs the checks.
type Service struct {
	probes []probe
}

// New creates a Service. Nil providers are not checked.
func New(database db.Pinger, embedding, llm Checker) *Service {
	probes := []probe{{componentDatabase, database.Ping}}
	if embedding != nil {
		probes = append(probes, probe{"embedding", embedding.HealthCheck})
	}
	if llm != nil {
		probes = append(probes, probe{"llm", llm.HealthCheck})
	}
	return &Service{probes: probes}
}

// Check runs every probe concurrently, each bounded by its own timeout.
func (s *Service) Check(ctx context.Context) Report {
	results := make([]CheckResult, len(s.probes))

	var g errgroup.Group
	for i, p := range s.probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			results[i] = CheckOK
			if p.check(pctx) != nil {
				results[i] = CheckError
			}
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Status: Healthy, Checks: make(map[string]CheckResult, len(s.probes))}
	for i, p := range s.probes {
		report.Checks[p.name] = results[i]
		switch {
		case results[i] == CheckOK:
		case p.name == componentDatabase:
			report.Status = Unhealthy
		case report.Status == Healthy:
			report.Status = Degraded
		}
	}
	return report
}
