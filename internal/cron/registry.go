package cron

import "context"

// Job is one unit of scheduled maintenance work. Implementations must
// tolerate repeated runs; the retention jobs all delete against explicit
// cutoffs, so re-running them is harmless.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs a worker executes each cycle, in registration
// order. Nil jobs are silently dropped so callers can register
// conditionally built jobs without guarding.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry from the provided jobs.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register appends a job to the run order.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.jobs = append(r.jobs, job)
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
