// Package memory implements every store in process. It backs tests, the CLI
// when no database is configured, and fixture-driven runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/spigell/helper-matcher/internal/decisions"
	"github.com/spigell/helper-matcher/internal/personalization"
	"github.com/spigell/helper-matcher/internal/staffing"
)

var (
	_ decisions.Log         = (*Decisions)(nil)
	_ personalization.Store = (*Models)(nil)
)

// Candidates keeps candidates in insertion order.
type Candidates struct {
	mu    sync.RWMutex
	order []string
	items map[string]*staffing.Candidate
}

func NewCandidates(items ...*staffing.Candidate) *Candidates {
	c := &Candidates{items: map[string]*staffing.Candidate{}}
	for _, item := range items {
		c.Put(item)
	}
	return c
}

// Put inserts or replaces a candidate. A replaced candidate keeps its position.
func (c *Candidates) Put(candidate *staffing.Candidate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[candidate.ID]; !ok {
		c.order = append(c.order, candidate.ID)
	}
	c.items[candidate.ID] = candidate
}

func (c *Candidates) ListByType(_ context.Context, helperType string, limit int) ([]*staffing.Candidate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*staffing.Candidate
	for _, id := range c.order {
		candidate := c.items[id]
		if candidate.HelperType != helperType {
			continue
		}
		out = append(out, candidate)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (c *Candidates) GetByID(_ context.Context, id string) (*staffing.Candidate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	candidate, ok := c.items[id]
	if !ok {
		return nil, staffing.ErrNotFound
	}
	return candidate, nil
}

func (c *Candidates) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

type Jobs struct {
	mu    sync.RWMutex
	items map[string]*staffing.Job
}

func NewJobs(items ...*staffing.Job) *Jobs {
	j := &Jobs{items: map[string]*staffing.Job{}}
	for _, item := range items {
		j.Put(item)
	}
	return j
}

func (j *Jobs) Put(job *staffing.Job) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.items[job.ID] = job
}

func (j *Jobs) GetByID(_ context.Context, id string) (*staffing.Job, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	job, ok := j.items[id]
	if !ok {
		return nil, staffing.ErrNotFound
	}
	return job, nil
}

func (j *Jobs) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.items)
}

// Decisions is an append-only log. Records go in and come out as copies.
type Decisions struct {
	mu      sync.RWMutex
	records []decisions.Record
}

func NewDecisions() *Decisions {
	return &Decisions{}
}

func (d *Decisions) Append(_ context.Context, record decisions.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, record.Clone())
	return nil
}

// QueryByEmployer returns the employer's records in append order. With a
// positive limit only the most recent limit records are returned.
func (d *Decisions) QueryByEmployer(_ context.Context, employerID string, limit int) ([]decisions.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []decisions.Record
	for _, r := range d.records {
		if r.EmployerID == employerID {
			out = append(out, r.Clone())
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (d *Decisions) Employers(context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := map[string]struct{}{}
	var out []string
	for _, r := range d.records {
		if _, ok := seen[r.EmployerID]; ok {
			continue
		}
		seen[r.EmployerID] = struct{}{}
		out = append(out, r.EmployerID)
	}
	sort.Strings(out)
	return out, nil
}

// Models keeps every saved version; Load serves the newest.
type Models struct {
	mu       sync.RWMutex
	versions map[string][]*personalization.Model
}

func NewModels() *Models {
	return &Models{versions: map[string][]*personalization.Model{}}
}

func (m *Models) Load(_ context.Context, employerID string) (*personalization.Model, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := m.versions[employerID]
	if len(versions) == 0 {
		return nil, nil
	}
	current := *versions[len(versions)-1]
	return &current, nil
}

// Save stores model as the next version and makes it current.
func (m *Models) Save(_ context.Context, model *personalization.Model) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	versions := m.versions[model.EmployerID]
	model.Version = int64(len(versions)) + 1
	stored := *model
	m.versions[model.EmployerID] = append(versions, &stored)
	return nil
}

// Versions returns how many models were saved for the employer.
func (m *Models) Versions(employerID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.versions[employerID])
}
