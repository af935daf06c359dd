package backend

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	qaerrors "github.com/jrsteele09/qa-console/internal/errors"
	"github.com/jrsteele09/qa-console/tracker"
)

// TrackerData stores the projects and defects served by the list endpoints
type TrackerData interface {
	UpsertProject(p tracker.Project) tracker.Project
	UpsertDefect(d tracker.Defect) tracker.Defect
	Projects(q tracker.ListQuery) tracker.Page[tracker.Project]
	Defects(q tracker.ListQuery) tracker.Page[tracker.Defect]
	Defect(id string) (tracker.Defect, error)
}

// Catalog holds the backend's projects and defects in memory
type Catalog struct {
	projects map[string]tracker.Project
	defects  map[string]tracker.Defect
	lock     sync.RWMutex
}

func NewCatalog() *Catalog {
	return &Catalog{
		projects: make(map[string]tracker.Project),
		defects:  make(map[string]tracker.Defect),
	}
}

func (c *Catalog) UpsertProject(p tracker.Project) tracker.Project {
	c.lock.Lock()
	defer c.lock.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	c.projects[p.ID] = p
	return p
}

func (c *Catalog) UpsertDefect(d tracker.Defect) tracker.Defect {
	c.lock.Lock()
	defer c.lock.Unlock()

	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	c.defects[d.ID] = d
	return d
}

func (c *Catalog) Defect(id string) (tracker.Defect, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	d, ok := c.defects[id]
	if !ok {
		return tracker.Defect{}, qaerrors.Wrapf(qaerrors.ErrNotFound, "[Catalog Defect] %s", id)
	}
	return d, nil
}

// Projects lists projects matching q, newest first
func (c *Catalog) Projects(q tracker.ListQuery) tracker.Page[tracker.Project] {
	c.lock.RLock()
	defer c.lock.RUnlock()

	matched := make([]tracker.Project, 0, len(c.projects))
	for _, p := range c.projects {
		if s := q.Filter("status"); s != "" && p.Status != s {
			continue
		}
		if !tracker.MatchKeyword(q.Keyword, p.ID, p.Name, p.ManagerID) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return tracker.Paginate(matched, q)
}

// Defects lists defects matching q, newest first
func (c *Catalog) Defects(q tracker.ListQuery) tracker.Page[tracker.Defect] {
	c.lock.RLock()
	defer c.lock.RUnlock()

	matched := make([]tracker.Defect, 0, len(c.defects))
	for _, d := range c.defects {
		if v := q.Filter("projectId"); v != "" && d.ProjectID != v {
			continue
		}
		if v := q.Filter("status"); v != "" && d.Status != v {
			continue
		}
		if v := q.Filter("severity"); v != "" && d.Severity != v {
			continue
		}
		if !tracker.MatchKeyword(q.Keyword, d.ID, d.Title, d.Description, d.ReporterID, d.AssigneeID) {
			continue
		}
		matched = append(matched, d)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return tracker.Paginate(matched, q)
}
