package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrKekPlag/serv2/internal/domain"
	"github.com/MrKekPlag/serv2/internal/events"
	"github.com/MrKekPlag/serv2/internal/store"
)

// Engine implements the project operations on top of the category stores.
// Every mutation is a full load -> modify -> save cycle against one
// collection; there is no locking, so concurrent writers to the same
// category last-write-win.
type Engine struct {
	Store    store.ProjectStore
	Statuses *store.StatusStore
	Events   *events.Writer
}

func New(ps store.ProjectStore, ss *store.StatusStore, ew *events.Writer) Engine {
	return Engine{
		Store:    ps,
		Statuses: ss,
		Events:   ew,
	}
}

// resolveCategory applies the shared tag fallback. Operations that insist on
// an explicit tag set required; the default fallback stays for the rest.
func (e Engine) resolveCategory(tag string, required bool) (store.Category, error) {
	if required && strings.TrimSpace(tag) == "" {
		return "", ValidationError{Field: "type"}
	}
	return store.Resolve(tag), nil
}

// ProjectCreateOptions are parameters for creating a project.
type ProjectCreateOptions struct {
	Category     string
	ID           string
	Name         string
	Employees    []string
	Goals        []domain.Goal
	Dependencies []string
	StartDate    string
	EndDate      string
	Deadline     string
	ActorID      string
}

// CreateProject appends a new record to the resolved collection and then
// propagates declared dependencies into the other collections. A propagation
// failure is returned to the caller but never rolls the creation back.
func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	cat := store.Resolve(opts.Category)
	p := domain.Project{
		Name:           opts.Name,
		ID:             opts.ID,
		Employees:      opts.Employees,
		Goals:          make([]domain.Goal, 0, len(opts.Goals)),
		Dependencies:   opts.Dependencies,
		StartDate:      opts.StartDate,
		EndDate:        opts.EndDate,
		Rating:         0,
		CustomerRating: domain.CustomerRatingNone,
		Deadline:       opts.Deadline,
	}
	if p.Employees == nil {
		p.Employees = []string{}
	}
	if p.Dependencies == nil {
		p.Dependencies = []string{}
	}
	for _, g := range opts.Goals {
		if g.Deadline == "" {
			g.Deadline = opts.Deadline
		}
		p.Goals = append(p.Goals, g)
	}

	projects, err := e.Store.Load(ctx, cat)
	if err != nil {
		return domain.Project{}, err
	}
	projects = append(projects, p)
	if err := e.Store.Save(ctx, cat, projects); err != nil {
		return domain.Project{}, err
	}
	if err := e.appendEvent(ctx, "project.create", cat, p.ID, opts.ActorID, events.EventPayload{"name": p.Name}); err != nil {
		return domain.Project{}, err
	}
	if len(p.Dependencies) > 0 {
		if err := e.propagateDependencies(ctx, p.ID, p.Dependencies); err != nil {
			return p, fmt.Errorf("propagate dependencies: %w", err)
		}
	}
	return p, nil
}

// propagateDependencies records a back-reference to projectID on every
// dependency, wherever it lives. Each collection is saved as soon as a
// dependency is found in it; a load or save failure aborts the remaining
// steps without undoing writes already applied.
func (e Engine) propagateDependencies(ctx context.Context, projectID string, dependencyIDs []string) error {
	for _, depID := range dependencyIDs {
		for _, cat := range store.AllCategories {
			projects, err := e.Store.Load(ctx, cat)
			if err != nil {
				return err
			}
			found := false
			for i := range projects {
				if projects[i].ID != depID {
					continue
				}
				if !contains(projects[i].Dependencies, projectID) {
					projects[i].Dependencies = append(projects[i].Dependencies, projectID)
				}
				found = true
				break
			}
			if !found {
				continue
			}
			if err := e.Store.Save(ctx, cat, projects); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteProject removes the first matching record. Unlike the other
// operations the category tag is mandatory here.
func (e Engine) DeleteProject(ctx context.Context, category, id, actorID string) error {
	cat, err := e.resolveCategory(category, true)
	if err != nil {
		return err
	}
	projects, err := e.Store.Load(ctx, cat)
	if err != nil {
		return err
	}
	idx := -1
	for i := range projects {
		if projects[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("project %s: %w", id, store.ErrNotFound)
	}
	projects = append(projects[:idx], projects[idx+1:]...)
	if err := e.Store.Save(ctx, cat, projects); err != nil {
		return err
	}
	return e.appendEvent(ctx, "project.delete", cat, id, actorID, nil)
}

// ListProjects returns one category's collection.
func (e Engine) ListProjects(ctx context.Context, category string) ([]domain.Project, error) {
	return e.Store.Load(ctx, store.Resolve(category))
}

// ListAllProjects concatenates the three collections in fixed order.
func (e Engine) ListAllProjects(ctx context.Context) ([]domain.Project, error) {
	all := []domain.Project{}
	for _, cat := range store.AllCategories {
		projects, err := e.Store.Load(ctx, cat)
		if err != nil {
			return nil, err
		}
		all = append(all, projects...)
	}
	return all, nil
}

// UpdateGoalStatus sets the status of the first goal with a matching name.
// A project without goals, or without a matching goal, is still a success.
func (e Engine) UpdateGoalStatus(ctx context.Context, category, id, goalName, status, actorID string) error {
	if status == "" {
		return ValidationError{Field: "status"}
	}
	cat, err := e.resolveCategory(category, true)
	if err != nil {
		return err
	}
	return e.mutateProject(ctx, cat, id, "project.goal_status", actorID, events.EventPayload{"goal": goalName, "status": status}, func(p *domain.Project) error {
		for i := range p.Goals {
			if p.Goals[i].Name == goalName {
				p.Goals[i].Status = status
				break
			}
		}
		return nil
	})
}

// UpdateRating sets the manager rating or the customer rating. Unknown
// rating types fall through to a no-op write.
func (e Engine) UpdateRating(ctx context.Context, category, id, ratingType string, rating any, actorID string) error {
	cat, err := e.resolveCategory(category, true)
	if err != nil {
		return err
	}
	return e.mutateProject(ctx, cat, id, "project.rating", actorID, events.EventPayload{"ratingType": ratingType}, func(p *domain.Project) error {
		switch ratingType {
		case "manager":
			f, ok := toFloat64(rating)
			if !ok {
				return ValidationError{Field: "rating", Reason: "must be a number"}
			}
			p.Rating = f
		case "customer":
			p.CustomerRating = rating
		}
		return nil
	})
}

// UpdateCompletionDate records the final completion date. The category tag
// is optional here and falls back to the default collection.
func (e Engine) UpdateCompletionDate(ctx context.Context, category, id, date, actorID string) error {
	cat := store.Resolve(category)
	return e.mutateProject(ctx, cat, id, "project.completion_date", actorID, events.EventPayload{"date": date}, func(p *domain.Project) error {
		p.FinalCompletionDate = date
		return nil
	})
}

// SelectGoal marks the named goal selected and deselects every other goal,
// reassigning the whole slice so at most one stays selected.
func (e Engine) SelectGoal(ctx context.Context, category, id, goalName, actorID string) error {
	cat, err := e.resolveCategory(category, true)
	if err != nil {
		return err
	}
	return e.mutateProject(ctx, cat, id, "project.goal_select", actorID, events.EventPayload{"goal": goalName}, func(p *domain.Project) error {
		for i := range p.Goals {
			p.Goals[i].Selected = p.Goals[i].Name == goalName
		}
		return nil
	})
}

// TransferEmployee replaces the whole employee list with the new assignee.
// Employee operations always target the default collection.
func (e Engine) TransferEmployee(ctx context.Context, id, newEmployee, actorID string) error {
	return e.mutateProject(ctx, store.CategoryDefault, id, "project.transfer", actorID, events.EventPayload{"employee": newEmployee}, func(p *domain.Project) error {
		p.Employees = []string{newEmployee}
		return nil
	})
}

// AddEmployee appends the employee unless already assigned.
func (e Engine) AddEmployee(ctx context.Context, id, newEmployee, actorID string) error {
	return e.mutateProject(ctx, store.CategoryDefault, id, "project.employee_add", actorID, events.EventPayload{"employee": newEmployee}, func(p *domain.Project) error {
		if contains(p.Employees, newEmployee) {
			return ConflictError{Message: "employee already assigned to the project"}
		}
		p.Employees = append(p.Employees, newEmployee)
		return nil
	})
}

// RemoveEmployee filters out every occurrence of the employee.
func (e Engine) RemoveEmployee(ctx context.Context, id, employee, actorID string) error {
	return e.mutateProject(ctx, store.CategoryDefault, id, "project.employee_remove", actorID, events.EventPayload{"employee": employee}, func(p *domain.Project) error {
		kept := p.Employees[:0]
		for _, emp := range p.Employees {
			if emp != employee {
				kept = append(kept, emp)
			}
		}
		p.Employees = kept
		return nil
	})
}

// EnsureCategoryFile idempotently creates a category's backing collection.
func (e Engine) EnsureCategoryFile(category string) error {
	return e.Store.Ensure(store.Resolve(category))
}

// ListStatuses returns the status catalog.
func (e Engine) ListStatuses(ctx context.Context) ([]domain.Status, error) {
	return e.Statuses.Load(ctx)
}

// ReplaceStatuses swaps the whole status catalog.
func (e Engine) ReplaceStatuses(ctx context.Context, statuses []domain.Status, actorID string) error {
	if err := e.Statuses.Replace(ctx, statuses); err != nil {
		return err
	}
	return e.appendEvent(ctx, "statuses.replace", "", "", actorID, events.EventPayload{"count": len(statuses)})
}

// mutateProject runs one load -> modify -> save cycle for the project with
// the given id, failing with NotFound when no record matches. A callback
// error rejects the mutation: nothing is saved and no event is recorded.
func (e Engine) mutateProject(ctx context.Context, cat store.Category, id, evtType, actorID string, payload events.EventPayload, fn func(p *domain.Project) error) error {
	projects, err := e.Store.Load(ctx, cat)
	if err != nil {
		return err
	}
	idx := -1
	for i := range projects {
		if projects[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("project %s: %w", id, store.ErrNotFound)
	}
	if err := fn(&projects[idx]); err != nil {
		return err
	}
	if err := e.Store.Save(ctx, cat, projects); err != nil {
		return err
	}
	return e.appendEvent(ctx, evtType, cat, id, actorID, payload)
}

func (e Engine) appendEvent(ctx context.Context, evtType string, cat store.Category, entityID, actorID string, payload events.EventPayload) error {
	if e.Events == nil {
		return nil
	}
	return e.Events.Append(ctx, evtType, string(cat), entityID, actorID, payload)
}

func contains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
