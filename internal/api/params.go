package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tgienger/taskboard/internal/db"
	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/perrors"
)

func pathID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[key], 10, 64)
	if err != nil {
		return 0, perrors.NewErrValidation(key, key+" must be a number")
	}
	return id, nil
}

// queryParser collects the first error while reading optional query values
type queryParser struct {
	q   url.Values
	err error
}

func (p *queryParser) id(key string) *int64 {
	v := p.q.Get(key)
	if v == "" || p.err != nil {
		return nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.err = perrors.NewErrValidation(key, key+" must be a number")
		return nil
	}
	return &id
}

func (p *queryParser) date(key string) *models.Date {
	v := p.q.Get(key)
	if v == "" || p.err != nil {
		return nil
	}
	d, err := models.ParseDate(v)
	if err != nil {
		p.err = perrors.NewErrValidation(key, key+" must be a YYYY-MM-DD date")
		return nil
	}
	return &d
}

func (p *queryParser) boolean(key string) *bool {
	v := p.q.Get(key)
	if v == "" || p.err != nil {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.err = perrors.NewErrValidation(key, key+" must be true or false")
		return nil
	}
	return &b
}

func taskFilter(q url.Values) (db.TaskFilter, error) {
	p := &queryParser{q: q}
	f := db.TaskFilter{
		ProjectID:  p.id("project"),
		AssigneeID: p.id("assignee"),
		CreatorID:  p.id("creator"),
		DueFrom:    p.date("due_from"),
		DueTo:      p.date("due_to"),
		Search:     q.Get("q"),
	}
	if v := q.Get("state"); v != "" {
		st := models.TaskState(v)
		f.State = &st
	}
	if v := q.Get("priority"); v != "" {
		pr := models.Priority(v)
		f.Priority = &pr
	}
	if open := p.boolean("open"); open != nil {
		f.ExcludeCompleted = *open
	}
	return f, p.err
}

func projectFilter(q url.Values) (db.ProjectFilter, error) {
	p := &queryParser{q: q}
	f := db.ProjectFilter{
		OwnerID:   p.id("owner"),
		MemberID:  p.id("member"),
		Active:    p.boolean("active"),
		Search:    q.Get("q"),
		StartFrom: p.date("start_from"),
		StartTo:   p.date("start_to"),
	}
	return f, p.err
}
