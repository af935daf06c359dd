package tracker

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/qa-console/authapi"
	qaerrors "github.com/jrsteele09/qa-console/internal/errors"
	"github.com/jrsteele09/qa-console/users"
)

// List endpoints on the backend
const (
	PathUsers    = "/api/users"
	PathProjects = "/api/projects"
	PathDefects  = "/api/defects"
)

// Filter parameter names accepted by each list
var (
	UserFilters    = []string{"userSeCd"}
	ProjectFilters = []string{"status"}
	DefectFilters  = []string{"projectId", "status", "severity"}
)

// Doer sends a JSON request to the backend. The gateway client implements it.
type Doer interface {
	DoJSON(ctx context.Context, method, path string, in, out any) error
}

// Client fetches the dashboard's list views
type Client struct {
	api Doer
}

func New(api Doer) *Client {
	return &Client{api: api}
}

func (c *Client) Users(ctx context.Context, q ListQuery) (Page[users.User], error) {
	return list[users.User](ctx, c.api, PathUsers, q)
}

func (c *Client) Projects(ctx context.Context, q ListQuery) (Page[Project], error) {
	return list[Project](ctx, c.api, PathProjects, q)
}

func (c *Client) Defects(ctx context.Context, q ListQuery) (Page[Defect], error) {
	return list[Defect](ctx, c.api, PathDefects, q)
}

// Defect fetches one defect; an unknown id returns errors.ErrNotFound
func (c *Client) Defect(ctx context.Context, id string) (Defect, error) {
	if id == "" {
		return Defect{}, qaerrors.Wrapf(qaerrors.ErrInvalidRequest, "[tracker Defect] empty id")
	}

	env := authapi.Envelope[Defect]{}
	if err := c.api.DoJSON(ctx, http.MethodGet, PathDefects+"/"+url.PathEscape(id), nil, &env); err != nil {
		return Defect{}, qaerrors.Wrapf(err, "[tracker Defect] %s", id)
	}
	return env.Data, nil
}

func list[T any](ctx context.Context, api Doer, path string, q ListQuery) (Page[T], error) {
	env := authapi.Envelope[Page[T]]{}
	if err := api.DoJSON(ctx, http.MethodGet, path+"?"+q.Values().Encode(), nil, &env); err != nil {
		return Page[T]{}, qaerrors.Wrapf(err, "[tracker list] %s", path)
	}
	if env.Data.Items == nil {
		env.Data.Items = []T{}
	}
	return env.Data, nil
}
