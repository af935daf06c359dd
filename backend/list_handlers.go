package backend

import (
	"net/http"

	qaerrors "github.com/jrsteele09/qa-console/internal/errors"
	"github.com/jrsteele09/qa-console/tracker"
	"github.com/jrsteele09/qa-console/users"
	"github.com/rs/zerolog/log"
)

func (b *Backend) UsersListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := tracker.ParseListQuery(r.URL.Query(), tracker.UserFilters...)

		filter := users.ListFilter{Keyword: q.Keyword, RoleCode: users.RoleCode(q.Filter("userSeCd"))}
		list, total, err := b.users.List(filter, q.Offset(), q.Size)
		if err != nil {
			log.Err(err).Msg("failed to list users")
			writeFailure(w, http.StatusInternalServerError, "Failed to list users")
			return
		}

		page := tracker.Page[users.User]{Items: make([]users.User, 0, len(list)), Total: total, Page: q.Page, Size: q.Size}
		for _, u := range list {
			page.Items = append(page.Items, *u)
		}
		writeSuccess(w, "", page)
	}
}

func (b *Backend) ProjectsListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := tracker.ParseListQuery(r.URL.Query(), tracker.ProjectFilters...)
		writeSuccess(w, "", b.catalog.Projects(q))
	}
}

func (b *Backend) DefectsListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := tracker.ParseListQuery(r.URL.Query(), tracker.DefectFilters...)
		writeSuccess(w, "", b.catalog.Defects(q))
	}
}

func (b *Backend) DefectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := b.catalog.Defect(r.PathValue("id"))
		if qaerrors.Is(err, qaerrors.ErrNotFound) {
			writeFailure(w, http.StatusNotFound, "Defect not found")
			return
		}
		if err != nil {
			log.Err(err).Str("id", r.PathValue("id")).Msg("failed to load defect")
			writeFailure(w, http.StatusInternalServerError, "Failed to load defect")
			return
		}
		writeSuccess(w, "", d)
	}
}
