package guard

import (
	"fmt"

	"github.com/jrsteele09/qa-console/internal/utils"
	"github.com/jrsteele09/qa-console/session"
)

// Decision is the outcome of a guard. Pending means bootstrap has not finished yet, so
// the decision may still change; Redirect then holds what would happen if it stays this way.
type Decision struct {
	Allow    bool
	Pending  bool
	Redirect string
}

// RequireSignedIn lets signed-in operators through and sends everyone else to the
// unauthenticated entry with attempted as the return target
func RequireSignedIn(st session.State, routes Routes, attempted string) Decision {
	if st.SignedIn {
		return Decision{Allow: true}
	}
	return Decision{
		Pending:  !st.Initialized,
		Redirect: routes.SignInRedirect(attempted),
	}
}

// RequireSignedOut is the inverse of RequireSignedIn, for sign-in and sign-up pages
func RequireSignedOut(st session.State, routes Routes) Decision {
	if st.SignedIn {
		return Decision{Redirect: routes.AuthenticatedEntry}
	}
	return Decision{Allow: true, Pending: !st.Initialized}
}

// RequireAuthority allows access when required is empty or shares at least one entry
// with held. Both sides may be a single value or a list.
func RequireAuthority(required, held any, routes Routes, attempted string) Decision {
	need := Normalize(required)
	if len(need) == 0 {
		return Decision{Allow: true}
	}

	have := make(map[string]struct{})
	for _, h := range Normalize(held) {
		have[h] = struct{}{}
	}
	for _, n := range need {
		if _, ok := have[n]; ok {
			return Decision{Allow: true}
		}
	}
	return Decision{Redirect: routes.AccessDeniedRedirect(attempted)}
}

// Normalize coerces a single authority or any list shape into a list of non-empty strings
func Normalize(v any) []string {
	var raw []string
	switch t := v.(type) {
	case nil:
		return []string{}
	case string:
		raw = []string{t}
	case []string:
		raw = t
	case []any:
		raw = utils.ToStringSlice(t)
	case fmt.Stringer:
		raw = []string{t.String()}
	default:
		raw = []string{fmt.Sprint(t)}
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
