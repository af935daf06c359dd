package server

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/jrsteele09/qa-console/authapi"
	"github.com/jrsteele09/qa-console/guard"
	"github.com/jrsteele09/qa-console/users"
	"github.com/rs/zerolog/log"
)

type signInForm struct {
	RedirectParam string
	RedirectURL   string
	UserID        string
}

type roleOption struct {
	Code  string
	Label string
}

var signUpRoles = []roleOption{
	{Code: string(users.RoleTester), Label: "Tester"},
	{Code: string(users.RoleDeveloper), Label: "Developer"},
	{Code: string(users.RoleManager), Label: "Manager"},
}

type signUpForm struct {
	UserID   string
	UserName string
	Email    string
	RoleCode string
	Roles    []roleOption
}

// SignInPageHandler renders the sign-in form. After a forced sign-out it first asks the
// backend whether the session is still alive, and if so goes straight back.
func (s *Server) SignInPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := signInForm{
			RedirectParam: s.guardRoutes.RedirectParam,
			RedirectURL:   guard.SafeRedirect(r.URL.Query().Get(s.guardRoutes.RedirectParam), ""),
		}
		if s.store.Snapshot().ForcedOut && s.store.ForceCheckSession(r.Context()) {
			target := s.returnTarget(form.RedirectURL)
			log.Info().Str("redirect", target).Msg("session still alive after forced sign-out")
			redirectSuccess(w, r, target)
			return
		}
		page := s.pageData("Sign in", form)
		if r.URL.Query().Get("signedUp") != "" {
			page.Message = "Your account has been created. Please sign in."
		}
		renderTemplate(w, s.pages.signIn, http.StatusOK, page)
	}
}

// SignInSubmitHandler signs in and returns the operator to the page they were sent away from
func (s *Server) SignInSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "400 - Bad Request", http.StatusBadRequest)
			return
		}

		form := signInForm{
			RedirectParam: s.guardRoutes.RedirectParam,
			RedirectURL:   guard.SafeRedirect(r.PostFormValue(s.guardRoutes.RedirectParam), ""),
			UserID:        strings.TrimSpace(r.PostFormValue("userId")),
		}
		password := r.PostFormValue("password")
		if form.UserID == "" || password == "" {
			page := s.pageData("Sign in", form)
			page.Error = "User ID and password are required."
			renderTemplate(w, s.pages.signIn, http.StatusBadRequest, page)
			return
		}

		res := s.auth.SignIn(r.Context(), form.UserID, password)
		if !res.OK() {
			log.Info().Str("userId", form.UserID).Str("reason", res.Message).Msg("sign in rejected")
			page := s.pageData("Sign in", form)
			page.Error = res.Message
			renderTemplate(w, s.pages.signIn, http.StatusUnauthorized, page)
			return
		}

		target := s.returnTarget(form.RedirectURL)
		log.Info().Str("userId", res.User.UserID).Str("redirect", target).Msg("signed in")
		redirectSuccess(w, r, target)
	}
}

// returnTarget is where a signed-in operator goes next; auth routes fall back to the entry page
func (s *Server) returnTarget(redirectURL string) string {
	target := guard.SafeRedirect(redirectURL, s.guardRoutes.AuthenticatedEntry)
	if s.guardRoutes.IsAuthRoute(target) {
		target = s.guardRoutes.AuthenticatedEntry
	}
	return target
}

func (s *Server) SignUpPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := signUpForm{RoleCode: string(users.RoleTester), Roles: signUpRoles}
		renderTemplate(w, s.pages.signUp, http.StatusOK, s.pageData("Sign up", form))
	}
}

func (s *Server) SignUpSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "400 - Bad Request", http.StatusBadRequest)
			return
		}

		form := signUpForm{
			UserID:   strings.TrimSpace(r.PostFormValue("userId")),
			UserName: strings.TrimSpace(r.PostFormValue("userName")),
			Email:    strings.TrimSpace(r.PostFormValue("email")),
			RoleCode: r.PostFormValue("userSeCd"),
			Roles:    signUpRoles,
		}
		password := r.PostFormValue("password")

		fail := func(status int, msg string) {
			page := s.pageData("Sign up", form)
			page.Error = msg
			renderTemplate(w, s.pages.signUp, status, page)
		}

		if form.UserID == "" || form.UserName == "" {
			fail(http.StatusBadRequest, "User ID and name are required.")
			return
		}
		if !users.RoleCode(form.RoleCode).Valid() {
			fail(http.StatusBadRequest, "Please choose a role.")
			return
		}
		if err := users.ValidatePasswordStrength(password); err != nil {
			fail(http.StatusBadRequest, err.Error())
			return
		}

		res := s.auth.SignUp(r.Context(), authapi.SignUpRequest{
			UserID:   form.UserID,
			UserName: form.UserName,
			Email:    form.Email,
			Password: password,
			RoleCode: form.RoleCode,
		})
		if !res.OK() {
			fail(http.StatusUnprocessableEntity, res.Message)
			return
		}

		log.Info().Str("userId", form.UserID).Str("role", form.RoleCode).Msg("signed up")
		redirectSuccess(w, r, s.guardRoutes.SignIn+"?signedUp=1")
	}
}

// ValidatePasswordHandler answers the sign-up form's htmx password check
func (s *Server) ValidatePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		password := r.FormValue("password")
		w.Header().Set("Content-Type", contentTypeHTML)

		if password == "" {
			w.WriteHeader(http.StatusOK)
			return
		}

		if err := users.ValidatePasswordStrength(password); err != nil {
			if isHTMX(r) {
				w.Header().Set("HX-Trigger", fmt.Sprintf(`{"passwordInvalid": %q}`, err.Error()))
			}
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, `<span class="text-danger">%s</span>`, template.HTMLEscapeString(err.Error()))
			return
		}

		if isHTMX(r) {
			w.Header().Set("HX-Trigger", `{"passwordValid": ""}`)
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `<span class="text-success">Strong password</span>`)
	}
}

// SignOutHandler ends the session locally even when the backend cannot be reached
func (s *Server) SignOutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := s.store.Snapshot().User.UserID
		s.auth.SignOut(r.Context())
		log.Info().Str("userId", user).Msg("signed out")
		redirectSuccess(w, r, s.guardRoutes.SignIn)
	}
}
