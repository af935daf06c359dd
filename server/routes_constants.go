package server

// Route path constants
// All console routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes
	RouteSignIn           = "/sign-in"
	RouteSignUp           = "/sign-up"
	RouteSignOut          = "/sign-out"
	RouteValidatePassword = "/sign-up/validate-password"
	RouteAccessDenied     = "/access-denied"

	// Pages
	RouteDashboard    = "/dashboard"
	RouteUsers        = "/users"
	RouteProjects     = "/projects"
	RouteDefects      = "/defects"
	RouteDefectDetail = "/defects/{id}"

	// Operational Routes
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"
)
