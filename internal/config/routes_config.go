package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

const routesFileVar = "ROUTES_FILE"

type Routes struct{}

var _ RoutesConfig = Routes{}

// GetRoutesFile returns the path of the route authority table. A missing file means defaults.
func (Routes) GetRoutesFile() string {
	return GetEnv(routesFileVar, dataPath("routes.toml"))
}

func (Routes) GetRedirectParam() string {
	return "redirectUrl"
}

// RouteTable is the on-disk shape of the route authority table:
//
//	[authorities]
//	"/users" = ["MG"]
//	"/defects" = []
type RouteTable struct {
	Authorities map[string][]string `toml:"authorities"`
}

// DefaultRouteAuthorities is used when no routes file exists. Role codes: MG manager, QA tester, DV developer.
func DefaultRouteAuthorities() map[string][]string {
	return map[string][]string{
		"/dashboard": {},
		"/users":     {"MG"},
		"/projects":  {"MG", "QA", "DV"},
		"/defects":   {"MG", "QA", "DV"},
	}
}

// LoadRouteAuthorities reads the TOML route table at path. A missing file yields the defaults,
// any other read or parse failure is returned.
func LoadRouteAuthorities(path string) (map[string][]string, error) {
	if path == "" {
		return DefaultRouteAuthorities(), nil
	}

	file, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultRouteAuthorities(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("[config LoadRouteAuthorities] read %s: %w", path, err)
	}

	return ParseRouteAuthorities(file)
}

func ParseRouteAuthorities(data []byte) (map[string][]string, error) {
	table := RouteTable{}
	if err := toml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("[config ParseRouteAuthorities] %w", err)
	}
	if table.Authorities == nil {
		table.Authorities = map[string][]string{}
	}
	for route, authorities := range table.Authorities {
		if len(route) == 0 || route[0] != '/' {
			return nil, fmt.Errorf("[config ParseRouteAuthorities] route %q must start with /", route)
		}
		if authorities == nil {
			table.Authorities[route] = []string{}
		}
	}
	return table.Authorities, nil
}
