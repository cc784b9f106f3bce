package route

import (
	"sort"

	"github.com/gin-gonic/gin"
)

// RouterLoader initializes routes on the gin engine.
type RouterLoader func(r *gin.Engine) error

// RouteType distinguishes which listener a plugin's routes belong to.
type RouteType int

const (
	// RouteTypeMain registers routes on the main API listener.
	RouteTypeMain RouteType = iota
	// RouteTypeManagement registers routes on the management listener
	// (health, readiness, metrics). When no dedicated management port is
	// configured these are mounted on the main listener instead.
	RouteTypeManagement
)

// Plugin represents a route plugin with an order for a deterministic mount
// sequence.
type Plugin struct {
	Order  int
	Type   RouteType
	Loader RouterLoader
}

var plugins []Plugin

// Register adds a route plugin. Called from init() in plugin packages.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Loaders returns the loaders of the given type, sorted by order.
func Loaders(t RouteType) []RouterLoader {
	sorted := make([]Plugin, len(plugins))
	copy(sorted, plugins)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	var loaders []RouterLoader
	for _, p := range sorted {
		if p.Type == t {
			loaders = append(loaders, p.Loader)
		}
	}
	return loaders
}
