package resource

import (
	"log"
	"sort"
	"strings"
	"sync"
)

// RouteRequirement declares the permissions needed to view a page path.
// An empty permission list means authenticated-only.
type RouteRequirement struct {
	Path        string   `json:"path"`
	Permissions []string `json:"permissions"`
}

// Registry holds the resource descriptors and the page route→permission
// table. Loaded at startup and mutable at runtime through the admin surface.
type Registry struct {
	mu        sync.RWMutex
	resources map[string]*Resource
	routes    map[string][]string
}

func NewRegistry() *Registry {
	return &Registry{
		resources: make(map[string]*Resource),
		routes:    make(map[string][]string),
	}
}

// Get returns the resource with the given name, or nil.
func (r *Registry) Get(name string) *Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resources[name]
}

// All returns all registered resources sorted by name.
func (r *Registry) All() []*Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resources := make([]*Resource, 0, len(r.resources))
	for _, res := range r.resources {
		resources = append(resources, res)
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i].Name < resources[j].Name })
	return resources
}

// Routes returns the route table sorted by path.
func (r *Registry) Routes() []RouteRequirement {
	r.mu.RLock()
	defer r.mu.RUnlock()
	routes := make([]RouteRequirement, 0, len(r.routes))
	for path, perms := range r.routes {
		routes = append(routes, RouteRequirement{Path: path, Permissions: perms})
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].Path < routes[j].Path })
	return routes
}

// RequiredPermissions looks up the permissions declared for a page path:
// exact match first, then the longest declared prefix. The boolean reports
// whether any declaration matched at all.
func (r *Registry) RequiredPermissions(path string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if perms, ok := r.routes[path]; ok {
		return perms, true
	}

	bestLen := -1
	var best []string
	for declared, perms := range r.routes {
		if !strings.HasPrefix(path, declared) {
			continue
		}
		// Prefix must end on a path boundary: /dashboard matches
		// /dashboard/clientes but not /dashboardx.
		if len(path) > len(declared) && path[len(declared)] != '/' {
			continue
		}
		if len(declared) > bestLen {
			bestLen = len(declared)
			best = perms
		}
	}
	return best, bestLen >= 0
}

// ReplaceRoute swaps the permission list for a declared path. Returns false
// if the path was never declared; new paths go through Load.
func (r *Registry) ReplaceRoute(path string, permissions []string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.routes[path]; !ok {
		return false
	}
	r.routes[path] = permissions
	return true
}

// Load replaces all resources and routes in the registry. Expression rules
// compile here, before any request can see them.
func (r *Registry) Load(resources []*Resource, routes []RouteRequirement) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resources = make(map[string]*Resource, len(resources))
	for _, res := range resources {
		for i := range res.Rules {
			if err := res.Rules[i].Compile(); err != nil {
				log.Printf("WARN: resource %s: %v", res.Name, err)
			}
		}
		r.resources[res.Name] = res
	}

	r.routes = make(map[string][]string, len(routes))
	for _, rt := range routes {
		r.routes[rt.Path] = rt.Permissions
	}
}
