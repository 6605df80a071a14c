package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/xerocraft/backend/internal/domain/schema"
)

// Graph is the dependency graph of all known migrations.
type Graph struct {
	nodes    map[Key]*Migration
	parents  map[Key][]Key
	children map[Key][]Key
}

// NewGraph builds and validates the graph. Every structural problem found is
// reported in the returned error, not only the first.
func NewGraph(migrations []*Migration) (*Graph, error) {
	g := &Graph{
		nodes:    make(map[Key]*Migration, len(migrations)),
		parents:  make(map[Key][]Key),
		children: make(map[Key][]Key),
	}
	var result *multierror.Error

	for _, m := range migrations {
		if m == nil || m.App == "" || m.Name == "" {
			result = multierror.Append(result, fmt.Errorf("%w: migration without app or name", ErrInvalidGraph))
			continue
		}
		if _, dup := g.nodes[m.Key()]; dup {
			result = multierror.Append(result, fmt.Errorf("%w: duplicate migration %s", ErrInvalidGraph, m.Key()))
			continue
		}
		g.nodes[m.Key()] = m
	}

	roots := make(map[string][]Key)
	for _, k := range g.Keys() {
		m := g.nodes[k]
		sameApp := 0
		for _, d := range m.Dependencies {
			if d.App == k.App {
				sameApp++
			}
			if _, ok := g.nodes[d]; !ok {
				result = multierror.Append(result, fmt.Errorf("%w: %s depends on %s", ErrNodeNotFound, k, d))
				continue
			}
			g.parents[k] = append(g.parents[k], d)
			g.children[d] = append(g.children[d], k)
		}
		if sameApp == 0 {
			roots[k.App] = append(roots[k.App], k)
		}
		if m.IsMerge() && len(m.Operations) > 0 {
			result = multierror.Append(result, fmt.Errorf("%w: merge migration %s must not carry operations", ErrInvalidGraph, k))
		}
	}
	for k := range g.parents {
		sortKeys(g.parents[k])
	}
	for k := range g.children {
		sortKeys(g.children[k])
	}

	for _, app := range g.Apps() {
		if r := roots[app]; len(r) != 1 {
			result = multierror.Append(result, fmt.Errorf("%w: app %q has %d initial migrations %v", ErrInvalidGraph, app, len(r), r))
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		parts := make([]string, len(cycle))
		for i, k := range cycle {
			parts[i] = k.String()
		}
		result = multierror.Append(result, fmt.Errorf("%w: %s", ErrCircularDependency, strings.Join(parts, " -> ")))
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return g, nil
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].App != keys[j].App {
			return keys[i].App < keys[j].App
		}
		return keys[i].Name < keys[j].Name
	})
}

func (g *Graph) findCycle() []Key {
	const (
		white = iota
		grey
		black
	)
	color := make(map[Key]int, len(g.nodes))
	var stack []Key
	var cycle []Key

	var visit func(k Key) bool
	visit = func(k Key) bool {
		color[k] = grey
		stack = append(stack, k)
		for _, p := range g.parents[k] {
			switch color[p] {
			case grey:
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == p {
						cycle = append(append([]Key(nil), stack[i:]...), p)
						break
					}
				}
				return true
			case white:
				if visit(p) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[k] = black
		return false
	}

	for _, k := range g.Keys() {
		if color[k] == white && visit(k) {
			return cycle
		}
	}
	return nil
}

// Node returns the migration stored under key.
func (g *Graph) Node(key Key) (*Migration, bool) {
	m, ok := g.nodes[key]
	return m, ok
}

// Keys returns every migration key sorted by app then name.
func (g *Graph) Keys() []Key {
	keys := make([]Key, 0, len(g.nodes))
	for k := range g.nodes {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// Apps returns the sorted app labels present in the graph.
func (g *Graph) Apps() []string {
	seen := make(map[string]bool)
	var apps []string
	for k := range g.nodes {
		if !seen[k.App] {
			seen[k.App] = true
			apps = append(apps, k.App)
		}
	}
	sort.Strings(apps)
	return apps
}

// Parents returns the direct dependencies of key.
func (g *Graph) Parents(key Key) []Key { return g.parents[key] }

// Children returns the migrations that directly depend on key.
func (g *Graph) Children(key Key) []Key { return g.children[key] }

// LeafNodes returns migrations that no later migration of the same app depends on.
func (g *Graph) LeafNodes() []Key {
	var leaves []Key
	for _, k := range g.Keys() {
		leaf := true
		for _, c := range g.children[k] {
			if c.App == k.App {
				leaf = false
				break
			}
		}
		if leaf {
			leaves = append(leaves, k)
		}
	}
	return leaves
}

// Conflicts returns, per app, the leaves of apps that have more than one.
func (g *Graph) Conflicts() map[string][]Key {
	byApp := make(map[string][]Key)
	for _, k := range g.LeafNodes() {
		byApp[k.App] = append(byApp[k.App], k)
	}
	conflicts := make(map[string][]Key)
	for app, leaves := range byApp {
		if len(leaves) > 1 {
			conflicts[app] = leaves
		}
	}
	return conflicts
}

// Leaf returns the single leaf migration of app.
func (g *Graph) Leaf(app string) (Key, error) {
	var leaves []Key
	for _, k := range g.LeafNodes() {
		if k.App == app {
			leaves = append(leaves, k)
		}
	}
	switch len(leaves) {
	case 0:
		return Key{}, fmt.Errorf("%w: app %q has no migrations", ErrNodeNotFound, app)
	case 1:
		return leaves[0], nil
	default:
		return Key{}, fmt.Errorf("%w: app %q has leaves %v", ErrConflictingLeaves, app, leaves)
	}
}

// ForwardsPlan returns the targets and all their ancestors, dependencies first.
// Siblings are visited in key order so the plan is deterministic.
func (g *Graph) ForwardsPlan(targets ...Key) ([]Key, error) {
	return g.walk(targets, g.parents)
}

// BackwardsPlan returns the targets and all their descendants, dependents first.
func (g *Graph) BackwardsPlan(targets ...Key) ([]Key, error) {
	return g.walk(targets, g.children)
}

func (g *Graph) walk(targets []Key, edges map[Key][]Key) ([]Key, error) {
	var plan []Key
	seen := make(map[Key]bool)
	var visit func(k Key)
	visit = func(k Key) {
		if seen[k] {
			return
		}
		seen[k] = true
		for _, next := range edges[k] {
			visit(next)
		}
		plan = append(plan, k)
	}
	for _, t := range targets {
		if _, ok := g.nodes[t]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, t)
		}
		visit(t)
	}
	return plan, nil
}

// FullPlan returns the forwards plan that reaches every leaf.
func (g *Graph) FullPlan() []Key {
	plan, _ := g.ForwardsPlan(g.LeafNodes()...)
	return plan
}

// MakeState replays the state transitions of plan from an empty state.
func (g *Graph) MakeState(plan []Key) (*schema.State, error) {
	s := schema.NewState()
	for _, k := range plan {
		m, ok := g.nodes[k]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, k)
		}
		if err := m.Apply(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Validate replays the whole history, surfacing the first invalid operation.
func (g *Graph) Validate() error {
	_, err := g.MakeState(g.FullPlan())
	return err
}
