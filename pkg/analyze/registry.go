package analyze

import (
	"sort"
	"sync"

	"github.com/pipelens-dev/pipelens/pkg/core"
)

// globalRegistry is the single global registry for analyzer rules.
var globalRegistry = &Registry{
	rules: make(map[string]RuleDef),
}

// Registry stores registered analyzer rules for discovery.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]RuleDef
}

// RuleDef is a data-driven analyzer rule definition. Rules are
// stateless - all context comes via the Check parameter.
type RuleDef struct {
	ID          string        // Unique identifier, e.g., "CA01"
	Name        string        // Human-readable name, e.g., "caching.missing-cache"
	Category    core.Category // Finding category the rule emits
	Description string        // Human-readable description
	Severity    core.Severity // Default severity
	Check       Check         // The check function
	ConfigKeys  []string      // Configuration keys this rule accepts
}

// Check is the function signature for analyzer rule checks.
type Check func(ctx *Context) []core.Finding

// Register adds a rule to the global registry.
// Call this from init() functions in rule packages.
func Register(rule RuleDef) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.rules[rule.ID] = rule
}

// All returns all registered rules sorted by ID, so analysis passes run
// in a reproducible order.
func All() []RuleDef {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	rules := make([]RuleDef, 0, len(globalRegistry.rules))
	for _, rule := range globalRegistry.rules {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}

// ByID returns a rule by its ID.
func ByID(id string) (RuleDef, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	rule, ok := globalRegistry.rules[id]
	return rule, ok
}

// Count returns the number of registered rules.
func Count() int {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	return len(globalRegistry.rules)
}
