// Package caching detects dependency installs that run without a
// preceding cache restore.
package caching

import (
	"fmt"
	"strings"

	"github.com/pipelens-dev/pipelens/pkg/analyze"
	"github.com/pipelens-dev/pipelens/pkg/core"
)

func init() {
	analyze.Register(analyze.RuleDef{
		ID:          "CA01",
		Name:        "caching.missing-cache",
		Category:    core.CategoryCaching,
		Description: "Dependency install step runs without a preceding cache restore",
		Severity:    core.SeverityHigh,
		Check:       checkMissingCache,
		ConfigKeys:  []string{"cache_savings_secs"},
	})
}

// Ecosystem ties install command signatures to the cache action inputs
// and paths that would serve them.
type Ecosystem struct {
	Name string
	// Commands are loose command-text signatures (lower confidence).
	Commands []string
	// Actions are exact action-name prefixes (high confidence).
	Actions []string
	// SetupCacheInput is the `cache:` input value of the setup action
	// that enables built-in caching for this ecosystem.
	SetupCacheInput string
	// CachePaths are the directories a cache step should persist.
	CachePaths []string
}

// Ecosystems is the closed signature table, exported for the optimizer
// which injects cache steps keyed by ecosystem name.
var Ecosystems = []Ecosystem{
	{
		Name:            "npm",
		Commands:        []string{"npm ci", "npm install", "yarn install", "yarn --frozen-lockfile", "pnpm install", "pnpm i "},
		SetupCacheInput: "npm",
		CachePaths:      []string{"~/.npm", "node_modules"},
	},
	{
		Name:            "pip",
		Commands:        []string{"pip install", "poetry install", "pipenv install"},
		SetupCacheInput: "pip",
		CachePaths:      []string{"~/.cache/pip"},
	},
	{
		Name:       "cargo",
		Commands:   []string{"cargo fetch", "cargo build", "cargo test"},
		Actions:    []string{"swatinem/rust-cache"},
		CachePaths: []string{"~/.cargo/registry", "target"},
	},
	{
		Name:       "gradle",
		Commands:   []string{"gradle build", "./gradlew", "mvn package", "mvn install", "mvn dependency"},
		Actions:    []string{"gradle/actions/setup-gradle", "gradle/gradle-build-action"},
		CachePaths: []string{"~/.gradle/caches", "~/.m2/repository"},
	},
	{
		Name:       "docker",
		Commands:   []string{"docker build", "docker buildx"},
		Actions:    []string{"docker/build-push-action"},
		CachePaths: []string{"/tmp/.buildx-cache"},
	},
}

// EcosystemByName returns the ecosystem entry for a name.
func EcosystemByName(name string) (Ecosystem, bool) {
	for _, eco := range Ecosystems {
		if eco.Name == name {
			return eco, true
		}
	}
	return Ecosystem{}, false
}

// Matches reports whether the step installs for this ecosystem, and
// how specifically it matched. The optimizer uses it to locate the
// install step a cache restore should precede.
func (e Ecosystem) Matches(s *core.Step) (hit bool, exact bool) {
	uses := strings.ToLower(s.Uses)
	for _, a := range e.Actions {
		if strings.HasPrefix(uses, a) {
			return true, true
		}
	}
	cmd := strings.ToLower(s.Run)
	for _, c := range e.Commands {
		if strings.Contains(cmd, c) {
			return true, false
		}
	}
	return false, false
}

// servedByCache reports whether an earlier step in the same job already
// restores a cache usable by this ecosystem: an explicit cache-restore
// step, or a setup action with its built-in cache input enabled.
func servedByCache(job *core.Job, upto int, eco Ecosystem) bool {
	for _, s := range job.Steps[:upto] {
		if s.Kind == core.StepCacheRestore {
			return true
		}
		if eco.SetupCacheInput != "" && strings.HasPrefix(strings.ToLower(s.Uses), "actions/setup-") {
			if s.With["cache"] == eco.SetupCacheInput {
				return true
			}
		}
	}
	return false
}

func checkMissingCache(ctx *analyze.Context) []core.Finding {
	savings := ctx.Thresholds().CacheSavingsSecs
	var findings []core.Finding

	for _, job := range ctx.Pipeline().Jobs {
		// One finding per job per ecosystem keeps the report readable
		// when a job runs several installs for the same toolchain.
		reported := make(map[string]bool)

		for i, step := range job.Steps {
			for _, eco := range Ecosystems {
				hit, exact := eco.Matches(step)
				if !hit || reported[eco.Name] {
					continue
				}
				if servedByCache(job, i, eco) {
					reported[eco.Name] = true
					continue
				}
				reported[eco.Name] = true

				saved := savings[eco.Name]
				confidence := 0.6
				if exact {
					confidence = 0.9
				}
				findings = append(findings, core.Finding{
					RuleID:   "CA01",
					Severity: severityForSavings(saved),
					Category: core.CategoryCaching,
					Title:    fmt.Sprintf("Uncached %s dependency install in job %q", eco.Name, job.Name),
					Description: fmt.Sprintf(
						"Job %q installs %s dependencies on every run without restoring a cache first; each run re-downloads roughly %ds of dependencies.",
						job.Name, eco.Name, saved),
					AffectedJobs: []string{job.Name},
					Recommendation: fmt.Sprintf(
						"Restore a %s cache (%s) before the install step.",
						eco.Name, strings.Join(eco.CachePaths, ", ")),
					FixID:                "add-cache:" + eco.Name,
					FixArgs:              map[string]string{"ecosystem": eco.Name},
					EstimatedSavingsSecs: saved,
					Confidence:           confidence,
					AutoFixable:          true,
				})
			}
		}
	}
	return findings
}

// severityForSavings scales severity with the estimated wasted seconds.
func severityForSavings(secs int) core.Severity {
	switch {
	case secs >= 180:
		return core.SeverityHigh
	case secs >= 90:
		return core.SeverityMedium
	default:
		return core.SeverityLow
	}
}
