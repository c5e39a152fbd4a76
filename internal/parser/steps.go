package parser

import (
	"strings"
	"time"

	"github.com/pipelens-dev/pipelens/pkg/core"
)

// defaultDurations is the per-kind estimate used when no timing history
// is available, so every DAG is fully time-annotated before analysis.
var defaultDurations = map[core.StepKind]time.Duration{
	core.StepCheckout:     10 * time.Second,
	core.StepInstall:      60 * time.Second,
	core.StepCacheRestore: 5 * time.Second,
	core.StepCacheSave:    5 * time.Second,
	core.StepBuild:        120 * time.Second,
	core.StepTest:         90 * time.Second,
	core.StepDeploy:       60 * time.Second,
	core.StepRun:          30 * time.Second,
}

// DefaultDuration returns the heuristic estimate for a step kind.
func DefaultDuration(kind core.StepKind) time.Duration {
	if d, ok := defaultDurations[kind]; ok {
		return d
	}
	return defaultDurations[core.StepRun]
}

// Command substrings, checked in order; the first hit wins.
var (
	installPatterns = []string{
		"npm ci", "npm install", "yarn install", "yarn --frozen-lockfile",
		"pnpm install", "pnpm i ",
		"pip install", "poetry install", "pipenv install",
		"cargo fetch", "cargo build", // cargo build fetches on cold caches
		"bundle install",
		"go mod download",
		"mvn dependency", "gradle dependencies",
		"composer install",
		"apt-get install", "apk add", "brew install",
	}
	buildPatterns = []string{
		"npm run build", "yarn build", "pnpm build",
		"go build", "mvn package", "mvn install", "gradle build", "gradle assemble",
		"docker build", "docker buildx",
		"make", "cmake", "tsc", "webpack", "vite build",
	}
	testPatterns = []string{
		"npm test", "npm run test", "yarn test", "pnpm test",
		"go test", "pytest", "cargo test", "jest", "rspec",
		"mvn test", "gradle test", "tox", "phpunit",
	}
	deployPatterns = []string{
		"deploy", "kubectl apply", "helm upgrade", "terraform apply",
		"aws s3 sync", "gcloud app", "fly deploy", "vercel",
	}
)

// classifyAction maps a GitHub action reference to a step kind.
func classifyAction(uses string) core.StepKind {
	ref := strings.ToLower(uses)
	switch {
	case strings.HasPrefix(ref, "actions/checkout"):
		return core.StepCheckout
	case strings.HasPrefix(ref, "actions/cache/restore"):
		return core.StepCacheRestore
	case strings.HasPrefix(ref, "actions/cache/save"):
		return core.StepCacheSave
	case strings.HasPrefix(ref, "actions/cache"):
		// The combined action restores before the job and saves after.
		return core.StepCacheRestore
	case strings.HasPrefix(ref, "actions/setup-"):
		return core.StepInstall
	case strings.Contains(ref, "docker/build-push-action"):
		return core.StepBuild
	default:
		return core.StepRun
	}
}

// classifyCommand maps a shell command to a step kind by loose text
// matching. Cargo's build doubles as its fetch, so install patterns are
// checked before build patterns.
func classifyCommand(run string) core.StepKind {
	cmd := strings.ToLower(run)
	for _, p := range installPatterns {
		if strings.Contains(cmd, p) {
			return core.StepInstall
		}
	}
	for _, p := range testPatterns {
		if strings.Contains(cmd, p) {
			return core.StepTest
		}
	}
	for _, p := range buildPatterns {
		if strings.Contains(cmd, p) {
			return core.StepBuild
		}
	}
	for _, p := range deployPatterns {
		if strings.Contains(cmd, p) {
			return core.StepDeploy
		}
	}
	return core.StepRun
}

// newStep builds a classified, time-annotated step from either an
// action reference or a shell command.
func newStep(name, uses, run string, with map[string]string) *core.Step {
	s := &core.Step{Name: name, Uses: uses, Run: run, With: with}
	if uses != "" {
		s.Kind = classifyAction(uses)
	} else {
		s.Kind = classifyCommand(run)
	}
	s.EstimatedDuration = DefaultDuration(s.Kind)
	return s
}
