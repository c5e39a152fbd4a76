package commands

import (
	"os"
	"path/filepath"
	"testing"
)

// sampleWorkflow is a deliberately unoptimized GitHub Actions workflow:
// uncached npm installs, a needs edge with no artifact behind it, and
// no concurrency group.
const sampleWorkflow = `
name: ci
on:
  push:
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - run: npm ci
      - run: npm run build
  test:
    runs-on: ubuntu-latest
    needs: build
    steps:
      - uses: actions/checkout@v4
      - run: npm ci
      - run: npm test
`

// writeWorkflow writes the sample workflow to a temp directory and
// returns its path.
func writeWorkflow(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ci.yml")
	if err := os.WriteFile(path, []byte(sampleWorkflow), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
