package optimizer

import "github.com/pmezard/go-difflib/difflib"

// UnifiedDiff renders a unified diff between the original configuration
// text and its optimized rewrite.
func UnifiedDiff(path string, original, optimized []byte) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(original)),
		B:        difflib.SplitLines(string(optimized)),
		FromFile: path,
		ToFile:   path + " (optimized)",
		Context:  3,
	})
}
