// Package rules registers every built-in analyzer rule. Import it for
// side effects:
//
//	import _ "github.com/pipelens-dev/pipelens/pkg/analyze/rules"
package rules

import (
	_ "github.com/pipelens-dev/pipelens/pkg/analyze/rules/caching"
	_ "github.com/pipelens-dev/pipelens/pkg/analyze/rules/flaky"
	_ "github.com/pipelens-dev/pipelens/pkg/analyze/rules/parallel"
	_ "github.com/pipelens-dev/pipelens/pkg/analyze/rules/waste"
)
