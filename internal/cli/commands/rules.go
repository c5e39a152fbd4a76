package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pipelens-dev/pipelens/internal/cli/output"
	"github.com/pipelens-dev/pipelens/pkg/analyze"
	_ "github.com/pipelens-dev/pipelens/pkg/analyze/rules" // register analyzer rules
	"github.com/pipelens-dev/pipelens/pkg/core"
)

// rulesOptions holds flags for the rules command.
type rulesOptions struct {
	category string
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &rulesOptions{}

	cmd := &cobra.Command{
		Use:   "rules [rule-id]",
		Short: "List available analyzer rules",
		Long: `List the analyzer rules with their default severity and category.

Rules can be disabled or re-weighted in pipelens.yaml under the
analyze section.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # List all rules
  pipelens rules

  # Show details for one rule
  pipelens rules CA01

  # List caching rules only
  pipelens rules --category caching

  # Output as JSON
  pipelens rules --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return showRule(cmd, args[0])
			}
			return listRules(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.category, "category", "", "Filter by category (caching|parallelization|waste|flakiness)")

	return cmd
}

func listRules(cmd *cobra.Command, opts *rulesOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	rules := analyze.All()
	if opts.category != "" {
		filtered := rules[:0]
		for _, rule := range rules {
			if string(rule.Category) == opts.category {
				filtered = append(filtered, rule)
			}
		}
		rules = filtered
	}

	// Category groups the listing; registry order is already by ID.
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Category < rules[j].Category
	})

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return listRulesJSON(r, rules)
	case output.ModeMarkdown:
		listRulesMarkdown(r, rules)
	default:
		listRulesText(r, rules)
	}
	return nil
}

func listRulesText(r *output.Renderer, rules []analyze.RuleDef) {
	styles := r.Styles()
	r.Header(1, "Analyzer Rules")

	var lastCategory core.Category
	for i, rule := range rules {
		if i == 0 || rule.Category != lastCategory {
			r.Println(styles.Header2.Render(strings.ToUpper(string(rule.Category))))
			lastCategory = rule.Category
		}
		r.Printf("  %s %s %s\n",
			styles.Bold.Render(rule.ID),
			severityStyle(r, rule.Severity),
			rule.Name)
		r.Printf("    %s\n", styles.Muted.Render(rule.Description))
	}
	r.Println("")
	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d rules", len(rules))))
}

func listRulesMarkdown(r *output.Renderer, rules []analyze.RuleDef) {
	r.Println(output.FormatHeader(1, "Analyzer Rules"))
	r.Println("")
	r.Println("| ID | Category | Severity | Name | Description |")
	r.Println("|----|----------|----------|------|-------------|")
	for _, rule := range rules {
		r.Printf("| %s | %s | %s | %s | %s |\n",
			rule.ID, rule.Category, rule.Severity, rule.Name, rule.Description)
	}
}

func listRulesJSON(r *output.Renderer, rules []analyze.RuleDef) error {
	type ruleJSON struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Category    string   `json:"category"`
		Severity    string   `json:"severity"`
		Description string   `json:"description"`
		ConfigKeys  []string `json:"config_keys,omitempty"`
	}
	out := make([]ruleJSON, 0, len(rules))
	for _, rule := range rules {
		out = append(out, ruleJSON{
			ID:          rule.ID,
			Name:        rule.Name,
			Category:    string(rule.Category),
			Severity:    rule.Severity.String(),
			Description: rule.Description,
			ConfigKeys:  rule.ConfigKeys,
		})
	}
	return r.JSON(out)
}

func showRule(cmd *cobra.Command, ruleID string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	rule, ok := analyze.ByID(strings.ToUpper(ruleID))
	if !ok {
		return fmt.Errorf("unknown rule %q", ruleID)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return listRulesJSON(r, []analyze.RuleDef{rule})
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("%s: %s", rule.ID, rule.Name)))
		r.Println("")
		r.Println(output.FormatKeyValue("Category", string(rule.Category)))
		r.Println(output.FormatKeyValue("Default severity", rule.Severity.String()))
		r.Println(output.FormatKeyValue("Description", rule.Description))
		if len(rule.ConfigKeys) > 0 {
			r.Println(output.FormatKeyValue("Config keys", strings.Join(rule.ConfigKeys, ", ")))
		}
	default:
		styles := r.Styles()
		r.Header(1, fmt.Sprintf("%s: %s", rule.ID, rule.Name))
		r.Printf("  %s %s\n", styles.Muted.Render("Category:"), rule.Category)
		r.Printf("  %s %s\n", styles.Muted.Render("Severity:"), severityStyle(r, rule.Severity))
		r.Printf("  %s\n", rule.Description)
		if len(rule.ConfigKeys) > 0 {
			r.Printf("  %s %s\n", styles.Muted.Render("Config keys:"), strings.Join(rule.ConfigKeys, ", "))
		}
	}
	return nil
}
