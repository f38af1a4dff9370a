package internal

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/PaesslerAG/jsonpath"

	"eventpipe/pkg/event"
)

// Rule matches events against a govaluate expression and names the topics an
// alert is emitted on when the expression is true.
type Rule struct {
	When    string   `yaml:"when"`
	Emit    EmitList `yaml:"emit"`
	Drivers []string `yaml:"drivers"`
}

// EmitList accepts either a single topic or a list of topics in YAML.
type EmitList []string

func (e *EmitList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*e = EmitList{single}
		return nil
	}
	var many []string
	if err := unmarshal(&many); err != nil {
		return err
	}
	*e = EmitList(many)
	return nil
}

// RuleMatch is one emitted topic for one fired rule.
type RuleMatch struct {
	Rule    string
	Topic   string
	Drivers []string
}

type compiledRule struct {
	when     string
	emit     []string
	drivers  []string
	expr     *govaluate.EvaluableExpression
	bindings map[string]string
}

// RuleEngine evaluates compiled rules against event documents. Expressions
// reference fields three ways: plain identifiers and dotted or indexed paths
// (pull_request.draft, items[0].id) resolve against the flattened document,
// and $.-prefixed JSONPath expressions go through the jsonpath engine.
type RuleEngine struct {
	rules  []compiledRule
	strict bool
	logger *log.Logger
}

func NewRuleEngine(cfg RulesConfig) (*RuleEngine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = NewLogger("rules")
	}

	rules := make([]compiledRule, 0, len(cfg.Rules))
	for i, rule := range cfg.Rules {
		rewritten, bindings := rewriteExpression(rule.When)
		expr, err := govaluate.NewEvaluableExpressionWithFunctions(rewritten, ruleFunctions)
		if err != nil {
			return nil, fmt.Errorf("compile rule %d: %w", i, err)
		}
		rules = append(rules, compiledRule{
			when:     rule.When,
			emit:     rule.Emit,
			drivers:  rule.Drivers,
			expr:     expr,
			bindings: bindings,
		})
	}

	return &RuleEngine{rules: rules, strict: cfg.Strict, logger: logger}, nil
}

// Evaluate runs every rule against the document and returns one match per
// emitted topic. A rule that fails to evaluate is skipped for this event only.
func (r *RuleEngine) Evaluate(doc *event.Document) []RuleMatch {
	if len(r.rules) == 0 || doc == nil {
		return nil
	}

	flat := Flatten(doc.Fields())

	matches := make([]RuleMatch, 0, 1)
	for _, rule := range r.rules {
		params, missing := rule.resolveParams(doc, flat)
		if missing && r.strict {
			continue
		}
		result, err := rule.expr.Evaluate(params)
		if err != nil {
			if !r.strict {
				r.logger.Printf("rule eval failed: %q: %v", rule.when, err)
			}
			continue
		}
		ok, _ := result.(bool)
		if !ok {
			continue
		}
		for _, topic := range rule.emit {
			matches = append(matches, RuleMatch{Rule: rule.when, Topic: topic, Drivers: rule.drivers})
		}
	}
	return matches
}

func (rule compiledRule) resolveParams(doc *event.Document, flat map[string]interface{}) (map[string]interface{}, bool) {
	params := make(map[string]interface{}, len(flat)+len(rule.bindings))
	for key, value := range flat {
		params[key] = value
	}

	missing := false
	for name, path := range rule.bindings {
		if strings.HasPrefix(path, "$") {
			value, err := jsonpath.Get(path, doc.Fields())
			if err != nil {
				missing = true
				continue
			}
			params[name] = value
			continue
		}
		value, ok := flat[path]
		if !ok {
			missing = true
			continue
		}
		params[name] = value
	}
	return params, missing
}

var ruleFunctions = map[string]govaluate.ExpressionFunction{
	"contains": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("contains expects 2 arguments, got %d", len(args))
		}
		list, ok := args[0].([]interface{})
		if !ok {
			return false, nil
		}
		for _, item := range list {
			if fmt.Sprint(item) == fmt.Sprint(args[1]) {
				return true, nil
			}
		}
		return false, nil
	},
	"like": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("like expects 2 arguments, got %d", len(args))
		}
		text, ok := args[0].(string)
		if !ok {
			return false, nil
		}
		pattern, ok := args[1].(string)
		if !ok {
			return false, nil
		}
		expr := "^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), "%", ".*") + "$"
		matched, err := regexp.MatchString(expr, text)
		if err != nil {
			return nil, err
		}
		return matched, nil
	},
}

// rewriteExpression replaces dotted, indexed, and JSONPath field references
// with synthetic parameter names govaluate can tokenize, and records how each
// synthetic name resolves against the document.
func rewriteExpression(expr string) (string, map[string]string) {
	bindings := make(map[string]string)

	var out strings.Builder
	runes := []rune(expr)
	for i := 0; i < len(runes); {
		r := runes[i]

		// String literals pass through untouched.
		if r == '\'' || r == '"' {
			quote := r
			out.WriteRune(r)
			i++
			for i < len(runes) {
				if runes[i] == '\\' && i+1 < len(runes) {
					out.WriteRune(runes[i])
					out.WriteRune(runes[i+1])
					i += 2
					continue
				}
				out.WriteRune(runes[i])
				if runes[i] == quote {
					i++
					break
				}
				i++
			}
			continue
		}

		if r == '$' || isIdentStart(r) {
			start := i
			i = scanPath(runes, i)
			token := string(runes[start:i])
			if strings.HasPrefix(token, "$") || strings.ContainsAny(token, ".[") {
				name := fmt.Sprintf("field_%d", len(bindings))
				bindings[name] = token
				out.WriteString(name)
				continue
			}
			out.WriteString(token)
			continue
		}

		out.WriteRune(r)
		i++
	}

	return out.String(), bindings
}

func scanPath(runes []rune, i int) int {
	if runes[i] == '$' {
		i++
	}
	for i < len(runes) {
		switch r := runes[i]; {
		case isIdentPart(r):
			i++
		case r == '.':
			if i+1 < len(runes) && isIdentStart(runes[i+1]) {
				i += 2
				continue
			}
			return i
		case r == '[':
			end := i + 1
			for end < len(runes) && runes[end] != ']' {
				end++
			}
			if end >= len(runes) {
				return i
			}
			i = end + 1
		default:
			return i
		}
	}
	return i
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}
