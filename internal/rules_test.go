package internal

import (
	"testing"

	"eventpipe/pkg/event"
)

func docFromJSON(t *testing.T, payload string) *event.Document {
	t.Helper()
	doc, err := event.ParseDocument([]byte(payload))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}

// TestRuleEngineEvaluate tests that the rule engine correctly evaluates a simple rule.
func TestRuleEngineEvaluate(t *testing.T) {
	cfg := RulesConfig{
		Rules: []Rule{
			{When: "action == \"opened\"", Emit: EmitList{"auth.opened"}},
			{When: "action == \"closed\" && escalated == true", Emit: EmitList{"auth.escalated"}},
		},
	}

	engine, err := NewRuleEngine(cfg)
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	doc := docFromJSON(t, `{"action":"opened","escalated":false}`)

	matches := engine.Evaluate(doc)
	if len(matches) != 1 {
		t.Fatalf("expected 1 topic, got %d", len(matches))
	}
	if matches[0].Topic != "auth.opened" {
		t.Fatalf("expected topic auth.opened, got %q", matches[0].Topic)
	}
}

// TestRuleEngineEvaluateMissingField tests that a rule referencing an absent field never matches.
func TestRuleEngineEvaluateMissingField(t *testing.T) {
	cfg := RulesConfig{
		Rules: []Rule{
			{When: "missing == true", Emit: EmitList{"never"}},
		},
	}

	engine, err := NewRuleEngine(cfg)
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	matches := engine.Evaluate(docFromJSON(t, `{}`))
	if len(matches) != 0 {
		t.Fatalf("expected no topics, got %d", len(matches))
	}
}

// TestRuleEngineWithDrivers tests that matches carry the rule's driver list.
func TestRuleEngineWithDrivers(t *testing.T) {
	cfg := RulesConfig{
		Rules: []Rule{
			{When: "action == \"opened\"", Emit: EmitList{"auth.opened"}, Drivers: []string{"amqp", "http"}},
		},
	}

	engine, err := NewRuleEngine(cfg)
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	matches := engine.Evaluate(docFromJSON(t, `{"action":"opened"}`))
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if len(matches[0].Drivers) != 2 {
		t.Fatalf("expected 2 drivers, got %d", len(matches[0].Drivers))
	}
}

// TestRuleEngineMultipleEmit tests that one fired rule emits one match per topic.
func TestRuleEngineMultipleEmit(t *testing.T) {
	cfg := RulesConfig{
		Rules: []Rule{
			{When: "level > 5", Emit: EmitList{"alerts.high", "alerts.audit"}},
		},
	}

	engine, err := NewRuleEngine(cfg)
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	matches := engine.Evaluate(docFromJSON(t, `{"level": 7}`))
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Topic != "alerts.high" || matches[1].Topic != "alerts.audit" {
		t.Fatalf("unexpected topics: %v", matches)
	}
}

// TestRuleEngineJSONPathDot tests a JSONPath expression with dot notation.
func TestRuleEngineJSONPathDot(t *testing.T) {
	cfg := RulesConfig{
		Rules: []Rule{
			{When: "$.event.outcome == \"failure\"", Emit: EmitList{"auth.failed"}},
		},
	}

	engine, err := NewRuleEngine(cfg)
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	matches := engine.Evaluate(docFromJSON(t, `{"event":{"outcome":"failure"}}`))
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
}

// TestRuleEngineJSONPathIndex tests a JSONPath expression with an index.
func TestRuleEngineJSONPathIndex(t *testing.T) {
	cfg := RulesConfig{
		Rules: []Rule{
			{When: "$.alerts[0].level > 5", Emit: EmitList{"alerts.high"}},
		},
	}

	engine, err := NewRuleEngine(cfg)
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	matches := engine.Evaluate(docFromJSON(t, `{"alerts":[{"level":9}]}`))
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
}

// TestRuleEngineBarePaths tests bare dotted and indexed field references.
func TestRuleEngineBarePaths(t *testing.T) {
	cfg := RulesConfig{
		Rules: []Rule{
			{When: "action == \"opened\" && event.outcome == \"failure\"", Emit: EmitList{"auth.failed"}},
			{When: "alerts[0].level > 5", Emit: EmitList{"alerts.any"}},
		},
	}

	engine, err := NewRuleEngine(cfg)
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	doc := docFromJSON(t, `{"action":"opened","event":{"outcome":"failure"},"alerts":[{"level":9}]}`)

	matches := engine.Evaluate(doc)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
}

// TestRuleEngineStrictMissing tests that strict mode never matches on missing fields.
func TestRuleEngineStrictMissing(t *testing.T) {
	cfg := RulesConfig{
		Rules: []Rule{
			{When: "missing_field == true", Emit: EmitList{"never"}},
			{When: "missing.nested == true", Emit: EmitList{"never"}},
		},
		Strict: true,
	}

	engine, err := NewRuleEngine(cfg)
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	matches := engine.Evaluate(docFromJSON(t, `{"action":"opened"}`))
	if len(matches) != 0 {
		t.Fatalf("expected no matches in strict mode, got %d", len(matches))
	}
}

func TestRuleEngineFunctions(t *testing.T) {
	cfg := RulesConfig{
		Rules: []Rule{
			{When: `contains(tags, "bruteforce")`, Emit: EmitList{"tag.bruteforce"}},
			{When: `like(host, "web-%")`, Emit: EmitList{"host.web"}},
		},
	}

	engine, err := NewRuleEngine(cfg)
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	doc := docFromJSON(t, `{"tags":["bruteforce","ssh"],"host":"web-03"}`)

	matches := engine.Evaluate(doc)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
}

// TestRewriteExpressionLeavesLiterals tests that string literals survive rewriting.
func TestRewriteExpressionLeavesLiterals(t *testing.T) {
	rewritten, bindings := rewriteExpression(`event.outcome == "a.b[0]"`)
	if len(bindings) != 1 {
		t.Fatalf("expected 1 binding, got %d", len(bindings))
	}
	for name, path := range bindings {
		if path != "event.outcome" {
			t.Fatalf("expected binding path event.outcome, got %q", path)
		}
		if rewritten != name+` == "a.b[0]"` {
			t.Fatalf("unexpected rewrite: %q", rewritten)
		}
	}
}
