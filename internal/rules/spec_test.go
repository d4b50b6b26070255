package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/spigell/helper-matcher/internal/staffing"
)

func TestDecodeSpecFromYAML(t *testing.T) {
	t.Parallel()

	doc := `
name: older_but_experienced
reason: Experience offsets age
condition:
  kind: all
  conditions:
    - {kind: age_above, value: 40}
    - {kind: has_skill, category: Cooking}
action: {kind: add_age_weight, value: "0.5"}
`
	var spec Spec
	require.NoError(t, yaml.Unmarshal([]byte(doc), &spec))

	rule, err := DecodeSpec(spec, SourceJob)
	require.NoError(t, err)

	assert.Equal(t, "older_but_experienced", rule.Name)
	assert.Equal(t, SourceJob, rule.Source)
	assert.Equal(t, All(AgeAbove(40), HasSkill(staffing.CategoryCooking)), rule.When)
	assert.Equal(t, AddAgeWeight(0.5), rule.Then)
}

func TestDecodeSpecRejectsUntrustedInput(t *testing.T) {
	t.Parallel()

	action := map[string]any{"kind": "add_weight", "value": 0.1}
	tests := []struct {
		name string
		spec Spec
	}{
		{name: "no name", spec: Spec{"condition": map[string]any{"kind": "verified"}, "action": action}},
		{name: "unknown key", spec: Spec{"name": "x", "eval": "os.Exit(1)", "condition": map[string]any{"kind": "verified"}, "action": action}},
		{name: "unknown condition", spec: Spec{"name": "x", "condition": map[string]any{"kind": "script"}, "action": action}},
		{name: "missing value", spec: Spec{"name": "x", "condition": map[string]any{"kind": "age_above"}, "action": action}},
		{name: "unexpected value", spec: Spec{"name": "x", "condition": map[string]any{"kind": "verified", "value": 1}, "action": action}},
		{name: "unknown category", spec: Spec{"name": "x", "condition": map[string]any{"kind": "has_skill", "category": "gardening"}, "action": action}},
		{name: "unknown action", spec: Spec{"name": "x", "condition": map[string]any{"kind": "verified"}, "action": map[string]any{"kind": "multiply", "value": 0.1}}},
		{name: "magnitude too large", spec: Spec{"name": "x", "condition": map[string]any{"kind": "verified"}, "action": map[string]any{"kind": "add_weight", "value": 5}}},
		{name: "negative magnitude", spec: Spec{"name": "x", "condition": map[string]any{"kind": "verified"}, "action": map[string]any{"kind": "penalty", "value": -0.2}}},
		{name: "not with two children", spec: Spec{"name": "x", "condition": map[string]any{
			"kind":       "not",
			"conditions": []any{map[string]any{"kind": "verified"}, map[string]any{"kind": "verified"}},
		}, "action": action}},
		{name: "too deep", spec: Spec{"name": "x", "condition": nest(5), "action": action}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeSpec(tt.spec, SourceJob)
			assert.ErrorIs(t, err, ErrInvalidSpec)
		})
	}
}

func TestDecodeSpecAllowsMaxDepth(t *testing.T) {
	t.Parallel()

	_, err := DecodeSpec(Spec{"name": "deep", "condition": nest(MaxDepth), "action": map[string]any{"kind": "penalty", "value": 0.1}}, SourceJob)
	assert.NoError(t, err)
}

func TestDecodeSpecsKeepsValidRules(t *testing.T) {
	t.Parallel()

	specs := []Spec{
		{"name": "ok", "condition": map[string]any{"kind": "verified"}, "action": map[string]any{"kind": "add_weight", "value": 0.02}},
		{"name": "broken"},
	}
	rules, errs := DecodeSpecs(specs, SourceJob)
	require.Len(t, rules, 1)
	require.Len(t, errs, 1)
	assert.Equal(t, "ok", rules[0].Name)
}

// nest builds a chain of "not" conditions of the given total depth.
func nest(depth int) map[string]any {
	cond := map[string]any{"kind": "verified"}
	for i := 1; i < depth; i++ {
		cond = map[string]any{"kind": "not", "conditions": []any{cond}}
	}
	return cond
}
