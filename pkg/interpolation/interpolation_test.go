package interpolation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/weftwork/weft/pkg/models"
)

func testNodes() []*models.Node {
	return []*models.Node{
		{ID: "node-1", Name: "Trigger", Type: models.NodeTypeTrigger, Kind: models.KindManual},
		{ID: "node-2", Name: "AI Agent", Type: models.NodeTypeAction, Kind: models.KindAIAgent},
	}
}

func TestResolve_WholeValueKeepsNativeType(t *testing.T) {
	outputs := map[string]map[string]any{
		"node-2": {"output": map[string]any{"text": "hello", "tokens": float64(42)}},
	}

	resolved := Resolve(map[string]any{
		"message": "{{AI Agent.output.text}}",
		"count":   "{{node-2.output.tokens}}",
		"whole":   "{{node-2.output}}",
	}, outputs, testNodes())

	assert.Equal(t, "hello", resolved["message"])
	assert.Equal(t, float64(42), resolved["count"])
	assert.Equal(t, map[string]any{"text": "hello", "tokens": float64(42)}, resolved["whole"])
}

func TestResolve_InlineSubstitutionCoercesToString(t *testing.T) {
	outputs := map[string]map[string]any{
		"node-1": {"message": "manual trigger"},
		"node-2": {"output": map[string]any{"tokens": float64(42)}},
	}

	resolved := Resolve(map[string]any{
		"subject": "Hello {{Trigger.message}}!",
		"report":  "used {{node-2.output.tokens}} tokens",
	}, outputs, testNodes())

	assert.Equal(t, "Hello manual trigger!", resolved["subject"])
	assert.Equal(t, "used 42 tokens", resolved["report"])
}

func TestResolve_UnresolvableLeavesPlaceholderUntouched(t *testing.T) {
	outputs := map[string]map[string]any{
		"node-1": {"message": "manual trigger"},
	}

	resolved := Resolve(map[string]any{
		"unknownNode": "{{Nope.output.text}}",
		"missingPath": "{{Trigger.message.deeper.still}}",
		"inline":      "value: {{Trigger.missing}}",
	}, outputs, testNodes())

	assert.Equal(t, "{{Nope.output.text}}", resolved["unknownNode"])
	assert.Equal(t, "{{Trigger.message.deeper.still}}", resolved["missingPath"])
	assert.Equal(t, "value: {{Trigger.missing}}", resolved["inline"])
}

func TestResolve_WhitespaceTolerantPattern(t *testing.T) {
	outputs := map[string]map[string]any{
		"node-1": {"message": "manual trigger"},
	}

	resolved := Resolve(map[string]any{
		"subject": "{{  Trigger.message  }}",
	}, outputs, testNodes())

	assert.Equal(t, "manual trigger", resolved["subject"])
}

func TestResolve_NonStringParametersPassThrough(t *testing.T) {
	resolved := Resolve(map[string]any{
		"retries": 3,
		"nested":  map[string]any{"keep": "{{Trigger.message}}"},
	}, map[string]map[string]any{}, testNodes())

	assert.Equal(t, float64(3), resolved["retries"])
	assert.Equal(t, map[string]any{"keep": "{{Trigger.message}}"}, resolved["nested"])
}

func TestResolve_MultiplePlaceholdersInOneValue(t *testing.T) {
	outputs := map[string]map[string]any{
		"node-1": {"message": "manual trigger"},
		"node-2": {"output": map[string]any{"text": "done"}},
	}

	resolved := Resolve(map[string]any{
		"body": "{{Trigger.message}} -> {{AI Agent.output.text}}",
	}, outputs, testNodes())

	assert.Equal(t, "manual trigger -> done", resolved["body"])
}

func TestResolve_DoesNotMutateInputs(t *testing.T) {
	parameters := map[string]any{"subject": "{{Trigger.message}}"}
	outputs := map[string]map[string]any{
		"node-1": {"message": "manual trigger"},
	}

	_ = Resolve(parameters, outputs, testNodes())

	assert.Equal(t, "{{Trigger.message}}", parameters["subject"])
	assert.Equal(t, "manual trigger", outputs["node-1"]["message"])
}
