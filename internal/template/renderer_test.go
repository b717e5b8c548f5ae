package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTokens(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		variables map[string]string
		expected  string
	}{
		{
			name:      "plain substitution",
			text:      "hello {{name}}",
			variables: map[string]string{"name": "world"},
			expected:  "hello world",
		},
		{
			name:      "upper filter",
			text:      "{{x|upper}}",
			variables: map[string]string{"x": "ab"},
			expected:  "AB",
		},
		{
			name:      "lower filter",
			text:      "{{x|lower}}",
			variables: map[string]string{"x": "AB"},
			expected:  "ab",
		},
		{
			name:      "title filter on snake case",
			text:      "{{x|title}}",
			variables: map[string]string{"x": "my_snake_case"},
			expected:  "MySnakeCase",
		},
		{
			name:      "title filter on kebab case",
			text:      "{{x|title}}",
			variables: map[string]string{"x": "my-agent-name"},
			expected:  "MyAgentName",
		},
		{
			name:      "unresolved token left unchanged",
			text:      "{{undefined}}",
			variables: map[string]string{},
			expected:  "{{undefined}}",
		},
		{
			name:      "unresolved token with filter left unchanged",
			text:      "{{undefined|upper}}",
			variables: map[string]string{},
			expected:  "{{undefined|upper}}",
		},
		{
			name:      "unknown filter left unchanged",
			text:      "{{x|reverse}}",
			variables: map[string]string{"x": "ab"},
			expected:  "{{x|reverse}}",
		},
		{
			name:      "multiple tokens",
			text:      "class {{name|title}}: # {{name}} by {{author}}",
			variables: map[string]string{"name": "pdf_search", "author": "team"},
			expected:  "class PdfSearch: # pdf_search by team",
		},
		{
			name:      "whitespace inside token",
			text:      "{{ name }}",
			variables: map[string]string{"name": "x"},
			expected:  "x",
		},
		{
			name:      "non-token braces untouched",
			text:      "d = {{'a': 1}}",
			variables: map[string]string{"a": "x"},
			expected:  "d = {{'a': 1}}",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, RenderTokens(test.text, test.variables))
		})
	}
}

func TestRenderLilypad(t *testing.T) {
	text := "import mirascope\n" +
		"import lilypad  " + LilypadSentinel + "\n" +
		"\n" +
		"@lilypad.generation()  " + LilypadSentinel + "\n" +
		"def answer(question: str): ..."

	t.Run("disabled drops sentinel lines entirely", func(t *testing.T) {
		out := Render(text, nil, false)
		assert.Equal(t, "import mirascope\n\ndef answer(question: str): ...", out)
	})

	t.Run("enabled keeps lines with sentinel stripped", func(t *testing.T) {
		out := Render(text, nil, true)
		assert.Equal(t, "import mirascope\nimport lilypad\n\n@lilypad.generation()\ndef answer(question: str): ...", out)
	})
}

func TestRenderCombined(t *testing.T) {
	text := "provider = \"{{provider}}\"\n" +
		"trace({{name|title}})  " + LilypadSentinel
	out := Render(text, map[string]string{"provider": "openai", "name": "my_agent"}, true)
	assert.Equal(t, "provider = \"openai\"\ntrace(MyAgent)", out)
}
