package markup

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "fppgen.dev/pkg/fppgen/internal/model"
)

func extract(t *testing.T, text string) m.RegionMap {
	t.Helper()

	regions, err := NewExtractor(nil).Extract(tokenize(t, text))
	require.NoError(t, err)

	return regions
}

func TestExtract_NoRegions(t *testing.T) {
	regions := extract(t, "def f(x):\n    # note\n    return ?x + 1?  #3given\n")

	assert.Equal(t, "def f(x):\n    # note\n    return x + 1", regions[m.RegionAnswerCode])
	assert.Equal(t, "def f(x):\n    return !BLANK  #3given", regions[m.RegionPromptCode])
	assert.NotContains(t, regions, m.RegionQuestionText)
}

func TestExtract_Comments(t *testing.T) {
	tests := []struct {
		name     string
		comment  string
		inAnswer bool
		inPrompt bool
	}{
		{"plain comment", "# note", true, false},
		{"given comment", "#3given", false, true},
		{"blank comment", "#blank x = ?", false, true},
		{"given needs digits", "#given", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regions := extract(t, "x = 1 "+tt.comment+"\n")

			assert.Equal(t, tt.inAnswer, strings.Contains(regions[m.RegionAnswerCode], tt.comment))
			assert.Equal(t, tt.inPrompt, strings.Contains(regions[m.RegionPromptCode], tt.comment))
		})
	}
}

func TestExtract_Docstrings(t *testing.T) {
	t.Run("leading docstring becomes question text", func(t *testing.T) {
		regions := extract(t, "\"\"\"Add one.\"\"\"\ndef f(x):\n    return x + 1\n")

		assert.Equal(t, "Add one.", regions[m.RegionQuestionText])
		assert.Equal(t, "def f(x):\n    return x + 1", regions[m.RegionAnswerCode])
		assert.Equal(t, "def f(x):\n    return x + 1", regions[m.RegionPromptCode])
	})

	t.Run("later docstring is code", func(t *testing.T) {
		regions := extract(t, "x = 1\n\"\"\"Add one.\"\"\"\n")

		assert.Equal(t, "x = 1\n\"\"\"Add one.\"\"\"", regions[m.RegionAnswerCode])
		assert.Equal(t, "x = 1\n\"\"\"Add one.\"\"\"", regions[m.RegionPromptCode])
		assert.NotContains(t, regions, m.RegionQuestionText)
	})

	t.Run("explicit region before docstring", func(t *testing.T) {
		regions := extract(t, "## question_text ##\nExplicit.\n## question_text ##\n\"\"\"Implicit.\"\"\"\nx\n")

		assert.Equal(t, "Explicit.\nImplicit.", regions[m.RegionQuestionText])
		assert.Equal(t, "x", regions[m.RegionAnswerCode])
	})

	t.Run("docstring before explicit region", func(t *testing.T) {
		regions := extract(t, "\"\"\"Implicit.\"\"\"\n## question_text ##\nExplicit.\n## question_text ##\nx\n")

		assert.Equal(t, "Implicit.\nExplicit.", regions[m.RegionQuestionText])
	})
}

func TestExtract_Regions(t *testing.T) {
	regions := extract(t, "## setup_code ##\nimport math   \n## setup_code ##\n"+
		"x = math.pi\n## notes.txt ##\n  keep   \n\n  this\n## notes.txt ##\n")

	assert.Equal(t, "import math", regions[m.RegionSetupCode])
	assert.Equal(t, "keep\n\n  this", regions["notes.txt"])
	assert.Equal(t, "x = math.pi", regions[m.RegionAnswerCode])
	assert.Equal(t, "x = math.pi", regions[m.RegionPromptCode])
}

func TestExtract_StringsKeepBlanksAndHashes(t *testing.T) {
	regions := extract(t, "print('?not a blank? # nor comment')\n")

	assert.Equal(t, "print('?not a blank? # nor comment')", regions[m.RegionAnswerCode])
	assert.Equal(t, "print('?not a blank? # nor comment')", regions[m.RegionPromptCode])
}

func TestExtract_CustomBlankEmptyCapture(t *testing.T) {
	stream, err := NewTokenizer(nil, nil).Tokenize(context.Background(), "q.py",
		"---\nblankDelimiter: '@@(.*?)@@'\n---\nx = 1\ny = @@@@\n")
	require.NoError(t, err)

	_, err = NewExtractor(nil).Extract(stream)

	var markupErr *m.MarkupError
	require.ErrorAs(t, err, &markupErr)
	assert.Equal(t, 5, markupErr.Line)
	assert.Equal(t, m.Path("q.py"), markupErr.Path)
}

func TestExtract_ImportRegion(t *testing.T) {
	reader := mapReader{"q/Gemfile.lock": "GEM\n  specs:\n"}

	stream, err := NewTokenizer(reader, nil).Tokenize(context.Background(), "q/source.rb",
		"## import Gemfile.lock as Gemfile.lock ##\nputs 1\n")
	require.NoError(t, err)

	regions, err := NewExtractor(nil).Extract(stream)
	require.NoError(t, err)

	assert.Equal(t, "GEM\n  specs:", regions["Gemfile.lock"])
	assert.Equal(t, "puts 1", regions[m.RegionAnswerCode])
}

func TestFinalize(t *testing.T) {
	assert.Equal(t, "a\n\n b", finalize("\n a  \r\n\t\n b \n", false))
	assert.Equal(t, "a\nb", finalize("a  \n   \nb\n", true))
}
