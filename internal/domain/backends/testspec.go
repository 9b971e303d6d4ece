package backends

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"

	m "fppgen.dev/pkg/fppgen/internal/model"
)

// TestDefault is the test.py written when the test region is empty.
const TestDefault = `# AUTO-GENERATED FILE
# go to https://prairielearn.readthedocs.io/en/latest/python-grader/#teststestpy for more info

from pl_helpers import name, points
from pl_unit_test import PLTestCase
from code_feedback import Feedback


class Test(PLTestCase):
    @points(1)
    @name("solution runs")
    def test_0(self):
        Feedback.set_score(1)
`

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// TestSpec is the JSON form of a python test region.
type TestSpec struct {
	Imports []string   `json:"imports,omitempty"`
	Tests   []TestCase `json:"tests"`
}

// TestCase calls Function with Args and KWArgs and compares the result with
// Expected, or with the reference solution when Expected is absent.
type TestCase struct {
	Name     string          `json:"name"`
	Points   *float64        `json:"points,omitempty"`
	Function string          `json:"function"`
	Args     []any           `json:"args,omitempty"`
	KWArgs   map[string]any  `json:"kwargs,omitempty"`
	Expected json.RawMessage `json:"expected,omitempty"`
}

type compiledCase struct {
	Index    int
	Name     string
	Points   string
	Function string
	Call     string
	CallArgs string
	Expected string
}

var testSpecTemplate = template.Must(template.New("test.py").Funcs(template.FuncMap{
	"py": strconv.Quote,
}).Parse(`# AUTO-GENERATED FILE
# compiled from test_source.json

from pl_helpers import name, points
from pl_unit_test import PLTestCase
from code_feedback import Feedback
{{- range .Imports}}
import {{.}}
{{- end}}


class Test(PLTestCase):
{{- range .Cases}}
    @points({{.Points}})
    @name({{py .Name}})
    def test_{{.Index}}(self):
        expected = {{.Expected}}
        actual = Feedback.call_user(self.st.{{.Function}}{{.CallArgs}})
        if actual == expected:
            Feedback.set_score(1)
        else:
            Feedback.add_feedback({{py .Call}} + " returned " + repr(actual) + ", expected " + repr(expected))
            Feedback.set_score(0)
{{ end -}}
`))

// CompileTestSpec compiles a JSON test spec into a python test script. Any
// failure wraps m.ErrRecoverableCompile.
func CompileTestSpec(text string) (string, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	dec.DisallowUnknownFields()

	var spec TestSpec
	if err := dec.Decode(&spec); err != nil {
		return "", fmt.Errorf("%w: %v", m.ErrRecoverableCompile, err)
	}

	if dec.More() {
		return "", fmt.Errorf("%w: trailing data after test spec", m.ErrRecoverableCompile)
	}

	if len(spec.Tests) == 0 {
		return "", fmt.Errorf("%w: test spec has no tests", m.ErrRecoverableCompile)
	}

	for _, imp := range spec.Imports {
		if !identifierPattern.MatchString(imp) {
			return "", fmt.Errorf("%w: invalid import %q", m.ErrRecoverableCompile, imp)
		}
	}

	cases := make([]compiledCase, 0, len(spec.Tests))

	for i, tc := range spec.Tests {
		c, err := compileCase(i, tc)
		if err != nil {
			return "", fmt.Errorf("%w: test %d: %v", m.ErrRecoverableCompile, i, err)
		}

		cases = append(cases, c)
	}

	var buf bytes.Buffer

	err := testSpecTemplate.Execute(&buf, struct {
		Imports []string
		Cases   []compiledCase
	}{spec.Imports, cases})
	if err != nil {
		return "", fmt.Errorf("%w: %v", m.ErrRecoverableCompile, err)
	}

	return buf.String(), nil
}

func compileCase(i int, tc TestCase) (compiledCase, error) {
	if !identifierPattern.MatchString(tc.Function) {
		return compiledCase{}, fmt.Errorf("invalid function %q", tc.Function)
	}

	points := "1"
	if tc.Points != nil {
		if *tc.Points < 0 {
			return compiledCase{}, fmt.Errorf("negative points %v", *tc.Points)
		}

		points = strconv.FormatFloat(*tc.Points, 'g', -1, 64)
	}

	args := make([]string, 0, len(tc.Args)+len(tc.KWArgs))

	for _, arg := range tc.Args {
		lit, err := pyLiteral(arg)
		if err != nil {
			return compiledCase{}, err
		}

		args = append(args, lit)
	}

	keys := make([]string, 0, len(tc.KWArgs))
	for k := range tc.KWArgs {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		if !identifierPattern.MatchString(k) || strings.Contains(k, ".") {
			return compiledCase{}, fmt.Errorf("invalid keyword argument %q", k)
		}

		lit, err := pyLiteral(tc.KWArgs[k])
		if err != nil {
			return compiledCase{}, err
		}

		args = append(args, k+"="+lit)
	}

	joined := strings.Join(args, ", ")

	callArgs := ""
	if joined != "" {
		callArgs = ", " + joined
	}

	expected := "self.ref." + tc.Function + "(" + joined + ")"

	if len(tc.Expected) > 0 {
		dec := json.NewDecoder(bytes.NewReader(tc.Expected))
		dec.UseNumber()

		var v any
		if err := dec.Decode(&v); err != nil {
			return compiledCase{}, err
		}

		lit, err := pyLiteral(v)
		if err != nil {
			return compiledCase{}, err
		}

		expected = lit
	}

	name := tc.Name
	if name == "" {
		name = tc.Function + "(" + joined + ")"
	}

	return compiledCase{
		Index:    i,
		Name:     name,
		Points:   points,
		Function: tc.Function,
		Call:     tc.Function + "(" + joined + ")",
		CallArgs: callArgs,
		Expected: expected,
	}, nil
}

// pyLiteral renders a decoded JSON value as a python literal.
func pyLiteral(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "None", nil
	case bool:
		if val {
			return "True", nil
		}

		return "False", nil
	case json.Number:
		return val.String(), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case string:
		return strconv.Quote(val), nil
	case []any:
		items := make([]string, 0, len(val))

		for _, item := range val {
			lit, err := pyLiteral(item)
			if err != nil {
				return "", err
			}

			items = append(items, lit)
		}

		return "[" + strings.Join(items, ", ") + "]", nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		items := make([]string, 0, len(val))

		for _, k := range keys {
			lit, err := pyLiteral(val[k])
			if err != nil {
				return "", err
			}

			items = append(items, strconv.Quote(k)+": "+lit)
		}

		return "{" + strings.Join(items, ", ") + "}", nil
	default:
		return "", fmt.Errorf("unsupported value %v", v)
	}
}
