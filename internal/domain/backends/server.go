package backends

import (
	"bytes"
	"strconv"
	"text/template"

	m "fppgen.dev/pkg/fppgen/internal/model"
)

var serverTemplate = template.Must(template.New("server.py").Funcs(template.FuncMap{
	"py": strconv.Quote,
}).Parse(`# AUTO-GENERATED FILE
# go to https://prairielearn.readthedocs.io/en/latest/python-grader/#serverpy for more info

def generate(data):
    # Define incoming variables here
    names_for_user = [
{{- range .Provided}}
        {"name": {{py .ID}}, "description": {{py .Description}}, "type": {{py .Annotation}}},
{{- end}}
    ]
    # Define outgoing variables here
    names_from_user = [
{{- range .Required}}
        {"name": {{py .ID}}, "description": {{py .Description}}, "type": {{py .Annotation}}},
{{- end}}
    ]

    data["params"]["names_for_user"] = names_for_user
    data["params"]["names_from_user"] = names_from_user

    return data
`))

// ServerDefault is the server.py written when no names are documented.
var ServerDefault = RenderServer(nil, nil)

// RenderServer renders a server.py documenting the names the question provides
// to and requires from the student.
func RenderServer(provided, required []m.AnnotatedName) string {
	var buf bytes.Buffer

	data := struct {
		Provided []m.AnnotatedName
		Required []m.AnnotatedName
	}{provided, required}

	if err := serverTemplate.Execute(&buf, data); err != nil {
		panic(err)
	}

	return buf.String()
}
