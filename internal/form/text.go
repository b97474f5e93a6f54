package form

import (
	"io"
	"strings"
	"text/template"
)

var textTmpl = template.Must(template.New("page").Funcs(template.FuncMap{
	"preview": previewText,
}).Parse(`OCT:    {{preview .OCTPreview}}
Fundus: {{preview .FundusPreview}}
{{- if .Error}}
Error: {{.Error}}
{{- end}}
{{- if .ShowResult}}
[{{.Result.BadgeText}}]
{{.Result.Heading}}
Confidence: {{.Result.BarWidth}}
{{.Result.ModelInfo}}
{{.Result.Explanation}}
{{- end}}
`))

// WriteText prints the page state for a terminal.
func WriteText(w io.Writer, s State) error {
	return textTmpl.Execute(w, s)
}

func previewText(img Image) string {
	switch {
	case img.Src == "":
		return "-"
	case strings.HasPrefix(img.Src, "data:"):
		return "(local preview)"
	default:
		return img.Src
	}
}
