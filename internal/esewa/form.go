package esewa

import (
	"html/template"
	"io"
)

var redirectTemplate = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Redirecting to eSewa</title></head>
<body onload="document.forms[0].submit()">
<form action="{{.Action}}" method="POST">
{{- range .Fields}}
<input type="hidden" name="{{.Name}}" value="{{.Value}}">
{{- end}}
<noscript><button type="submit">Continue to eSewa</button></noscript>
</form>
</body>
</html>
`))

// RenderForm writes an HTML page holding req as hidden inputs of a POST form
// targeting action. The form submits itself once the page loads.
func RenderForm(w io.Writer, action string, req PaymentRequest) error {
	return redirectTemplate.Execute(w, struct {
		Action string
		Fields []FormField
	}{
		Action: action,
		Fields: req.Fields(),
	})
}
