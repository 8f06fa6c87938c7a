package mailer

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/k3a/html2text"
)

// HTML bodies per notification kind. The text/plain part sent over the
// wire is derived from the rendered HTML with html2text so the two never
// drift apart.
var emailTemplates = template.Must(template.New("emails").Parse(`
{{define "new_order"}}<html><body>
<h2>{{.Title}}</h2>
<p>{{.Body}}</p>
<p>View the order: <a href="{{.TargetURL}}">{{.TargetURL}}</a></p>
<p>You are receiving this because the order matches your delivery preferences.</p>
</body></html>{{end}}

{{define "proximity"}}<html><body>
<h2>{{.Title}}</h2>
<p>{{.Body}}</p>
<p>Open live tracking: <a href="{{.TargetURL}}">{{.TargetURL}}</a></p>
</body></html>{{end}}
`))

type emailData struct {
	Title     string
	Body      string
	TargetURL string
}

// renderHTML renders the HTML body for a notification kind. Unknown kinds
// fall back to the new_order layout rather than failing the send.
func renderHTML(kind, title, body, targetURL string) (string, error) {
	name := kind
	if emailTemplates.Lookup(name) == nil {
		name = "new_order"
	}

	var sb strings.Builder
	err := emailTemplates.ExecuteTemplate(&sb, name, emailData{
		Title:     title,
		Body:      body,
		TargetURL: targetURL,
	})
	if err != nil {
		return "", fmt.Errorf("rendering %s email: %w", name, err)
	}
	return sb.String(), nil
}

// renderText produces the plain-text message actually handed to the
// transport.
func renderText(kind, title, body, targetURL string) (string, error) {
	html, err := renderHTML(kind, title, body, targetURL)
	if err != nil {
		return "", err
	}
	return html2text.HTML2Text(html), nil
}
