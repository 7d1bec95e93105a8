package notification

import (
	"bytes"
	htmltemplate "html/template"
	"log/slog"
	texttemplate "text/template"
)

// Rendered is a notice with its templates executed
type Rendered struct {
	Subject string
	Text    string
	Html    string
}

// Render executes the subject, text and HTML templates against data.
// Empty templates render to empty strings.
func Render(tmpl NoticeTemplate, data map[string]string) (Rendered, error) {
	var out Rendered
	var err error

	if out.Subject, err = renderText("subject", tmpl.Subject, data); err != nil {
		return Rendered{}, err
	}
	if out.Text, err = renderText("text", tmpl.Text, data); err != nil {
		return Rendered{}, err
	}
	if tmpl.Html != "" {
		t, err := htmltemplate.New("html").Option("missingkey=zero").Parse(tmpl.Html)
		if err != nil {
			slog.Error("Failed to parse HTML template", "err", err)
			return Rendered{}, err
		}
		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			slog.Error("Failed to execute HTML template", "err", err)
			return Rendered{}, err
		}
		out.Html = buf.String()
	}
	return out, nil
}

func renderText(name, text string, data map[string]string) (string, error) {
	if text == "" {
		return "", nil
	}
	t, err := texttemplate.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		slog.Error("Failed to parse text template", "name", name, "err", err)
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		slog.Error("Failed to execute text template", "name", name, "err", err)
		return "", err
	}
	return buf.String(), nil
}
