package mail

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"io"
	texttemplate "text/template"
	"time"
)

type InvitationData struct {
	To          string
	TeamName    string
	InviterName string
	Role        string
	AcceptURL   string
	ExpiresAt   time.Time
}

type AnalysisReadyData struct {
	To           string
	UserName     string
	DocumentName string
	DocumentType string
	RiskScore    int
	DocumentURL  string
}

const invitationText = `Hello,

{{.InviterName}} invited you to join the team "{{.TeamName}}" on LegisEye as {{.Role}}.

Accept the invitation: {{.AcceptURL}}

The invitation expires on {{.ExpiresAt.Format "2006-01-02 15:04 MST"}}.
`

const invitationHTML = `<p>Hello,</p>
<p>{{.InviterName}} invited you to join the team <strong>{{.TeamName}}</strong> on LegisEye as {{.Role}}.</p>
<p><a href="{{.AcceptURL}}">Accept the invitation</a></p>
<p>The invitation expires on {{.ExpiresAt.Format "2006-01-02 15:04 MST"}}.</p>
`

const analysisReadyText = `Hi {{.UserName}},

The analysis of "{{.DocumentName}}" is ready.
{{if .DocumentType}}Document type: {{.DocumentType}}
{{end}}Risk score: {{.RiskScore}}/100

Open it: {{.DocumentURL}}
`

const analysisReadyHTML = `<p>Hi {{.UserName}},</p>
<p>The analysis of <strong>{{.DocumentName}}</strong> is ready.</p>
<ul>
{{if .DocumentType}}<li>Document type: {{.DocumentType}}</li>{{end}}
<li>Risk score: {{.RiskScore}}/100</li>
</ul>
<p><a href="{{.DocumentURL}}">Open the document</a></p>
`

var (
	invitationTextTmpl    = texttemplate.Must(texttemplate.New("invitation.txt").Parse(invitationText))
	invitationHTMLTmpl    = htmltemplate.Must(htmltemplate.New("invitation.html").Parse(invitationHTML))
	analysisReadyTextTmpl = texttemplate.Must(texttemplate.New("analysis_ready.txt").Parse(analysisReadyText))
	analysisReadyHTMLTmpl = htmltemplate.Must(htmltemplate.New("analysis_ready.html").Parse(analysisReadyHTML))
)

func InvitationMessage(data InvitationData) (Message, error) {
	text, html, err := render(data, invitationTextTmpl.Execute, invitationHTMLTmpl.Execute)
	if err != nil {
		return Message{}, fmt.Errorf("render invitation mail failed: %w", err)
	}
	return Message{
		To:      data.To,
		Subject: fmt.Sprintf("You are invited to join %s on LegisEye", data.TeamName),
		Text:    text,
		HTML:    html,
	}, nil
}

func AnalysisReadyMessage(data AnalysisReadyData) (Message, error) {
	text, html, err := render(data, analysisReadyTextTmpl.Execute, analysisReadyHTMLTmpl.Execute)
	if err != nil {
		return Message{}, fmt.Errorf("render analysis mail failed: %w", err)
	}
	return Message{
		To:      data.To,
		Subject: fmt.Sprintf("Analysis ready: %s", data.DocumentName),
		Text:    text,
		HTML:    html,
	}, nil
}

type executeFunc = func(w io.Writer, data any) error

func render(data any, textFn, htmlFn executeFunc) (string, string, error) {
	var text, html bytes.Buffer
	if err := textFn(&text, data); err != nil {
		return "", "", err
	}
	if err := htmlFn(&html, data); err != nil {
		return "", "", err
	}
	return text.String(), html.String(), nil
}
