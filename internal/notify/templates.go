package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"opsconsole/internal/model"
)

const timeLayout = "02 Jan 2006 15:04 MST"

var decisionTmpl = template.Must(template.New("decision").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background: #f4f5f7; padding: 24px;">
  <div style="max-width: 560px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 24px;">
    <p style="color: #6b7280; margin: 0 0 8px;">{{.OrgName}}</p>
    <h2 style="margin: 0 0 16px;">{{.Label}} {{.Verb}}</h2>
    <span style="display: inline-block; padding: 4px 12px; border-radius: 12px; color: #ffffff; background: {{.BadgeColor}};">{{.Badge}}</span>
    <p style="font-size: 16px; margin: 16px 0;"><strong>{{.ItemName}}</strong></p>
    <p style="margin: 4px 0;">Submitted: {{.SubmittedAt}}</p>
    <p style="margin: 4px 0;">{{.Verb}}: {{.DecidedAt}}</p>
    <p style="margin: 4px 0;">{{.Verb}} by: {{.ActorName}}</p>
    {{if .AppURL}}<p style="margin-top: 24px;"><a href="{{.AppURL}}">Open the console</a></p>{{end}}
  </div>
</body>
</html>`))

var codeTmpl = template.Must(template.New("code").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background: #f4f5f7; padding: 24px;">
  <div style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 24px; text-align: center;">
    <h2>Your Verification Code</h2>
    <p style="font-size: 32px; letter-spacing: 8px; font-weight: bold;">{{.Code}}</p>
    <p style="color: #6b7280;">This code will expire in {{.Minutes}} minutes.</p>
    <p style="color: #6b7280;">If you did not request it, you can ignore this email.</p>
  </div>
</body>
</html>`))

// Decision describes a review outcome sent to the submitter.
type Decision struct {
	Status      model.Status
	Kind        model.Kind
	ItemName    string
	ActorName   string
	SubmittedAt time.Time
	DecidedAt   time.Time
	OrgName     string
	AppURL      string
}

// Subject renders e.g. "Price List Approved: Wholesale 2026".
func (d Decision) Subject() string {
	verb := "Rejected"
	if d.Status == model.StatusApproved {
		verb = "Approved"
	}
	return fmt.Sprintf("%s %s: %s", d.Kind.Label(), verb, d.ItemName)
}

// DecisionMessage renders the notification for d addressed to the submitter.
func DecisionMessage(toName, toEmail string, d Decision) (Message, error) {
	data := struct {
		Decision
		Label, Verb, Badge, BadgeColor string
		SubmittedAt, DecidedAt         string
	}{
		Decision:    d,
		Label:       d.Kind.Label(),
		Verb:        "Reviewed",
		Badge:       "REJECTED",
		BadgeColor:  "#dc2626",
		SubmittedAt: d.SubmittedAt.UTC().Format(timeLayout),
		DecidedAt:   d.DecidedAt.UTC().Format(timeLayout),
	}
	if d.Status == model.StatusApproved {
		data.Verb, data.Badge, data.BadgeColor = "Approved", "APPROVED", "#16a34a"
	}
	if data.ActorName == "" {
		data.ActorName = "an approver"
	}

	var buf bytes.Buffer
	if err := decisionTmpl.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render decision email: %w", err)
	}
	return Message{ToName: toName, ToEmail: toEmail, Subject: d.Subject(), Body: buf.String()}, nil
}

// CodeMessage renders the sign-in code email.
func CodeMessage(toEmail, code string, ttl time.Duration) (Message, error) {
	var buf bytes.Buffer
	err := codeTmpl.Execute(&buf, struct {
		Code    string
		Minutes int
	}{code, int(ttl.Minutes())})
	if err != nil {
		return Message{}, fmt.Errorf("render code email: %w", err)
	}
	return Message{ToEmail: toEmail, Subject: "Your Verification Code", Body: buf.String()}, nil
}
