// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// RoomNoticeData holds data for the room lifecycle notices sent to staff.
type RoomNoticeData struct {
	SiteName   string
	GroupTitle string
	RoomName   string
	Action     string // "archived" or "deleted"
	When       string // e.g. "March 1, 2026"
	Trigger    string // "sweep" or "manual"
}

// BuildRoomNotice creates a room lifecycle notice with both HTML and text bodies.
func BuildRoomNotice(data RoomNoticeData) Email {
	return Email{
		To:       "", // Set by caller
		Subject:  fmt.Sprintf("[%s] Chat room %s: %s", data.SiteName, data.Action, data.GroupTitle),
		TextBody: buildRoomNoticeText(data),
		HTMLBody: buildRoomNoticeHTML(data),
	}
}

func buildRoomNoticeText(data RoomNoticeData) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("The chat room %q for %s was %s on %s.\n\n", data.RoomName, data.GroupTitle, data.Action, data.When))
	if data.Trigger == "sweep" {
		buf.WriteString("The room reached its expiry date and was closed by the daily sweep.\n")
	} else {
		buf.WriteString("The room was closed by a staff member.\n")
	}
	if data.Action == "archived" {
		buf.WriteString("Members can no longer post. Extending the expiry date reopens the room.\n")
	} else {
		buf.WriteString("The room and its membership records have been removed.\n")
	}
	return buf.String()
}

var roomNoticeTmpl = template.Must(template.New("roomnotice").Parse(roomNoticeHTMLTemplate))

func buildRoomNoticeHTML(data RoomNoticeData) string {
	var buf bytes.Buffer
	_ = roomNoticeTmpl.Execute(&buf, data)
	return buf.String()
}

const roomNoticeHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Chat room {{.Action}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 22px; font-weight: 600; color: #0f766e;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px; font-size: 16px; color: #374151; line-height: 1.5;">
              <p style="margin: 0 0 16px;">The chat room <strong>{{.RoomName}}</strong> for <strong>{{.GroupTitle}}</strong> was {{.Action}} on {{.When}}.</p>
              {{if eq .Trigger "sweep"}}<p style="margin: 0 0 16px;">It reached its expiry date and was closed by the daily sweep.</p>{{else}}<p style="margin: 0 0 16px;">It was closed by a staff member.</p>{{end}}
              {{if eq .Action "archived"}}<p style="margin: 0; color: #6b7280;">Extending the expiry date reopens the room.</p>{{end}}
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
