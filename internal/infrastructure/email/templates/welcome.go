// Package templates provides email template rendering
package templates

import (
	"bytes"
	"html/template"
	"log"
)

// WelcomeEmailProps carries the values rendered into the welcome email.
type WelcomeEmailProps struct {
	Name     string
	SiteName string
}

type welcomeTemplateData struct {
	Name     string
	SiteName string
}

var welcomeEmailTemplate = template.Must(template.New("welcomeEmail").Parse(`
<!doctype html>
<html lang="en">
  <head>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta http-equiv="Content-Type" content="text/html; charset=UTF-8">
    <title>Welcome</title>
  </head>
  <body style="font-family: Helvetica, sans-serif; -webkit-font-smoothing: antialiased; font-size: 16px; line-height: 1.3; background-color: #f4f5f6; margin: 0; padding: 0;">
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" width="100%" style="background-color: #f4f5f6;">
      <tr>
        <td>&nbsp;</td>
        <td style="max-width: 600px; padding: 24px; margin: 0 auto;" width="600">
          <div style="background: #ffffff; border-radius: 4px; padding: 24px;">
            <p style="margin: 0 0 16px;">Hi {{.Name}},</p>
            <p style="margin: 0 0 16px;">Thanks for subscribing to updates from {{.SiteName}}. We'll keep you posted with occasional news and insights.</p>
            <p style="margin: 0;">If this wasn't you, simply ignore this email.</p>
          </div>
        </td>
        <td>&nbsp;</td>
      </tr>
    </table>
  </body>
</html>`))

// GetWelcomeEmailContent renders the welcome email HTML.
func GetWelcomeEmailContent(props WelcomeEmailProps) string {
	name := props.Name
	if name == "" {
		name = "there"
	}

	var buf bytes.Buffer
	err := welcomeEmailTemplate.Execute(&buf, welcomeTemplateData{
		Name:     name,
		SiteName: props.SiteName,
	})
	if err != nil {
		log.Printf("ERROR: Failed to render welcome email template: %v", err)
		return ""
	}
	return buf.String()
}
