package email

import (
	"fmt"
	"html"
)

const resetSubject = "Reset your password"

// BuildResetEmail renders the password reset message for name and link.
func BuildResetEmail(name, resetURL string) (subject, htmlBody, textBody string) {
	greeting := "Hello,"
	if name != "" {
		greeting = fmt.Sprintf("Hello %s,", name)
	}

	textBody = fmt.Sprintf(
		"%s\n\nWe received a request to reset the password for your maintenance account.\n"+
			"Open this link to choose a new password:\n\n%s\n\n"+
			"If you did not ask for this, ignore this email. Your password stays the same.\n",
		greeting, resetURL,
	)

	htmlBody = renderBasicHTML(
		resetSubject,
		greeting,
		"We received a request to reset the password for your maintenance account. Click the button below to choose a new one.",
		"Reset password",
		resetURL,
	)
	return resetSubject, htmlBody, textBody
}

func renderBasicHTML(title, greeting, intro, buttonText, link string) string {
	escLink := html.EscapeString(link)

	return `<!doctype html>
<html>
  <body style="font-family:Arial,Helvetica,sans-serif; line-height:1.4;">
    <h2>` + html.EscapeString(title) + `</h2>
    <p>` + html.EscapeString(greeting) + `</p>
    <p>` + html.EscapeString(intro) + `</p>

    <p>
      <a href="` + escLink + `" style="display:inline-block; padding:10px 14px; text-decoration:none; border-radius:6px; background:#1f4e79; color:#fff;">
        ` + html.EscapeString(buttonText) + `
      </a>
    </p>

    <p style="color:#555; font-size:12px;">
      If the button doesn't work, open this link:<br/>
      <a href="` + escLink + `">` + escLink + `</a>
    </p>
    <p style="color:#999; font-size:12px;">If you did not request a reset, you can ignore this email.</p>
  </body>
</html>`
}
