package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"

	"taskscribe/config"
)

type EmailData struct {
	Subject   string
	To        []string
	CC        []string
	BCC       []string
	Template  string
	Data      interface{}
	Year      int
	FromName  string
	FromEmail string
}

// Embedded email templates
var emailTemplates = map[string]string{
	"no_more_tasks": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>No more available tasks</h2>
    </div>

    <div class="content">
        <p>Hello,</p>
        <p>Every task of the campaign <strong>{{.CampaignName}}</strong> has now been assigned.
        Contributors asking to join will not receive any new task.</p>
        <p>You can add more elements to the campaign, raise the number of contributors per task,
        or close the campaign once the remaining work is done.</p>
        <p style="text-align: center;"><a href="{{.CampaignLink}}">Open the campaign</a></p>
    </div>

    <div class="footer">
        <p>You received this email because you manage this project.</p>
        <p>© {{.Year}} Taskscribe. All rights reserved.</p>
    </div>
</body>
</html>`,

	"task_comment": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .comment { border-left: 3px solid #3498db; padding: 10px 15px; margin: 20px 0; background: #f8f9fa; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>New message on a task</h2>
    </div>

    <div class="content">
        <p>Hello,</p>
        <p><strong>{{.AuthorName}}</strong> left a message on a task of the campaign
        <strong>{{.CampaignName}}</strong>:</p>
        <div class="comment">{{.Body}}</div>
        <p style="text-align: center;"><a href="{{.TaskLink}}">Open the task</a></p>
    </div>

    <div class="footer">
        <p>You received this email because you take part in this task's discussion.</p>
        <p>© {{.Year}} Taskscribe. All rights reserved.</p>
    </div>
</body>
</html>`,

	"daily_stats": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        table { border-collapse: collapse; width: 100%; }
        th, td { border: 1px solid #eee; padding: 8px; text-align: left; }
        th { background: #f8f9fa; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Yesterday on {{.CampaignName}}</h2>
    </div>

    <div class="content">
        <p>Hello,</p>
        <p>Here is what happened on your campaign on {{.Date}}:</p>
        <table>
            <tr><th>Annotated</th><td>{{.Annotated}}</td></tr>
            <tr><th>Skipped</th><td>{{.Skipped}}</td></tr>
            <tr><th>Validated</th><td>{{.Validated}}</td></tr>
            <tr><th>Rejected</th><td>{{.Rejected}}</td></tr>
            <tr><th>New contributors</th><td>{{.Joined}}</td></tr>
        </table>
    </div>

    <div class="footer">
        <p>You received this email because you manage this project.</p>
        <p>© {{.Year}} Taskscribe. All rights reserved.</p>
    </div>
</body>
</html>`,

	"password_reset": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .button { display: inline-block; padding: 10px 20px; background-color: #3498db; color: white; text-decoration: none; border-radius: 4px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Password Reset Request</h2>
    </div>

    <div class="content">
        <p>Hello,</p>
        <p>We received a request to reset your password. Click the button below to proceed:</p>

        <p style="text-align: center;">
            <a href="{{.ResetLink}}" class="button">Reset Password</a>
        </p>

        <p>If you didn't request a password reset, please ignore this email. This link will expire in 24 hours.</p>
    </div>

    <div class="footer">
        <p>For security reasons, don't share this link with anyone.</p>
        <p>© {{.Year}} Taskscribe. All rights reserved.</p>
    </div>
</body>
</html>`,
}

func SendEmail(data EmailData) error {
	if data.FromEmail == "" {
		data.FromEmail = config.AppConfig.FromEmail
	}
	if data.FromName == "" {
		data.FromName = "Taskscribe"
	}
	if data.Year == 0 {
		data.Year = time.Now().Year()
	}

	tmplContent, ok := emailTemplates[data.Template]
	if !ok {
		return fmt.Errorf("template '%s' not found", data.Template)
	}

	tmpl, err := template.New("email").Parse(tmplContent)
	if err != nil {
		return fmt.Errorf("error parsing template: %v", err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data.Data); err != nil {
		return fmt.Errorf("error executing template: %v", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", data.FromName, data.FromEmail))
	m.SetHeader("To", data.To...)
	if len(data.CC) > 0 {
		m.SetHeader("Cc", data.CC...)
	}
	if len(data.BCC) > 0 {
		m.SetHeader("Bcc", data.BCC...)
	}
	m.SetHeader("Subject", data.Subject)
	m.SetBody("text/html", body.String())

	d := gomail.NewDialer(
		config.AppConfig.SMTPHost,
		config.AppConfig.SMTPPort,
		config.AppConfig.SMTPUsername,
		config.AppConfig.SMTPPassword,
	)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("error sending email: %v", err)
	}

	return nil
}

// SendNoMoreTasksEmail warns a campaign's managers that every task has
// been assigned.
func SendNoMoreTasksEmail(recipients []string, campaignName, campaignLink string) error {
	return SendEmail(EmailData{
		Subject:  fmt.Sprintf("No more available tasks on %s", campaignName),
		To:       recipients,
		Template: "no_more_tasks",
		Data: map[string]interface{}{
			"Subject":      fmt.Sprintf("No more available tasks on %s", campaignName),
			"CampaignName": campaignName,
			"CampaignLink": campaignLink,
			"Year":         time.Now().Year(),
		},
	})
}

// SendTaskCommentEmail notifies the other participants of a task's
// discussion that a new message was posted.
func SendTaskCommentEmail(recipients []string, authorName, campaignName, body, taskLink string) error {
	return SendEmail(EmailData{
		Subject:  fmt.Sprintf("New message on a task of %s", campaignName),
		To:       recipients,
		Template: "task_comment",
		Data: map[string]interface{}{
			"Subject":      fmt.Sprintf("New message on a task of %s", campaignName),
			"AuthorName":   authorName,
			"CampaignName": campaignName,
			"Body":         body,
			"TaskLink":     taskLink,
			"Year":         time.Now().Year(),
		},
	})
}

// DailyStats aggregates one day of activity on a campaign.
type DailyStats struct {
	CampaignName string
	Date         string
	Annotated    int64
	Skipped      int64
	Validated    int64
	Rejected     int64
	Joined       int64
}

// SendDailyStatsEmail sends yesterday's activity summary to a campaign's
// managers.
func SendDailyStatsEmail(recipients []string, stats DailyStats) error {
	return SendEmail(EmailData{
		Subject:  fmt.Sprintf("Yesterday on %s", stats.CampaignName),
		To:       recipients,
		Template: "daily_stats",
		Data: map[string]interface{}{
			"Subject":      fmt.Sprintf("Yesterday on %s", stats.CampaignName),
			"CampaignName": stats.CampaignName,
			"Date":         stats.Date,
			"Annotated":    stats.Annotated,
			"Skipped":      stats.Skipped,
			"Validated":    stats.Validated,
			"Rejected":     stats.Rejected,
			"Joined":       stats.Joined,
			"Year":         time.Now().Year(),
		},
	})
}
