// Package notify sends the import report e-mail through Resend.
package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/resend/resend-go/v2"
)

// ImportReport is what an import completion e-mail describes.
type ImportReport struct {
	ImportID     string
	FiscalYear   string
	FileName     string
	SheetsFound  []string
	ProjectCount int
	Duplicates   int
	Errors       []string
	DryRun       bool
}

// Notifier announces finished imports.
type Notifier interface {
	ImportCompleted(ctx context.Context, report ImportReport) error
}

// emailSender is the part of the Resend client used here.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendNotifier e-mails import reports. A notifier without an API key
// logs and skips.
type ResendNotifier struct {
	emails     emailSender
	from       string
	recipients []string
	logger     *slog.Logger
}

// NewResendNotifier creates a notifier. An empty apiKey disables sending.
func NewResendNotifier(apiKey, from string, recipients []string, logger *slog.Logger) *ResendNotifier {
	n := &ResendNotifier{from: from, recipients: recipients, logger: logger}
	if apiKey != "" {
		n.emails = resend.NewClient(apiKey).Emails
	}
	return n
}

func (n *ResendNotifier) ImportCompleted(ctx context.Context, report ImportReport) error {
	if n.emails == nil || len(n.recipients) == 0 {
		n.logger.Debug("resend client not configured, skipping import report")
		return nil
	}

	_, err := n.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.from,
		To:      n.recipients,
		Subject: Subject(report),
		Html:    RenderHTML(report),
	})
	if err != nil {
		return fmt.Errorf("failed to send import report: %w", err)
	}
	return nil
}

// Subject summarises the report in one line.
func Subject(r ImportReport) string {
	status := "imported"
	if len(r.Errors) > 0 {
		status = "failed"
	} else if r.DryRun {
		status = "validated"
	}
	return fmt.Sprintf("[%s] %s %s: %d projects", r.FiscalYear, r.FileName, status, r.ProjectCount)
}

func RenderHTML(r ImportReport) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
`)
	fmt.Fprintf(&b, "<h2>Commissioning import %s</h2>\n", html.EscapeString(r.ImportID))
	fmt.Fprintf(&b, "<p>Fiscal year <b>%s</b>, file <b>%s</b></p>\n", html.EscapeString(r.FiscalYear), html.EscapeString(r.FileName))
	fmt.Fprintf(&b, "<p>%d projects stored, %d duplicates collapsed.</p>\n", r.ProjectCount, r.Duplicates)
	if len(r.SheetsFound) > 0 {
		b.WriteString("<p>Sheets:</p>\n<ul>\n")
		for _, s := range r.SheetsFound {
			fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(s))
		}
		b.WriteString("</ul>\n")
	}
	if len(r.Errors) > 0 {
		b.WriteString("<p>Errors:</p>\n<ul>\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(e))
		}
		b.WriteString("</ul>\n")
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}
