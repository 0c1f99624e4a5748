package notify

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []*resend.SendEmailRequest
	err  error
}

func (f *fakeSender) SendWithContext(_ context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.sent = append(f.sent, params)
	if f.err != nil {
		return nil, f.err
	}
	return &resend.SendEmailResponse{Id: "email-1"}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestResendNotifier_SkipsWithoutKey(t *testing.T) {
	n := NewResendNotifier("", "from@example.com", []string{"ops@example.com"}, testLogger())
	assert.NoError(t, n.ImportCompleted(context.Background(), ImportReport{FiscalYear: "FY2025-26"}))
}

func TestResendNotifier_Sends(t *testing.T) {
	sender := &fakeSender{}
	n := &ResendNotifier{emails: sender, from: "from@example.com", recipients: []string{"ops@example.com"}, logger: testLogger()}

	report := ImportReport{
		ImportID:     "abc",
		FiscalYear:   "FY2025-26",
		FileName:     "tracker.xlsx",
		SheetsFound:  []string{"Summary <Linked>"},
		ProjectCount: 42,
	}
	require.NoError(t, n.ImportCompleted(context.Background(), report))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"ops@example.com"}, msg.To)
	assert.Equal(t, "[FY2025-26] tracker.xlsx imported: 42 projects", msg.Subject)
	assert.Contains(t, msg.Html, "Summary &lt;Linked&gt;")
}

func TestResendNotifier_WrapsSendError(t *testing.T) {
	n := &ResendNotifier{emails: &fakeSender{err: errors.New("quota")}, from: "f", recipients: []string{"r"}, logger: testLogger()}
	err := n.ImportCompleted(context.Background(), ImportReport{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send import report")
}

func TestSubject(t *testing.T) {
	tests := []struct {
		name   string
		report ImportReport
		want   string
	}{
		{"imported", ImportReport{FiscalYear: "FY1", FileName: "f.csv", ProjectCount: 3}, "[FY1] f.csv imported: 3 projects"},
		{"dry run", ImportReport{FiscalYear: "FY1", FileName: "f.csv", DryRun: true}, "[FY1] f.csv validated: 0 projects"},
		{"failed", ImportReport{FiscalYear: "FY1", FileName: "f.csv", Errors: []string{"x"}}, "[FY1] f.csv failed: 0 projects"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Subject(tt.report))
		})
	}
}
