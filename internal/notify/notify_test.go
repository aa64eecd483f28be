package notify

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestForRun(t *testing.T) {
	tests := []struct {
		passed, failed, errored int
		want                    NotificationType
	}{
		{3, 0, 0, NotifySuccess},
		{2, 1, 0, NotifyError},
		{2, 1, 1, NotifyWarning},
		{0, 0, 1, NotifyWarning},
	}
	for _, tt := range tests {
		n := ForRun("/repo", "run-1", tt.passed, tt.failed, tt.errored)
		if n.Type != tt.want {
			t.Errorf("ForRun(%d,%d,%d).Type = %v, want %v",
				tt.passed, tt.failed, tt.errored, n.Type, tt.want)
		}
	}

	n := ForRun("/repo", "run-1", 1, 2, 3)
	if n.Message != "1 passed, 2 failed, 3 errored" {
		t.Errorf("Message = %q", n.Message)
	}
	if n.Repo != "/repo" || n.RunID != "run-1" {
		t.Errorf("references not set: %+v", n)
	}
}

func TestWebhookNotifier_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL)
	err := notifier.Send(Notification{
		Title:   "hornet run complete",
		Message: "3 passed, 0 failed, 0 errored",
		Type:    NotifySuccess,
	})

	if err != nil {
		t.Errorf("Send failed: %v", err)
	}
}

func TestWebhookNotifier_Disabled(t *testing.T) {
	if err := NewWebhookNotifier("").Send(Notification{Title: "x"}); err != nil {
		t.Errorf("disabled notifier should be a no-op, got %v", err)
	}
}

func TestNotificationTypeColors(t *testing.T) {
	tests := []struct {
		typ  NotificationType
		want string
	}{
		{NotifySuccess, "good"},
		{NotifyWarning, "warning"},
		{NotifyError, "danger"},
		{NotifyInfo, "#439FE0"},
	}

	for _, tt := range tests {
		got := SlackColor(tt.typ)
		if got != tt.want {
			t.Errorf("SlackColor(%v) = %s, want %s", tt.typ, got, tt.want)
		}
	}
}

func TestMultiNotifier(t *testing.T) {
	var called []string

	mock1 := &mockNotifier{name: "mock1", calls: &called}
	mock2 := &mockNotifier{name: "mock2", calls: &called}

	multi := NewMultiNotifier(mock1, mock2)
	multi.Send(Notification{Title: "Test"})

	if len(called) != 2 {
		t.Errorf("Expected 2 calls, got %d", len(called))
	}
}

type mockNotifier struct {
	name  string
	calls *[]string
}

func (m *mockNotifier) Send(n Notification) error {
	*m.calls = append(*m.calls, m.name)
	return nil
}
