package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/gradeguard/internal/core"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func TestAuditTable_ResolveOnlyOnActionableRows(t *testing.T) {
	records := []core.AuditRecord{
		{ID: "1", SecretCode: "OMR-1", SheetType: core.SheetOMR, Status: core.StatusCriticalMismatch},
		{ID: "2", SecretCode: "OMR-2", SheetType: core.SheetOMR, Status: core.StatusClean},
		{ID: "3", SecretCode: "DESC-3", SheetType: core.SheetDescriptive, Status: core.StatusGhostError},
		{ID: "4", SecretCode: "DESC-4", SheetType: core.SheetDescriptive, Status: core.StatusResolved},
		{ID: "5", SecretCode: "X-5", Status: "ESCALATED"},
	}
	html := render(t, AuditTable(records, false))

	for _, id := range []string{"1", "3"} {
		if !strings.Contains(html, `action="/api/resolve/`+id+`"`) {
			t.Errorf("row %s should offer resolve", id)
		}
	}
	for _, id := range []string{"2", "4", "5"} {
		if strings.Contains(html, `action="/api/resolve/`+id+`"`) {
			t.Errorf("row %s must not offer resolve", id)
		}
	}
	if !strings.Contains(html, "Unknown status: ESCALATED") {
		t.Error("unknown status should be surfaced with its raw value")
	}
}

func TestAuditTable_DisabledWhileBusy(t *testing.T) {
	records := []core.AuditRecord{{ID: "1", Status: core.StatusCriticalMismatch}}
	html := render(t, AuditTable(records, true))
	if !strings.Contains(html, "disabled") {
		t.Error("resolve button should be disabled while busy")
	}
}

func TestAuditTable_EscapesAndSanitizes(t *testing.T) {
	records := []core.AuditRecord{{
		ID:           "1",
		SecretCode:   `<script>alert(1)</script>`,
		Status:       core.StatusClean,
		FileURL:      "javascript:alert(1)",
		CVTotalScore: decimal.NullDecimal{},
	}}
	html := render(t, AuditTable(records, false))

	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Error("secret code was not escaped")
	}
	if strings.Contains(html, `href="javascript:`) {
		t.Error("unsafe evidence URL was not sanitized")
	}
}

func TestHealthChart_OmitsZeroCounts(t *testing.T) {
	h := core.Health([]core.AuditRecord{{Status: core.StatusClean}, {Status: core.StatusClean}})
	html := render(t, HealthChart(h.ChartInput()))

	if !strings.Contains(html, "Verified: 2") {
		t.Errorf("missing clean slice: %s", html)
	}
	for _, label := range []string{"Math Error", "Ghost Page", "Resolved"} {
		if strings.Contains(html, label) {
			t.Errorf("zero-count %s slice rendered", label)
		}
	}
}

func TestDashboard_NoticeKeepsData(t *testing.T) {
	snap := core.Snapshot{
		Records:  []core.AuditRecord{{ID: "1", SecretCode: "OMR-1", Status: core.StatusClean}},
		Version:  4,
		SyncedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	snap.Health = core.Health(snap.Records)

	html := render(t, Dashboard(DashboardView{Snapshot: snap, Notice: "The grading backend could not be reached"}))

	if !strings.Contains(html, "The grading backend could not be reached") {
		t.Error("notice not rendered")
	}
	if !strings.Contains(html, "OMR-1") {
		t.Error("previous data should stay visible under the notice")
	}
	if !strings.Contains(html, `data-version="4"`) {
		t.Error("snapshot version missing from root element")
	}
}

func TestErrorAlert(t *testing.T) {
	html := render(t, ErrorAlert("Another action is still running", "Wait", "ACT001"))
	for _, want := range []string{"Another action is still running", "Wait", "Code: ACT001"} {
		if !strings.Contains(html, want) {
			t.Errorf("ErrorAlert missing %q", want)
		}
	}
}

func TestAuditTable_ResolveURLEscapesID(t *testing.T) {
	tests := []struct {
		id   core.RecordID
		want string
	}{
		{"42", `action="/api/resolve/42"`},
		{"a/b c", `action="/api/resolve/a%2Fb%20c"`},
		{"javascript:alert(1)", `action="/api/resolve/javascript:alert%281%29"`},
	}
	for _, tt := range tests {
		html := render(t, AuditTable([]core.AuditRecord{{ID: tt.id, Status: core.StatusCriticalMismatch}}, false))
		if !strings.Contains(html, tt.want) {
			t.Errorf("AuditTable(%q) missing %s", tt.id, tt.want)
		}
	}
}
