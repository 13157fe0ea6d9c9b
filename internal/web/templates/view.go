// Package templates renders the dashboard HTML.
//
// Components are written in templ (*.templ) and compiled with `templ generate`
// into the *_templ.go files next to them. Helpers used by the components live
// here.
package templates

import (
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/gradeguard/internal/core"
)

//go:generate templ generate

// DashboardView is everything the dashboard page renders.
type DashboardView struct {
	Snapshot    core.Snapshot
	Notice      string // user message of the last failed sync, if any
	Busy        bool
	History     []core.ActionEntry
	MaxUploadMB int64
}

func stateName(busy bool) string {
	if busy {
		return core.StateBusy.String()
	}
	return core.StateIdle.String()
}

// resolveURL builds the resolve endpoint for id. IDs come from the backend
// and are escaped as a single path segment.
func resolveURL(id core.RecordID) templ.SafeURL {
	return templ.URL("/api/resolve/" + url.PathEscape(id.String()))
}

func statusSeverity(s core.Status) core.Severity {
	c, _ := core.Classify(s)
	return c.Severity
}

// statusLabel shows the raw status next to the label when it is not one
// the dashboard knows.
func statusLabel(s core.Status) string {
	c, err := core.Classify(s)
	if err != nil {
		return c.Label + ": " + string(s)
	}
	return c.Label
}

func sliceLabel(s core.HealthSlice) string {
	if !s.Status.Known() {
		return s.Label + " (" + string(s.Status) + ")"
	}
	return s.Label
}

func entryStatus(e core.ActionEntry) string {
	if e.OK {
		return "ok"
	}
	return "failed"
}

// activityLine renders one history entry, for example
// "14:02:11 resolve #42 - failed: backend unreachable".
func activityLine(e core.ActionEntry) string {
	var b strings.Builder
	b.WriteString(e.StartedAt.Format("15:04:05"))
	b.WriteString(" ")
	b.WriteString(string(e.Kind))
	if e.RecordID != "" {
		b.WriteString(" #")
		b.WriteString(e.RecordID.String())
	}
	b.WriteString(" - ")
	b.WriteString(entryStatus(e))
	if e.Error != "" {
		b.WriteString(": ")
		b.WriteString(e.Error)
	}
	if e.SyncError != "" {
		b.WriteString(" (refresh failed: ")
		b.WriteString(e.SyncError)
		b.WriteString(")")
	}
	return b.String()
}

// liveReloadScript reloads the page when a newer snapshot is published and
// the dashboard is not in the middle of an upload.
const liveReloadScript = `<script>
(function () {
  if (!window.EventSource) return;
  var root = document.getElementById("dashboard");
  var src = new EventSource("/api/events");
  src.addEventListener("snapshot", function (ev) {
    var data = JSON.parse(ev.data);
    if (String(data.version) === root.dataset.version) return;
    var active = document.activeElement;
    if (active && active.form && active.form.enctype === "multipart/form-data") return;
    window.location.reload();
  });
})();
</script>`
