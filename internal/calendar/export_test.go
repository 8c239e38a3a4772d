package calendar

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tutorcal/internal/model"
)

func TestBuild(t *testing.T) {
	e := NewExporter(t.TempDir(), time.UTC)
	sched := model.Schedule{
		ID: 3, StudentName: "Alice", Subject: "Math",
		TimeSlot: "14:00-15:00", Status: model.StatusPending,
	}

	data, err := e.Build(sched, "2024-03-10")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	out := string(data)
	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"SUMMARY:Alice - Math",
		"DTSTART:20240310T140000Z",
		"DTEND:20240310T150000Z",
		"BEGIN:VALARM",
		"TRIGGER:-PT20M",
		"UID:lesson-3-2024-03-10@tutorcal",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("serialized calendar missing %q\n%s", want, out)
		}
	}
}

func TestBuildBadTimeSlot(t *testing.T) {
	e := NewExporter(t.TempDir(), time.UTC)
	sched := model.Schedule{ID: 1, StudentName: "Bob", TimeSlot: "afternoon"}
	if _, err := e.Build(sched, "2024-03-10"); err == nil {
		t.Fatal("expected error for unparseable time slot")
	}
}

func TestExportWritesFile(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir, time.UTC)
	sched := model.Schedule{ID: 9, StudentName: "Alice", Subject: "Math", TimeSlot: "09:00-10:00"}

	path, err := e.Export(sched, "2024-03-10")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if want := filepath.Join(dir, "lesson-9-2024-03-10.ics"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	if !strings.Contains(string(data), "SUMMARY:Alice - Math") {
		t.Errorf("exported file missing summary:\n%s", data)
	}
}

func TestExportNoDir(t *testing.T) {
	e := NewExporter("", time.UTC)
	if _, err := e.Export(model.Schedule{ID: 1, TimeSlot: "09:00-10:00"}, "2024-03-10"); err == nil {
		t.Fatal("expected error when export directory is not configured")
	}
}
