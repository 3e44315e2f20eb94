package providers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/amayadev/amaya/pkg/bus"
	"github.com/amayadev/amaya/pkg/domain"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeReminderStore struct {
	created []domain.Reminder
}

func (f *fakeReminderStore) Create(_ context.Context, r domain.Reminder) (domain.Reminder, error) {
	r.ID = int64(len(f.created) + 1)
	if r.Status == "" {
		r.Status = domain.ReminderPending
	}
	if r.NextActionAtUTC == "" {
		r.NextActionAtUTC = r.RemindAtUTC
	}
	f.created = append(f.created, r)
	return r, nil
}

func (f *fakeReminderStore) Pending(context.Context) ([]domain.Reminder, error) {
	return f.created, nil
}

func (f *fakeReminderStore) Due(context.Context, string) ([]domain.Reminder, error) {
	return nil, nil
}

func (f *fakeReminderStore) Update(context.Context, domain.Reminder) error { return nil }

type fakeMemoryStore struct {
	groups  []string
	points  []domain.MemoryPoint
	updated map[int64]string
}

func (f *fakeMemoryStore) CreateGroup(_ context.Context, title string) (int64, error) {
	for i, g := range f.groups {
		if g == title {
			return int64(i + 1), nil
		}
	}
	f.groups = append(f.groups, title)
	return int64(len(f.groups)), nil
}

func (f *fakeMemoryStore) Groups(context.Context) ([]domain.MemoryGroup, error) {
	var groups []domain.MemoryGroup
	for i, g := range f.groups {
		groups = append(groups, domain.MemoryGroup{ID: int64(i + 1), Title: g})
	}
	return groups, nil
}

func (f *fakeMemoryStore) CreatePoint(ctx context.Context, groupTitle, anchor, content string, weight float64) (int64, error) {
	groupID, err := f.CreateGroup(ctx, groupTitle)
	if err != nil {
		return 0, err
	}
	f.points = append(f.points, domain.MemoryPoint{
		ID: int64(len(f.points) + 1), GroupID: groupID,
		Anchor: anchor, Content: content, Weight: weight,
	})
	return int64(len(f.points)), nil
}

func (f *fakeMemoryStore) PointsByGroup(_ context.Context, groupID int64) ([]domain.MemoryPoint, error) {
	var points []domain.MemoryPoint
	for _, p := range f.points {
		if p.GroupID == groupID {
			points = append(points, p)
		}
	}
	return points, nil
}

func (f *fakeMemoryStore) UpdatePointContent(_ context.Context, pointID int64, content string) error {
	if pointID <= 0 || pointID > int64(len(f.points)) {
		return domain.ErrNotFound
	}
	if f.updated == nil {
		f.updated = make(map[int64]string)
	}
	f.updated[pointID] = content
	f.points[pointID-1].Content = content
	return nil
}

func testDeps(t *testing.T) (ToolDeps, *fakeReminderStore, *fakeMemoryStore, *bus.Bus) {
	t.Helper()
	reminders := &fakeReminderStore{}
	memory := &fakeMemoryStore{}
	b := bus.New()
	t.Cleanup(b.Close)
	return ToolDeps{
		Reminders: reminders,
		Memory:    memory,
		Bus:       b,
		Timezone:  "Asia/Shanghai",
	}, reminders, memory, b
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestCreateReminderConvertsLocalToUTC(t *testing.T) {
	deps, reminders, _, b := testDeps(t)
	ts := AmayaToolset(deps)

	published := make(chan bus.Event, 1)
	b.Subscribe(bus.EventReminderCreated, func(e bus.Event) { published <- e })

	result := ts.Execute(context.Background(), "create_reminder",
		[]byte(`{"title":"stand up","time":"2026-09-01 17:00","prompt":"nudge gently"}`))
	if !strings.Contains(result, "ID: 1") {
		t.Fatalf("result = %q", result)
	}

	if len(reminders.created) != 1 {
		t.Fatalf("created = %#v", reminders.created)
	}
	got := reminders.created[0]
	// 17:00 Asia/Shanghai is 09:00 UTC.
	if got.RemindAtUTC != "2026-09-01 09:00" {
		t.Errorf("remind_at_utc = %q, want 2026-09-01 09:00", got.RemindAtUTC)
	}
	if got.Prompt != "nudge gently" {
		t.Errorf("prompt = %q", got.Prompt)
	}

	select {
	case e := <-published:
		r, ok := e.Payload.(domain.Reminder)
		if !ok || r.ID != 1 {
			t.Errorf("payload = %#v", e.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reminder.created never published")
	}
}

func TestCreateReminderRejectsBadTime(t *testing.T) {
	deps, reminders, _, _ := testDeps(t)
	ts := AmayaToolset(deps)

	result := ts.Execute(context.Background(), "create_reminder",
		[]byte(`{"title":"x","time":"tomorrowish","prompt":"p"}`))
	if !strings.HasPrefix(result, "error:") {
		t.Fatalf("result = %q, want error text", result)
	}
	if len(reminders.created) != 0 {
		t.Errorf("reminder created despite bad time: %#v", reminders.created)
	}
}

func TestCreateReminderRejectsBadCron(t *testing.T) {
	deps, _, _, _ := testDeps(t)
	ts := AmayaToolset(deps)

	result := ts.Execute(context.Background(), "create_reminder",
		[]byte(`{"title":"x","time":"2026-09-01 10:00","prompt":"p","recur_cron":"not a cron"}`))
	if !strings.HasPrefix(result, "error:") {
		t.Fatalf("result = %q, want error text", result)
	}
}

func TestCreateMemoryPointDefaultsWeight(t *testing.T) {
	deps, _, memory, _ := testDeps(t)
	ts := AmayaToolset(deps)

	result := ts.Execute(context.Background(), "create_memory_point",
		[]byte(`{"memory_group_title":"prefs","anchor":"coffee","content":"oat milk"}`))
	if !strings.Contains(result, "'coffee'") {
		t.Fatalf("result = %q", result)
	}
	if len(memory.points) != 1 || memory.points[0].Weight != 1.0 {
		t.Errorf("points = %#v", memory.points)
	}
}

func TestEditMemoryPoint(t *testing.T) {
	deps, _, memory, _ := testDeps(t)
	ts := AmayaToolset(deps)
	ctx := context.Background()

	ts.Execute(ctx, "create_memory_point",
		[]byte(`{"memory_group_title":"prefs","anchor":"sleep","content":"late"}`))

	result := ts.Execute(ctx, "edit_memory_point_content",
		[]byte(`{"memory_point_id":1,"new_content":"early riser now"}`))
	if !strings.Contains(result, "updated") {
		t.Fatalf("result = %q", result)
	}
	if memory.points[0].Content != "early riser now" {
		t.Errorf("content = %q", memory.points[0].Content)
	}

	result = ts.Execute(ctx, "edit_memory_point_content",
		[]byte(`{"memory_point_id":99,"new_content":"x"}`))
	if !strings.HasPrefix(result, "error:") {
		t.Errorf("result = %q, want error text", result)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	deps, _, _, _ := testDeps(t)
	ts := AmayaToolset(deps)

	result := ts.Execute(context.Background(), "launch_rocket", []byte(`{}`))
	if !strings.Contains(result, "unknown tool") {
		t.Fatalf("result = %q", result)
	}
}

func TestExecuteMalformedArguments(t *testing.T) {
	deps, _, _, _ := testDeps(t)
	ts := AmayaToolset(deps)

	result := ts.Execute(context.Background(), "create_reminder", []byte(`{broken`))
	if !strings.HasPrefix(result, "error:") {
		t.Fatalf("result = %q", result)
	}
}

func TestToolSchemaAccessors(t *testing.T) {
	deps, _, _, _ := testDeps(t)
	ts := AmayaToolset(deps)

	var reminderTool Tool
	for _, tool := range ts.All() {
		if tool.Name == "create_reminder" {
			reminderTool = tool
		}
	}
	props := reminderTool.SchemaProperties()
	if _, ok := props["time"]; !ok {
		t.Errorf("properties missing time: %#v", props)
	}
	required := reminderTool.SchemaRequired()
	want := map[string]bool{"title": true, "time": true, "prompt": true}
	if len(required) != 3 {
		t.Fatalf("required = %#v", required)
	}
	for _, name := range required {
		if !want[name] {
			t.Errorf("unexpected required field %q", name)
		}
	}
}
