package conversation

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"valet/internal/session"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		SessionID:     "s1",
		SessionType:   session.TypeNewProject,
		Step:          session.StepWaitingForAnswer,
		Messages:      []session.Message{{Role: session.RoleAssistant, Content: "What problem?", Timestamp: 1}},
		CoveredTopics: []string{session.TopicCoreProblem},
		SavedAt:       time.Unix(1700000000, 0),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	st := NewStore()
	want := sampleSnapshot()
	st.Save("/projects/app", want)

	got := st.Get("/projects/app")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if !st.Has("/projects/app") {
		t.Error("Has must report a saved path")
	}
}

func TestStoreGetMissingIsNil(t *testing.T) {
	st := NewStore()
	if st.Get("/nowhere") != nil {
		t.Error("missing path must return nil")
	}
	if st.Has("/nowhere") {
		t.Error("Has must be false for missing path")
	}
}

func TestStoreKeysAreExactStrings(t *testing.T) {
	st := NewStore()
	st.Save("/projects/app", sampleSnapshot())

	if st.Has("/projects/app/") {
		t.Error("trailing slash is a distinct key")
	}
	if st.Has("/Projects/App") {
		t.Error("case differences are distinct keys")
	}
}

func TestStoreSaveAndGetAreIsolated(t *testing.T) {
	st := NewStore()
	snap := sampleSnapshot()
	st.Save("/p", snap)

	// Mutating the caller's copy after Save must not leak in.
	snap.Messages[0].Content = "tampered"
	snap.CoveredTopics[0] = "tampered"

	got := st.Get("/p")
	if got.Messages[0].Content != "What problem?" || got.CoveredTopics[0] != session.TopicCoreProblem {
		t.Error("Save must deep-copy its input")
	}

	// Mutating a returned copy must not leak back.
	got.Messages[0].Content = "tampered again"
	again := st.Get("/p")
	if again.Messages[0].Content != "What problem?" {
		t.Error("Get must return an independent copy")
	}
}

func TestStoreClearOnlyRemovesThatPath(t *testing.T) {
	st := NewStore()
	st.Save("/a", sampleSnapshot())
	st.Save("/b", sampleSnapshot())
	st.SaveDraft(&Draft{OneLiner: "idea"})
	st.SetActive(&ActiveProject{Name: "app", Path: "/a"})

	st.Clear("/a")

	if st.Has("/a") {
		t.Error("/a should be gone")
	}
	if !st.Has("/b") {
		t.Error("/b must be unaffected")
	}
	if st.Draft() == nil {
		t.Error("draft slot must be unaffected by Clear")
	}
	if st.Active() == nil {
		t.Error("active slot must be unaffected by Clear")
	}
}

func TestStoreDraftSlot(t *testing.T) {
	st := NewStore()
	if st.Draft() != nil {
		t.Fatal("fresh store must have no draft")
	}

	d := &Draft{
		Snapshot:      *sampleSnapshot(),
		ProjectName:   "Tally",
		OneLiner:      "track habits",
		PlanningLevel: "standard",
	}
	st.SaveDraft(d)

	got := st.Draft()
	if diff := cmp.Diff(d, got); diff != "" {
		t.Errorf("draft mismatch (-want +got):\n%s", diff)
	}

	got.Snapshot.Messages[0].Content = "tampered"
	if st.Draft().Snapshot.Messages[0].Content != "What problem?" {
		t.Error("Draft must return an independent copy")
	}

	st.ClearDraft()
	if st.Draft() != nil {
		t.Error("draft slot should be empty after ClearDraft")
	}
}

func TestStoreActiveSlot(t *testing.T) {
	st := NewStore()
	if st.Active() != nil {
		t.Fatal("fresh store must have no active project")
	}

	st.SetActive(&ActiveProject{Name: "Tally", Path: "/projects/tally"})
	got := st.Active()
	if got == nil || got.Name != "Tally" || got.Path != "/projects/tally" {
		t.Fatalf("unexpected active project: %+v", got)
	}

	got.Name = "tampered"
	if st.Active().Name != "Tally" {
		t.Error("Active must return an independent copy")
	}

	st.SetActive(nil)
	if st.Active() != nil {
		t.Error("SetActive(nil) should clear the slot")
	}

	st.SetActive(&ActiveProject{Name: "x"})
	st.ClearActive()
	if st.Active() != nil {
		t.Error("active slot should be empty after ClearActive")
	}
}
