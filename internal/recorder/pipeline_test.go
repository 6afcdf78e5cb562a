package recorder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jwulff/calo/internal/audio"
	"github.com/jwulff/calo/internal/config"
	"github.com/jwulff/calo/internal/db"
	"github.com/jwulff/calo/internal/nutrition"
	"github.com/jwulff/calo/internal/openai"
	"github.com/jwulff/calo/internal/state"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// --- fakes ---

type fakeMic struct {
	mu        sync.Mutex
	perm      audio.Permission
	onRequest audio.Permission
	requests  int
	open      *fakeCapture
	events    *[]string

	// entered and release hold RequestPermission open when set.
	entered chan struct{}
	release chan struct{}
}

func (m *fakeMic) Permission() audio.Permission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.perm
}

func (m *fakeMic) RequestPermission(context.Context) audio.Permission {
	if m.entered != nil {
		close(m.entered)
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
	m.perm = m.onRequest
	return m.perm
}

func (m *fakeMic) Open(context.Context) (audio.Capture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = &fakeCapture{data: []byte("ID3"), events: m.events}
	return m.open, nil
}

type fakeCapture struct {
	data    []byte
	stopped int
	events  *[]string
}

func (c *fakeCapture) Stop() ([]byte, error) {
	c.stopped++
	if c.events != nil && c.stopped == 1 {
		*c.events = append(*c.events, "mic released")
	}
	return c.data, nil
}

type fakeTranscriber struct {
	text   string
	err    error
	events *[]string
}

func (f *fakeTranscriber) Transcribe(context.Context, []byte) (string, error) {
	if f.events != nil {
		*f.events = append(*f.events, "transcribe")
	}
	return f.text, f.err
}

type fakeExtractor struct {
	items []openai.FoodItem
	err   error
	block chan struct{}
}

func (f *fakeExtractor) ExtractFoods(ctx context.Context, _ string) ([]openai.FoodItem, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.items, f.err
}

type fakeLookup map[string]nutrition.Facts

func (f fakeLookup) Lookup(_ context.Context, name string) (nutrition.Facts, error) {
	facts, ok := f[name]
	if !ok {
		return nutrition.Facts{}, nutrition.ErrNoMatch
	}
	return facts, nil
}

type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	saved  []db.FoodEntry
	failOn string
}

func (s *fakeStore) Create(_ context.Context, e db.FoodEntry) (db.FoodEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Name == s.failOn {
		return db.FoodEntry{}, errors.New("disk full")
	}
	s.nextID++
	e.ID = s.nextID
	s.saved = append(s.saved, e)
	return e, nil
}

type harness struct {
	p     *Pipeline
	mic   *fakeMic
	tr    *fakeTranscriber
	ex    *fakeExtractor
	store *fakeStore
	state *state.Container
	logs  *observer.ObservedLogs
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	h := &harness{
		mic:   &fakeMic{perm: audio.PermissionGranted, onRequest: audio.PermissionGranted},
		tr:    &fakeTranscriber{text: "two eggs, toast and a mystery fruit"},
		ex:    &fakeExtractor{},
		store: &fakeStore{},
		state: state.New("sk-test", "2024-06-03"),
		logs:  logs,
	}
	h.p = New(Deps{
		Mic:         h.mic,
		Transcriber: h.tr,
		Extractor:   h.ex,
		Lookup: fakeLookup{
			"egg":   {ProductName: "Egg", Calories: 143, Protein: 12.6, Carbs: 0.7, Fat: 9.5},
			"toast": {ProductName: "Toast", Calories: 265, Protein: 9, Carbs: 49, Fat: 3.2},
		},
		Store: h.store,
		State: h.state,
		Log:   zap.New(core),
	})
	return h
}

func (h *harness) record(t *testing.T) (Result, error) {
	t.Helper()
	if err := h.p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := h.p.State(); got != Recording {
		t.Fatalf("state = %v, want recording", got)
	}
	return h.p.Stop(context.Background())
}

// --- tests ---

func TestStopLogsFoundItemsAndSkipsMiss(t *testing.T) {
	h := newHarness(t)
	h.ex.items = []openai.FoodItem{
		{Name: "egg", Quantity: 100, Unit: "g"},
		{Name: "toast", Quantity: 50, Unit: "g"},
		{Name: "mystery fruit", Quantity: 100, Unit: "g"},
	}

	res, err := h.record(t)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if len(res.Entries) != 2 || len(h.store.saved) != 2 {
		t.Fatalf("got %d entries (%d saved), want 2", len(res.Entries), len(h.store.saved))
	}
	if len(res.Skipped) != 1 || !errors.Is(res.Skipped[0].Err, nutrition.ErrNoMatch) {
		t.Errorf("skipped = %+v", res.Skipped)
	}
	if warnings := h.logs.FilterLevelExact(zapcore.WarnLevel).Len(); warnings != 1 {
		t.Errorf("got %d warnings, want 1", warnings)
	}

	toast := res.Entries[1]
	if toast.Date != "2024-06-03" || toast.Name != "Toast" || toast.Calories != 132.5 {
		t.Errorf("toast = %+v", toast)
	}
	if toast.KcalPer100 != 265 {
		t.Errorf("KcalPer100 = %v, want 265", toast.KcalPer100)
	}

	if got := len(h.state.Entries()); got != 2 {
		t.Errorf("state has %d entries, want 2", got)
	}
	if h.p.State() != Idle {
		t.Errorf("state after stop = %v, want idle", h.p.State())
	}
	if res.RunID == "" {
		t.Error("missing run id")
	}
}

func TestRunIDOnEveryLogLine(t *testing.T) {
	h := newHarness(t)
	h.ex.items = []openai.FoodItem{{Name: "egg", Quantity: 60, Unit: "g"}}

	res, err := h.record(t)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}

	runLines := h.logs.FilterField(zap.String("run", res.RunID)).Len()
	if runLines < 3 {
		t.Errorf("got %d lines tagged with run id, want at least 3", runLines)
	}
}

func TestMicReleasedBeforeTranscription(t *testing.T) {
	h := newHarness(t)
	var events []string
	h.mic.events = &events
	h.tr.events = &events

	if _, err := h.record(t); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(events) != 2 || events[0] != "mic released" || events[1] != "transcribe" {
		t.Errorf("events = %v", events)
	}
}

func TestStartWhileRecordingIsBusy(t *testing.T) {
	h := newHarness(t)
	if err := h.p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.p.Start(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("second Start err = %v, want ErrBusy", err)
	}
	if _, err := h.p.ProcessTranscript(context.Background(), "", "egg"); !errors.Is(err, ErrBusy) {
		t.Errorf("ProcessTranscript err = %v, want ErrBusy", err)
	}
	h.p.Abort()
}

func TestStartWhileProcessingIsBusy(t *testing.T) {
	h := newHarness(t)
	h.ex.block = make(chan struct{})
	h.ex.items = []openai.FoodItem{{Name: "egg", Quantity: 50, Unit: "g"}}

	done := make(chan error, 1)
	go func() {
		_, err := h.p.ProcessTranscript(context.Background(), "", "one egg")
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for h.p.State() != Processing {
		if time.Now().After(deadline) {
			t.Fatal("pipeline never entered processing")
		}
		time.Sleep(time.Millisecond)
	}

	if err := h.p.Start(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("Start err = %v, want ErrBusy", err)
	}

	close(h.ex.block)
	if err := <-done; err != nil {
		t.Fatalf("ProcessTranscript: %v", err)
	}
	if h.p.State() != Idle {
		t.Errorf("state = %v, want idle", h.p.State())
	}
}

func TestPermissionPromptThenGranted(t *testing.T) {
	h := newHarness(t)
	h.mic.perm = audio.PermissionPrompt

	if err := h.p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h.mic.requests != 1 {
		t.Errorf("requests = %d, want 1", h.mic.requests)
	}
	if h.p.State() != Recording {
		t.Errorf("state = %v, want recording", h.p.State())
	}
	h.p.Abort()
}

func TestDeniedIsSticky(t *testing.T) {
	h := newHarness(t)
	h.mic.perm = audio.PermissionPrompt
	h.mic.onRequest = audio.PermissionDenied

	if err := h.p.Start(context.Background()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Start err = %v, want ErrPermissionDenied", err)
	}
	if h.p.State() != Denied {
		t.Fatalf("state = %v, want denied", h.p.State())
	}

	// Retrying without an out-of-band change stays denied.
	if err := h.p.Start(context.Background()); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("retry err = %v, want ErrPermissionDenied", err)
	}
	if h.mic.requests != 1 {
		t.Errorf("requests = %d, want 1", h.mic.requests)
	}

	// The user granted access in system settings.
	h.mic.mu.Lock()
	h.mic.perm = audio.PermissionGranted
	h.mic.mu.Unlock()
	if err := h.p.Start(context.Background()); err != nil {
		t.Fatalf("Start after grant: %v", err)
	}
	if h.p.State() != Recording {
		t.Errorf("state = %v, want recording", h.p.State())
	}
	h.p.Abort()
}

func TestRecheck(t *testing.T) {
	h := newHarness(t)
	h.mic.perm = audio.PermissionDenied
	h.p.Start(context.Background())

	h.mic.onRequest = audio.PermissionGranted
	if err := h.p.Recheck(context.Background()); err != nil {
		t.Fatalf("Recheck: %v", err)
	}
	if h.p.State() != Idle {
		t.Errorf("state = %v, want idle", h.p.State())
	}
}

func TestExtractionFailureCommitsNothing(t *testing.T) {
	h := newHarness(t)
	h.ex.err = &openai.FormatError{Reason: "scalar"}

	_, err := h.record(t)

	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageExtract {
		t.Fatalf("err = %v, want extract StageError", err)
	}
	if len(h.store.saved) != 0 || len(h.state.Entries()) != 0 {
		t.Error("nothing should be committed")
	}
	if h.p.State() != Idle {
		t.Errorf("state = %v, want idle", h.p.State())
	}
}

func TestStorageFailureStopsRun(t *testing.T) {
	h := newHarness(t)
	h.store.failOn = "Toast"
	h.ex.items = []openai.FoodItem{
		{Name: "egg", Quantity: 100, Unit: "g"},
		{Name: "toast", Quantity: 50, Unit: "g"},
		{Name: "egg", Quantity: 50, Unit: "g"},
	}

	res, err := h.p.ProcessTranscript(context.Background(), "", "egg, toast, egg")

	var se *StageError
	if !errors.As(err, &se) || se.Stage != StagePersist {
		t.Fatalf("err = %v, want persist StageError", err)
	}
	if len(res.Entries) != 1 || len(h.store.saved) != 1 {
		t.Errorf("entries = %d, saved = %d, want 1 and 1", len(res.Entries), len(h.store.saved))
	}
	entries := h.state.Entries()
	if len(entries) != 1 || entries[0].Name != "Egg" {
		t.Errorf("state = %+v, want only the egg", entries)
	}
}

func TestEmptyTranscript(t *testing.T) {
	h := newHarness(t)
	h.tr.text = "   \n"

	_, err := h.record(t)
	if !errors.Is(err, ErrEmptyTranscript) {
		t.Errorf("err = %v, want ErrEmptyTranscript", err)
	}
	if h.p.State() != Idle {
		t.Errorf("state = %v, want idle", h.p.State())
	}
}

func TestTranscriptionFailure(t *testing.T) {
	h := newHarness(t)
	h.tr.err = openai.ErrMissingAPIKey

	_, err := h.record(t)
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageTranscribe {
		t.Fatalf("err = %v, want transcribe StageError", err)
	}
	if !errors.Is(err, openai.ErrMissingAPIKey) {
		t.Error("cause not preserved")
	}
}

func TestStopWhenIdle(t *testing.T) {
	h := newHarness(t)
	if _, err := h.p.Stop(context.Background()); !errors.Is(err, ErrNotRecording) {
		t.Errorf("err = %v, want ErrNotRecording", err)
	}
}

func TestAbortReleasesMic(t *testing.T) {
	h := newHarness(t)
	h.p.Start(context.Background())
	h.p.Abort()

	if h.mic.open.stopped != 1 {
		t.Errorf("capture stopped %d times, want 1", h.mic.open.stopped)
	}
	if h.p.State() != Idle {
		t.Errorf("state = %v, want idle", h.p.State())
	}
	if len(h.store.saved) != 0 {
		t.Error("abort should not process audio")
	}
}

func TestAbortDuringPermissionRequest(t *testing.T) {
	h := newHarness(t)
	h.mic.perm = audio.PermissionPrompt
	h.mic.entered = make(chan struct{})
	h.mic.release = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- h.p.Start(context.Background()) }()

	<-h.mic.entered
	if h.p.State() != RequestingPermission {
		t.Fatalf("state = %v, want requesting permission", h.p.State())
	}
	h.p.Abort()
	close(h.mic.release)

	if err := <-done; !errors.Is(err, ErrAborted) {
		t.Fatalf("Start err = %v, want ErrAborted", err)
	}
	if h.p.State() != Idle {
		t.Errorf("state = %v, want idle", h.p.State())
	}
	if h.mic.open != nil && h.mic.open.stopped != 1 {
		t.Errorf("capture stopped %d times, want 1", h.mic.open.stopped)
	}

	// the next session starts normally
	h.mic.entered = nil
	if err := h.p.Start(context.Background()); err != nil {
		t.Fatalf("Start after abort: %v", err)
	}
	if h.p.State() != Recording {
		t.Errorf("state = %v, want recording", h.p.State())
	}
}

func TestProcessTranscriptOtherDate(t *testing.T) {
	h := newHarness(t)
	h.ex.items = []openai.FoodItem{{Name: "egg", Quantity: 50, Unit: "g"}}

	res, err := h.p.ProcessTranscript(context.Background(), "2024-06-01", "an egg")
	if err != nil {
		t.Fatalf("ProcessTranscript: %v", err)
	}
	if res.Entries[0].Date != "2024-06-01" {
		t.Errorf("date = %s, want 2024-06-01", res.Entries[0].Date)
	}
	if len(h.state.Entries()) != 0 {
		t.Error("entry for another day should not enter the viewed day")
	}
}

func TestExtractTimeout(t *testing.T) {
	h := newHarness(t)
	h.p.timeouts = config.Timeouts{Transcribe: time.Second, Extract: 20 * time.Millisecond, Lookup: time.Second, Storage: time.Second}
	h.ex.block = make(chan struct{})

	_, err := h.p.ProcessTranscript(context.Background(), "", "egg")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if msg := UserMessage(err); msg != "Timed out during extract." {
		t.Errorf("UserMessage = %q", msg)
	}
}
