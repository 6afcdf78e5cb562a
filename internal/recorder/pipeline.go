// Package recorder runs the voice logging pipeline: capture, transcribe,
// extract food items, look up nutrition, persist and update shared state.
package recorder

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jwulff/calo/internal/audio"
	"github.com/jwulff/calo/internal/config"
	"github.com/jwulff/calo/internal/db"
	"github.com/jwulff/calo/internal/nutrition"
	"github.com/jwulff/calo/internal/openai"
	"github.com/jwulff/calo/internal/state"
	"go.uber.org/zap"
)

// State is the pipeline's session state.
type State int

const (
	Idle State = iota
	RequestingPermission
	Recording
	Processing
	Denied
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case RequestingPermission:
		return "requesting permission"
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	case Denied:
		return "denied"
	}
	return "unknown"
}

// Transcriber turns audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Extractor turns a transcript into food items.
type Extractor interface {
	ExtractFoods(ctx context.Context, transcript string) ([]openai.FoodItem, error)
}

// Lookup resolves a food name to per-100 nutrition facts.
type Lookup interface {
	Lookup(ctx context.Context, name string) (nutrition.Facts, error)
}

// EntryWriter persists new entries.
type EntryWriter interface {
	Create(ctx context.Context, e db.FoodEntry) (db.FoodEntry, error)
}

// Skipped is an extracted item that was not logged.
type Skipped struct {
	Item openai.FoodItem
	Err  error
}

// Result describes one pipeline run.
type Result struct {
	RunID      string
	Transcript string
	Entries    []db.FoodEntry
	Skipped    []Skipped
}

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Mic         audio.Microphone
	Transcriber Transcriber
	Extractor   Extractor
	Lookup      Lookup
	Store       EntryWriter
	State       *state.Container
	Log         *zap.Logger
	Timeouts    config.Timeouts
}

// Pipeline is the recording state machine. One session runs at a time.
type Pipeline struct {
	mic         audio.Microphone
	transcriber Transcriber
	extractor   Extractor
	lookup      Lookup
	store       EntryWriter
	state       *state.Container
	log         *zap.Logger
	timeouts    config.Timeouts

	mu      sync.Mutex
	current State
	capture audio.Capture
	aborted bool // Abort arrived during RequestingPermission
}

// New returns an idle pipeline.
func New(d Deps) *Pipeline {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	def := config.Default().Timeouts
	if d.Timeouts.Transcribe <= 0 {
		d.Timeouts.Transcribe = def.Transcribe
	}
	if d.Timeouts.Extract <= 0 {
		d.Timeouts.Extract = def.Extract
	}
	if d.Timeouts.Lookup <= 0 {
		d.Timeouts.Lookup = def.Lookup
	}
	if d.Timeouts.Storage <= 0 {
		d.Timeouts.Storage = def.Storage
	}
	return &Pipeline{
		mic:         d.Mic,
		transcriber: d.Transcriber,
		extractor:   d.Extractor,
		lookup:      d.Lookup,
		store:       d.Store,
		state:       d.State,
		log:         d.Log,
		timeouts:    d.Timeouts,
	}
}

// State returns the current session state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Pipeline) set(s State) {
	p.mu.Lock()
	p.current = s
	p.mu.Unlock()
}

// Start begins a recording. It asks for microphone permission when needed.
// The capture runs until Stop, Abort or the end of ctx.
//
// From Denied, Start re-queries the microphone and only proceeds if the
// permission changed; otherwise it returns ErrPermissionDenied again.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	from := p.current
	if from != Idle && from != Denied {
		p.mu.Unlock()
		return ErrBusy
	}
	p.current = RequestingPermission
	p.aborted = false
	p.mu.Unlock()

	perm := p.mic.Permission()
	if perm == audio.PermissionPrompt && from == Idle {
		perm = p.mic.RequestPermission(ctx)
	}
	if perm != audio.PermissionGranted {
		p.set(Denied)
		p.log.Info("microphone denied", zap.Stringer("permission", perm))
		return ErrPermissionDenied
	}

	if p.takeAbort() {
		return ErrAborted
	}

	capture, err := p.mic.Open(ctx)
	if err != nil {
		p.set(Idle)
		return &StageError{Stage: StageCapture, Err: err}
	}

	p.mu.Lock()
	if p.aborted {
		p.aborted = false
		p.current = Idle
		p.mu.Unlock()
		capture.Stop()
		p.log.Info("recording aborted while starting")
		return ErrAborted
	}
	p.capture = capture
	p.current = Recording
	p.mu.Unlock()
	p.log.Info("recording started")
	return nil
}

// Recheck asks for microphone permission again after a denial. It moves the
// pipeline back to Idle when access is now granted.
func (p *Pipeline) Recheck(ctx context.Context) error {
	p.mu.Lock()
	if p.current != Denied {
		p.mu.Unlock()
		return nil
	}
	p.current = RequestingPermission
	p.mu.Unlock()

	if p.mic.RequestPermission(ctx) != audio.PermissionGranted {
		p.set(Denied)
		return ErrPermissionDenied
	}
	p.set(Idle)
	return nil
}

// Stop ends the recording, releases the microphone and processes the audio
// into entries for the viewed day. The pipeline returns to Idle afterwards,
// whether or not processing succeeded.
func (p *Pipeline) Stop(ctx context.Context) (Result, error) {
	p.mu.Lock()
	if p.current != Recording {
		p.mu.Unlock()
		return Result{}, ErrNotRecording
	}
	capture := p.capture
	p.capture = nil
	p.current = Processing
	p.mu.Unlock()
	defer p.set(Idle)

	data, err := capture.Stop()
	r := p.newRun()
	if err != nil {
		r.log.Warn("capture failed", zap.Error(err))
		return Result{RunID: r.id}, &StageError{Stage: StageCapture, Err: err}
	}
	r.log.Info("recording stopped", zap.Int("bytes", len(data)))

	return p.fromAudio(ctx, r, p.state.Date(), data)
}

// Abort discards a live recording without processing it.
func (p *Pipeline) Abort() {
	p.mu.Lock()
	capture := p.capture
	p.capture = nil
	switch p.current {
	case Recording:
		p.current = Idle
	case RequestingPermission:
		p.aborted = true
	}
	p.mu.Unlock()

	if capture != nil {
		capture.Stop()
		p.log.Info("recording aborted")
	}
}

// takeAbort reports and clears a pending abort, returning to Idle.
func (p *Pipeline) takeAbort() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.aborted {
		return false
	}
	p.aborted = false
	p.current = Idle
	return true
}

// ProcessAudio runs an existing recording through the pipeline, logging to
// date (the viewed day when empty).
func (p *Pipeline) ProcessAudio(ctx context.Context, date string, data []byte) (Result, error) {
	release, err := p.acquire()
	if err != nil {
		return Result{}, err
	}
	defer release()

	if date == "" {
		date = p.state.Date()
	}
	return p.fromAudio(ctx, p.newRun(), date, data)
}

// ProcessTranscript logs the foods described in text, skipping
// transcription.
func (p *Pipeline) ProcessTranscript(ctx context.Context, date, text string) (Result, error) {
	release, err := p.acquire()
	if err != nil {
		return Result{}, err
	}
	defer release()

	if date == "" {
		date = p.state.Date()
	}
	r := p.newRun()
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{RunID: r.id}, ErrEmptyTranscript
	}
	return p.fromText(ctx, r, date, Result{RunID: r.id, Transcript: text})
}

// acquire claims the session for processing without the microphone. The
// previous state is restored on release.
func (p *Pipeline) acquire() (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	from := p.current
	if from != Idle && from != Denied {
		return nil, ErrBusy
	}
	p.current = Processing
	return func() { p.set(from) }, nil
}

// run is one pass through the pipeline, identified in every log line.
type run struct {
	id  string
	log *zap.Logger
}

func (p *Pipeline) newRun() run {
	id := uuid.NewString()
	return run{id: id, log: p.log.With(zap.String("run", id))}
}

func (p *Pipeline) fromAudio(ctx context.Context, r run, date string, data []byte) (Result, error) {
	res := Result{RunID: r.id}

	tctx, cancel := context.WithTimeout(ctx, p.timeouts.Transcribe)
	text, err := p.transcriber.Transcribe(tctx, data)
	cancel()
	if err != nil {
		r.log.Warn("transcription failed", zap.Error(err))
		return res, &StageError{Stage: StageTranscribe, Err: err}
	}

	res.Transcript = strings.TrimSpace(text)
	if res.Transcript == "" {
		r.log.Info("empty transcript")
		return res, ErrEmptyTranscript
	}
	r.log.Info("transcribed", zap.String("transcript", res.Transcript))
	return p.fromText(ctx, r, date, res)
}

func (p *Pipeline) fromText(ctx context.Context, r run, date string, res Result) (Result, error) {
	log := r.log

	ectx, cancel := context.WithTimeout(ctx, p.timeouts.Extract)
	items, err := p.extractor.ExtractFoods(ectx, res.Transcript)
	cancel()
	if err != nil {
		log.Warn("extraction failed", zap.Error(err))
		return res, &StageError{Stage: StageExtract, Err: err}
	}
	log.Info("extracted items", zap.Int("count", len(items)))

	for _, item := range items {
		lctx, cancel := context.WithTimeout(ctx, p.timeouts.Lookup)
		facts, err := p.lookup.Lookup(lctx, item.Name)
		cancel()
		if err != nil {
			log.Warn("skipping item", zap.String("item", item.Name), zap.Error(err))
			res.Skipped = append(res.Skipped, Skipped{Item: item, Err: err})
			continue
		}

		entry := db.FoodEntry{
			Date:          date,
			Name:          facts.ProductName,
			Unit:          item.Unit,
			KcalPer100:    facts.Calories,
			ProteinPer100: facts.Protein,
			CarbsPer100:   facts.Carbs,
			FatPer100:     facts.Fat,
		}
		entry.SetQuantity(item.Quantity)

		sctx, cancel := context.WithTimeout(ctx, p.timeouts.Storage)
		saved, err := p.store.Create(sctx, entry)
		cancel()
		if err != nil {
			log.Error("persist failed", zap.String("item", item.Name), zap.Error(err))
			return res, &StageError{Stage: StagePersist, Err: fmt.Errorf("save %s: %w", item.Name, err)}
		}

		p.state.Add(saved)
		res.Entries = append(res.Entries, saved)
		log.Info("logged entry",
			zap.Int64("id", saved.ID),
			zap.String("item", saved.Name),
			zap.Float64("calories", saved.Calories))
	}
	return res, nil
}

