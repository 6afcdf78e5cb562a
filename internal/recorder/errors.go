package recorder

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jwulff/calo/internal/openai"
)

var (
	// ErrBusy is returned when a session is already requesting permission,
	// recording or processing. Nothing is queued.
	ErrBusy = errors.New("recording session already in progress")

	// ErrNotRecording is returned by Stop outside the Recording state.
	ErrNotRecording = errors.New("not recording")

	// ErrPermissionDenied is returned while microphone access is denied.
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrEmptyTranscript means the recording contained no speech.
	ErrEmptyTranscript = errors.New("empty transcript")

	// ErrAborted is returned by Start when Abort arrived while the
	// microphone was still being acquired.
	ErrAborted = errors.New("recording aborted")
)

// Stage names the step of a pipeline run that failed.
type Stage string

const (
	StageCapture    Stage = "capture"
	StageTranscribe Stage = "transcribe"
	StageExtract    Stage = "extract"
	StagePersist    Stage = "persist"
)

// StageError wraps the failure of one pipeline step.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Sticky reports whether err describes a condition that persists until the
// user acts, as opposed to a one-off failure.
func Sticky(err error) bool {
	return errors.Is(err, ErrPermissionDenied) || errors.Is(err, openai.ErrMissingAPIKey)
}

// UserMessage maps an error to a single line suitable for the status bar.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Microphone access denied. Allow access, then press r to retry."
	case errors.Is(err, ErrBusy):
		return "Already recording or processing."
	case errors.Is(err, ErrAborted):
		return "Recording cancelled."
	case errors.Is(err, ErrNotRecording):
		return "Not recording."
	case errors.Is(err, ErrEmptyTranscript):
		return "No speech detected. Nothing was logged."
	case errors.Is(err, openai.ErrMissingAPIKey):
		return "Set your OpenAI API key first (press s, or run `calo config set-key`)."
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return "OpenAI rejected the API key."
	}
	var formatErr *openai.FormatError
	if errors.As(err, &formatErr) {
		return "Could not read the food list from your recording. Nothing was logged."
	}

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Sprintf("Timed out during %s.", stageErr.Stage)
		}
		switch stageErr.Stage {
		case StageCapture:
			return "Recording failed: " + stageErr.Err.Error()
		case StageTranscribe:
			return "Transcription failed: " + stageErr.Err.Error()
		case StageExtract:
			return "Food extraction failed: " + stageErr.Err.Error()
		case StagePersist:
			return "Could not save entry: " + stageErr.Err.Error()
		}
	}
	return err.Error()
}
