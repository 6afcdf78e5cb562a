package recorder

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jwulff/calo/internal/openai"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"denied", ErrPermissionDenied, "Microphone access denied"},
		{"busy", ErrBusy, "Already recording"},
		{"empty", ErrEmptyTranscript, "No speech detected"},
		{"aborted", ErrAborted, "Recording cancelled"},
		{"missing key", &StageError{Stage: StageTranscribe, Err: openai.ErrMissingAPIKey}, "Set your OpenAI API key"},
		{"unauthorized", &StageError{Stage: StageTranscribe, Err: &openai.APIError{Status: 401}}, "rejected the API key"},
		{"format", &StageError{Stage: StageExtract, Err: &openai.FormatError{Reason: "x"}}, "Nothing was logged"},
		{"persist", &StageError{Stage: StagePersist, Err: errors.New("disk full")}, "Could not save entry: disk full"},
		{"plain", fmt.Errorf("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserMessage(tt.err)
			if tt.want == "" && got != "" {
				t.Errorf("UserMessage = %q, want empty", got)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("UserMessage = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestSticky(t *testing.T) {
	if !Sticky(ErrPermissionDenied) {
		t.Error("permission denial should be sticky")
	}
	if !Sticky(&StageError{Stage: StageExtract, Err: openai.ErrMissingAPIKey}) {
		t.Error("missing key should be sticky")
	}
	if Sticky(ErrEmptyTranscript) {
		t.Error("empty transcript should be transient")
	}
}
