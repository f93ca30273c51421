package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrInvalidInput, "caption %d of image %d", 2, 7)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatal("AppError should unwrap to its sentinel")
	}
	if got, want := err.Error(), "invalid input: caption 2 of image 7"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config", New(ErrConfig, "x"), ExitConfig},
		{"input", fmt.Errorf("load: %w", New(ErrInvalidInput, "x")), ExitInvalidInput},
		{"lemmatizer", New(ErrLemmatizer, "x"), ExitExternalService},
		{"malformed", New(ErrMalformedResponse, "x"), ExitExternalService},
		{"dependency", New(ErrDependency, "x"), ExitExternalService},
		{"timeout", fmt.Errorf("lemma: %w", ErrTimeout), ExitExternalService},
		{"output", New(ErrOutput, "x"), ExitOutput},
		{"unknown", errors.New("boom"), ExitInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
