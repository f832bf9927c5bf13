package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("bad input"), KindValidation},
		{"not found", NotFound("missing %d", 7), KindNotFound},
		{"forbidden", Forbidden("nope"), KindForbidden},
		{"rate limit", RateLimit("slow down"), KindRateLimit},
		{"cooldown", Cooldown("wait"), KindCooldown},
		{"conflict", Conflict("raced"), KindConflict},
		{"plain error", errors.New("disk on fire"), KindInternal},
		{"nil", nil, KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("approve task: %w", Conflict("task 3 already approved"))
	if got := KindOf(err); got != KindConflict {
		t.Errorf("KindOf(wrapped) = %v, want conflict", got)
	}
	if !IsKind(err, KindConflict) {
		t.Error("IsKind should see through wrapping")
	}
}

func TestErrorMessage(t *testing.T) {
	err := NotFound("task %d not found", 42)
	if err.Error() != "task 42 not found" {
		t.Errorf("message = %q", err.Error())
	}
}
