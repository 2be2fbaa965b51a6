package auth

import (
	"context"
	"testing"
)

func TestSubjectFrom(t *testing.T) {
	t.Parallel()

	if _, ok := SubjectFrom(context.Background()); ok {
		t.Fatalf("expected no subject on empty context")
	}
	if _, ok := SubjectFrom(WithSubject(context.Background(), "")); ok {
		t.Fatalf("expected empty subject to be ignored")
	}
	got, ok := SubjectFrom(WithSubject(context.Background(), "operator"))
	if !ok || got != "operator" {
		t.Fatalf("expected operator, got %q", got)
	}
}
