package service

import "testing"

func TestHashContentDeterministic(t *testing.T) {
	a := HashContent([]byte("hello world"))
	b := HashContent([]byte("hello world"))
	if a != b {
		t.Fatalf("same input produced different digests: %s vs %s", a, b)
	}

	// Known SHA-256 vector.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if a != want {
		t.Fatalf("unexpected digest: got %s, want %s", a, want)
	}
}

func TestHashContentDistinguishesInputs(t *testing.T) {
	if HashContent([]byte("a")) == HashContent([]byte("b")) {
		t.Fatal("different inputs produced the same digest")
	}
}

func TestHashContentEmptyInput(t *testing.T) {
	got := HashContent(nil)
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != want {
		t.Fatalf("unexpected digest for empty input: got %s, want %s", got, want)
	}
}
