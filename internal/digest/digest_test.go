package digest_test

import (
	"errors"
	"regexp"
	"testing"

	"expander/internal/digest"
)

var nameRe = regexp.MustCompile(`^bar-[0-9a-f]{12}\.rs$`)

func TestSum_Deterministic(t *testing.T) {
	a := digest.Sum([]byte("struct Foo;"))
	b := digest.Sum([]byte("struct Foo;"))
	if a != b {
		t.Fatal("same input must produce the same digest")
	}
	if a == (digest.Digest{}) {
		t.Fatal("digest should be non-zero")
	}
}

func TestSum_PartsAreConcatenated(t *testing.T) {
	whole := digest.Sum([]byte("/* hdr */\nstruct Foo;"))
	split := digest.Sum([]byte("/* hdr */\n"), []byte("struct Foo;"))
	if whole != split {
		t.Fatal("parts must hash as one stream")
	}
}

func TestSum_DifferentContentDiffers(t *testing.T) {
	a := digest.Sum([]byte("struct A;"))
	b := digest.Sum([]byte("struct B;"))
	if digest.Suffix(a) == digest.Suffix(b) {
		t.Fatalf("suffix collision for different content: %s", digest.Suffix(a))
	}
}

func TestName(t *testing.T) {
	d := digest.Sum([]byte("T"))
	name := digest.Name("bar", d, "rs")
	if !nameRe.MatchString(name) {
		t.Fatalf("unexpected name %q", name)
	}
	if got := digest.Name("bar", d, ".rs"); got != name {
		t.Fatalf("leading dot in ext should be ignored: %q", got)
	}
	if got := digest.Name("bar", d, ""); got != "bar-"+digest.Suffix(d) {
		t.Fatalf("empty ext: %q", got)
	}
}

func TestCleanBase(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "bar", want: "bar"},
		{in: "  baz ", want: "baz"},
		{in: "café", want: "café"},
		{in: "", wantErr: true},
		{in: "..", wantErr: true},
		{in: "a/b", wantErr: true},
		{in: `a\b`, wantErr: true},
		{in: "a\x00b", wantErr: true},
	}
	for _, tt := range tests {
		got, err := digest.CleanBase(tt.in)
		if tt.wantErr {
			if !errors.Is(err, digest.ErrInvalidName) {
				t.Errorf("CleanBase(%q) error = %v, want ErrInvalidName", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("CleanBase(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("CleanBase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatParse(t *testing.T) {
	d := digest.Sum([]byte("round"))
	back, err := digest.Parse(digest.Format(d))
	if err != nil {
		t.Fatal(err)
	}
	if back != d {
		t.Fatal("parse(format(d)) != d")
	}
	if _, err := digest.Parse("abcd"); err == nil {
		t.Fatal("short digest must be rejected")
	}
}
