package expander_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"expander"
	"expander/internal/digest"
	"expander/internal/format"
	"expander/internal/trace"
)

const helperEnv = "EXPANDER_HELPER_DIR"

var (
	genText  = bytes.Repeat([]byte("pub struct X { x: [u8; 32] }\n"), 256)
	genFile  = append([]byte("/* This is generated code! */\n"), genText...)
	namePath = regexp.MustCompile(`^bar-[0-9a-f]{12}\.rs$`)
)

// noFormat keeps tests independent of any formatter on PATH.
func noFormat() expander.Config {
	return expander.Config{}.WithComment("This is generated code!")
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestMaterialize_NameAndReference(t *testing.T) {
	dir := t.TempDir()
	res, err := expander.Materialize(context.Background(), dir, expander.Request{Name: "bar", Text: genText}, noFormat())
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if !namePath.MatchString(filepath.Base(res.Path)) {
		t.Fatalf("file name %q does not match bar-<12 hex>.rs", filepath.Base(res.Path))
	}
	if res.Reference != `include!("`+res.Path+`")` || res.String() != res.Reference {
		t.Fatalf("reference = %q", res.Reference)
	}
	if !res.Written || res.Waited || res.Formatter != format.StrategyRaw {
		t.Fatalf("result = %+v", res)
	}
	got, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	want := append([]byte("/* This is generated code! */\n"), genText...)
	if !bytes.Equal(got, want) {
		t.Fatalf("content mismatch: %d bytes, want %d", len(got), len(want))
	}
	if len(res.Timings.Phases) != 3 {
		t.Fatalf("timings = %+v", res.Timings)
	}
}

func TestMaterialize_Idempotent(t *testing.T) {
	dir := t.TempDir()
	req := expander.Request{Name: "bar", Text: genText}
	first, err := expander.Materialize(context.Background(), dir, req, noFormat())
	if err != nil {
		t.Fatal(err)
	}
	second, err := expander.Materialize(context.Background(), dir, req, noFormat())
	if err != nil {
		t.Fatal(err)
	}
	if first.Reference != second.Reference {
		t.Fatalf("references differ: %q vs %q", first.Reference, second.Reference)
	}
	if names := listDir(t, dir); len(names) != 1 {
		t.Fatalf("dir holds %v, want one file", names)
	}
}

func TestMaterialize_DeterministicAcrossDirs(t *testing.T) {
	req := expander.Request{Name: "bar", Text: genText}
	a, err := expander.Materialize(context.Background(), t.TempDir(), req, noFormat())
	if err != nil {
		t.Fatal(err)
	}
	b, err := expander.Materialize(context.Background(), t.TempDir(), req, noFormat())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(a.Path) != filepath.Base(b.Path) {
		t.Fatalf("names differ: %s vs %s", filepath.Base(a.Path), filepath.Base(b.Path))
	}
}

func TestMaterialize_DistinctContentDistinctPaths(t *testing.T) {
	dir := t.TempDir()
	a, err := expander.Materialize(context.Background(), dir, expander.Request{Name: "bar", Text: []byte("struct A;")}, noFormat())
	if err != nil {
		t.Fatal(err)
	}
	b, err := expander.Materialize(context.Background(), dir, expander.Request{Name: "bar", Text: []byte("struct B;")}, noFormat())
	if err != nil {
		t.Fatal(err)
	}
	if a.Path == b.Path {
		t.Fatalf("collision at %s", a.Path)
	}
	if names := listDir(t, dir); len(names) != 2 {
		t.Fatalf("dir holds %v, want two files", names)
	}
}

func TestMaterialize_CommentChangesDigest(t *testing.T) {
	dir := t.TempDir()
	req := expander.Request{Name: "bar", Text: []byte("struct A;")}
	plain, err := expander.Materialize(context.Background(), dir, req, expander.Config{})
	if err != nil {
		t.Fatal(err)
	}
	commented, err := expander.Materialize(context.Background(), dir, req, noFormat())
	if err != nil {
		t.Fatal(err)
	}
	if plain.Path == commented.Path {
		t.Fatal("header is not covered by the digest")
	}
	d := digest.Sum([]byte("struct A;"))
	if filepath.Base(plain.Path) != digest.Name("bar", d, "rs") {
		t.Fatalf("plain name = %s", filepath.Base(plain.Path))
	}
}

func TestMaterialize_DryTouchesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	cfg := noFormat()
	cfg.Dry = true
	cfg.Format = format.Full(format.ChannelNightly, format.Edition2021, false)
	text := []byte("struct Foo {") // would fail formatting
	res, err := expander.Materialize(context.Background(), dir, expander.Request{Name: "bar", Text: text}, cfg)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if res.Reference != string(text) || res.Path != "" {
		t.Fatalf("result = %+v", res)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("dry run created %s", dir)
	}
}

func TestMaterialize_DoesNotMutateInput(t *testing.T) {
	text := []byte("struct Foo{x:i32}")
	cfg := noFormat()
	cfg.Format = format.Full(format.ChannelDefault, format.Edition2021, true)
	if _, err := expander.Materialize(context.Background(), t.TempDir(), expander.Request{Name: "bar", Text: text}, cfg); err != nil {
		t.Fatal(err)
	}
	if string(text) != "struct Foo{x:i32}" {
		t.Fatalf("input modified: %q", text)
	}
}

func TestMaterialize_FormatFailure(t *testing.T) {
	invalid := []byte("struct Foo {")
	policy := format.Full(format.ChannelDefault, format.Edition2021, true)
	policy.Formatter = "expander-no-such-formatter"

	t.Run("allowed", func(t *testing.T) {
		dir := t.TempDir()
		ring := trace.NewRingTracer(64, trace.LevelError)
		cfg := expander.Config{Format: policy, Tracer: ring}
		res, err := expander.Materialize(context.Background(), dir, expander.Request{Name: "bar", Text: invalid}, cfg)
		if err != nil {
			t.Fatalf("Materialize: %v", err)
		}
		if res.Formatter != format.StrategyRaw {
			t.Fatalf("formatter = %q", res.Formatter)
		}
		got, err := os.ReadFile(res.Path)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, invalid) {
			t.Fatalf("content = %q", got)
		}
		var warned bool
		for _, ev := range ring.Snapshot() {
			warned = warned || ev.Kind == trace.KindWarning
		}
		if !warned {
			t.Fatal("fallback produced no warning")
		}
	})

	t.Run("strict", func(t *testing.T) {
		dir := t.TempDir()
		strict := policy
		strict.AllowFailure = false
		_, err := expander.Materialize(context.Background(), dir, expander.Request{Name: "bar", Text: invalid}, expander.Config{Format: strict})
		var ee *expander.Error
		if !errors.As(err, &ee) || ee.Op != expander.OpFormat {
			t.Fatalf("err = %v, want format *Error", err)
		}
		if !errors.Is(err, format.ErrFormatFailed) {
			t.Fatalf("err = %v does not wrap ErrFormatFailed", err)
		}
		if names := listDir(t, dir); len(names) != 0 {
			t.Fatalf("failed call wrote %v", names)
		}
	})
}

func TestMaterialize_InvalidName(t *testing.T) {
	for _, name := range []string{"", "..", "a/b", `a\b`} {
		_, err := expander.Materialize(context.Background(), t.TempDir(), expander.Request{Name: name, Text: genText}, noFormat())
		var ee *expander.Error
		if !errors.As(err, &ee) || ee.Op != expander.OpName || !errors.Is(err, digest.ErrInvalidName) {
			t.Errorf("name %q: err = %v", name, err)
		}
	}
}

func TestMaterialize_ConcurrentGoroutines(t *testing.T) {
	dir := t.TempDir()
	req := expander.Request{Name: "bar", Text: genText}
	const n = 8
	results := make([]expander.Result, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = expander.Materialize(context.Background(), dir, req, noFormat())
		}()
	}
	wg.Wait()

	var written int
	for i := range n {
		if errs[i] != nil {
			t.Fatalf("call %d: %v", i, errs[i])
		}
		if results[i].Reference != results[0].Reference {
			t.Fatalf("call %d reference %q differs", i, results[i].Reference)
		}
		if results[i].Written {
			written++
		}
	}
	if written == 0 {
		t.Fatal("nobody wrote the file")
	}
	names := listDir(t, dir)
	if len(names) != 1 {
		t.Fatalf("dir holds %v, want one file", names)
	}
	got, err := os.ReadFile(results[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, genFile) {
		t.Fatalf("file corrupted: %d bytes, want %d", len(got), len(genFile))
	}
}

func TestMaterialize_ConcurrentProcesses(t *testing.T) {
	dir := t.TempDir()
	const n = 4
	outs := make([]*bytes.Buffer, n)
	cmds := make([]*exec.Cmd, 0, n)
	for i := range n {
		cmd := exec.Command(os.Args[0], "-test.run=^TestHelperProcess$")
		cmd.Env = append(os.Environ(), helperEnv+"="+dir)
		outs[i] = &bytes.Buffer{}
		cmd.Stdout = outs[i]
		if err := cmd.Start(); err != nil {
			t.Fatal(err)
		}
		cmds = append(cmds, cmd)
	}
	for i, cmd := range cmds {
		if err := cmd.Wait(); err != nil {
			t.Fatalf("helper %d: %v\n%s", i, err, outs[i])
		}
	}

	want, err := expander.Materialize(context.Background(), t.TempDir(), expander.Request{Name: "bar", Text: genText}, noFormat())
	if err != nil {
		t.Fatal(err)
	}
	for i, out := range outs {
		if !strings.Contains(out.String(), "ref="+filepath.Base(want.Path)) {
			t.Fatalf("helper %d printed %q", i, out)
		}
	}
	names := listDir(t, dir)
	if len(names) != 1 || names[0] != filepath.Base(want.Path) {
		t.Fatalf("dir holds %v, want only %s", names, filepath.Base(want.Path))
	}
	got, err := os.ReadFile(filepath.Join(dir, names[0]))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, genFile) {
		t.Fatalf("file corrupted: %d bytes, want %d", len(got), len(genFile))
	}
}

// TestHelperProcess is the body of TestMaterialize_ConcurrentProcesses' children.
func TestHelperProcess(t *testing.T) {
	dir := os.Getenv(helperEnv)
	if dir == "" {
		t.Skip("helper only")
	}
	for range 4 {
		res, err := expander.Materialize(context.Background(), dir, expander.Request{Name: "bar", Text: genText}, noFormat())
		if err != nil {
			t.Fatal(err)
		}
		fmt.Printf("ref=%s\n", filepath.Base(res.Path))
	}
}

func TestWriteToOutDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OUT_DIR", dir)
	ref, err := expander.WriteToOutDir(context.Background(), expander.Request{Name: "bar", Text: genText}, noFormat())
	if err != nil {
		t.Fatalf("WriteToOutDir: %v", err)
	}
	if !strings.HasPrefix(ref, `include!("`+dir) {
		t.Fatalf("reference = %q", ref)
	}

	t.Setenv("OUT_DIR", "")
	if _, err := expander.WriteToOutDir(context.Background(), expander.Request{Name: "bar", Text: genText}, noFormat()); !errors.Is(err, expander.ErrNoOutDir) {
		t.Fatalf("err = %v, want ErrNoOutDir", err)
	}
}

func TestMaybeWriteToOutDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OUT_DIR", dir)

	ref, err := expander.MaybeWriteToOutDir(context.Background(), expander.Request{Name: "bar", Text: genText}, errors.New(`bad "input"`), noFormat())
	if err != nil {
		t.Fatalf("MaybeWriteToOutDir: %v", err)
	}
	if ref != `compile_error!("bad \"input\"")` {
		t.Fatalf("reference = %q", ref)
	}
	if names := listDir(t, dir); len(names) != 0 {
		t.Fatalf("generation error was written: %v", names)
	}

	ref, err = expander.MaybeWriteToOutDir(context.Background(), expander.Request{Name: "bar", Text: genText}, nil, noFormat())
	if err != nil || !strings.HasPrefix(ref, "include!(") {
		t.Fatalf("ref = %q, err = %v", ref, err)
	}
}

func TestMaterialize_TraceEvents(t *testing.T) {
	ring := trace.NewRingTracer(64, trace.LevelDebug)
	ctx := trace.WithTracer(context.Background(), ring)
	cfg := noFormat()
	cfg.Verbose = true // an enabled tracer in ctx wins over stderr
	if _, err := expander.Materialize(ctx, t.TempDir(), expander.Request{Name: "bar", Text: genText}, cfg); err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for _, ev := range ring.Snapshot() {
		seen[ev.Kind.String()+":"+ev.Name] = true
	}
	for _, key := range []string{
		trace.KindSpanBegin.String() + ":materialize:bar",
		trace.KindSpanEnd.String() + ":format",
		trace.KindSpanEnd.String() + ":digest",
		trace.KindSpanEnd.String() + ":write",
		trace.KindPoint.String() + ":wrote",
	} {
		if !seen[key] {
			t.Errorf("missing event %s in %v", key, seen)
		}
	}
}
