package outfile_test

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"expander/internal/lock"
	"expander/internal/outfile"
)

const helperEnv = "EXPANDER_OUTFILE_HELPER_PATH"

var (
	header = []byte("/* This is generated code! */\n")
	body   = bytes.Repeat([]byte("pub struct X { x: [u8; 32] }\n"), 512)
)

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func want() []byte {
	return append(append([]byte{}, header...), body...)
}

func TestWrite_Modes(t *testing.T) {
	for _, mode := range []outfile.Mode{outfile.ModeDefault, outfile.ModeAtomic, outfile.ModeInPlace} {
		t.Run(mode.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "bar-0123456789ab.rs")
			out, err := outfile.Write(path, header, body, mode)
			if err != nil {
				t.Fatalf("Write: %v", err)
			}
			if !out.Written || out.Waited {
				t.Fatalf("outcome = %+v, want written", out)
			}
			if out.Size != int64(len(header)+len(body)) {
				t.Fatalf("size = %d", out.Size)
			}
			if got := readFile(t, path); !bytes.Equal(got, want()) {
				t.Fatalf("file content mismatch (%d bytes)", len(got))
			}
		})
	}
}

func TestWrite_RewriteReplacesStaleContent(t *testing.T) {
	for _, mode := range []outfile.Mode{outfile.ModeAtomic, outfile.ModeInPlace} {
		t.Run(mode.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bar-0123456789ab.rs")
			stale := bytes.Repeat([]byte("garbage "), 4096)
			if err := os.WriteFile(path, stale, 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := outfile.Write(path, nil, []byte("struct Foo;\n"), mode); err != nil {
				t.Fatal(err)
			}
			if got := readFile(t, path); string(got) != "struct Foo;\n" {
				t.Fatalf("got %q", got)
			}
		})
	}
}

func TestWrite_AtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bar-0123456789ab.rs")
	if _, err := outfile.Write(path, header, body, outfile.ModeAtomic); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("unexpected directory contents: %v", names)
	}
}

func TestWrite_LoserWaitsAndDoesNotWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bar-0123456789ab.rs")
	holder, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer holder.Close()
	if ok, err := lock.TryLock(holder); err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}

	type result struct {
		out outfile.Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := outfile.Write(path, header, body, outfile.ModeInPlace)
		done <- result{out, err}
	}()

	select {
	case r := <-done:
		t.Fatalf("Write returned while the lock was held: %+v", r)
	case <-time.After(100 * time.Millisecond):
	}

	// The holder plays the winning writer.
	if _, err := holder.Write(want()); err != nil {
		t.Fatal(err)
	}
	if err := lock.Unlock(holder); err != nil {
		t.Fatal(err)
	}

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("Write: %v", r.err)
		}
		if !r.out.Waited || r.out.Written {
			t.Fatalf("outcome = %+v, want waited", r.out)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Write did not return after the lock was released")
	}
	if got := readFile(t, path); !bytes.Equal(got, want()) {
		t.Fatal("loser must not touch the file")
	}
}

func TestWrite_ConcurrentGoroutines(t *testing.T) {
	for _, mode := range []outfile.Mode{outfile.ModeAtomic, outfile.ModeInPlace} {
		t.Run(mode.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bar-0123456789ab.rs")
			const n = 16
			var wg sync.WaitGroup
			errs := make([]error, n)
			for i := range n {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = outfile.Write(path, header, body, mode)
				}(i)
			}
			wg.Wait()
			for i, err := range errs {
				if err != nil {
					t.Fatalf("writer %d: %v", i, err)
				}
			}
			if got := readFile(t, path); !bytes.Equal(got, want()) {
				t.Fatalf("file corrupted: %d bytes, want %d", len(got), len(want()))
			}
		})
	}
}

func TestWrite_ConcurrentProcesses(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns subprocesses")
	}
	path := filepath.Join(t.TempDir(), "bar-0123456789ab.rs")
	const n = 4
	cmds := make([]*exec.Cmd, 0, n)
	for range n {
		cmd := exec.Command(os.Args[0], "-test.run=^TestHelperProcess$")
		cmd.Env = append(os.Environ(), helperEnv+"="+path)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Start(); err != nil {
			t.Fatal(err)
		}
		cmds = append(cmds, cmd)
	}
	for i, cmd := range cmds {
		if err := cmd.Wait(); err != nil {
			t.Fatalf("helper %d: %v", i, err)
		}
	}
	if got := readFile(t, path); !bytes.Equal(got, want()) {
		t.Fatalf("file corrupted: %d bytes, want %d", len(got), len(want()))
	}
}

// TestHelperProcess is the body of TestWrite_ConcurrentProcesses' children.
func TestHelperProcess(t *testing.T) {
	path := os.Getenv(helperEnv)
	if path == "" {
		t.Skip("helper only")
	}
	for range 8 {
		if _, err := outfile.Write(path, header, body, outfile.ModeDefault); err != nil {
			t.Fatal(err)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want outfile.Mode
		ok   bool
	}{
		{"", outfile.ModeDefault, true},
		{"atomic", outfile.ModeAtomic, true},
		{"InPlace", outfile.ModeInPlace, true},
		{"in-place", outfile.ModeInPlace, true},
		{"rename", outfile.ModeDefault, false},
	}
	for _, tt := range tests {
		got, err := outfile.ParseMode(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseMode(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
