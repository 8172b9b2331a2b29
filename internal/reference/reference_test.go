package reference

import "testing"

func TestInclude(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/tmp/out/bar-0123456789ab.rs", `include!("/tmp/out/bar-0123456789ab.rs")`},
		{`C:\out\bar.rs`, `include!("C:\\out\\bar.rs")`},
		{`we"ird`, `include!("we\"ird")`},
	}
	for _, tt := range tests {
		if got := Include(tt.path); got != tt.want {
			t.Errorf("Include(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestCompileError(t *testing.T) {
	got := CompileError("bad input\nline 2\x01")
	want := `compile_error!("bad input\nline 2\u{1}")`
	if got != want {
		t.Fatalf("CompileError = %s, want %s", got, want)
	}
}
