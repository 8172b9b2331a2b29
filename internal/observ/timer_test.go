package observ

import (
	"strings"
	"testing"
)

func TestTimer_Report(t *testing.T) {
	tm := NewTimer()
	i := tm.Begin("format")
	tm.End(i, "printer")
	j := tm.Begin("write")
	tm.End(j, "")
	tm.End(42, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("phases = %d", len(r.Phases))
	}
	if r.Phases[0].Name != "format" || r.Phases[0].Note != "printer" {
		t.Fatalf("unexpected phase %+v", r.Phases[0])
	}
	if r.TotalMS < r.Phases[0].DurationMS {
		t.Fatal("total must cover every phase")
	}
	s := tm.Summary()
	if !strings.Contains(s, "format") || !strings.Contains(s, "// printer") || !strings.Contains(s, "total") {
		t.Fatalf("summary:\n%s", s)
	}
}

func TestTimer_Empty(t *testing.T) {
	var tm *Timer
	if r := tm.Report(); len(r.Phases) != 0 || r.TotalMS != 0 {
		t.Fatal("nil timer should report nothing")
	}
}
