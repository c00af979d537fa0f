package observ

import "testing"

func TestTimer_EmptyReportIsZero(t *testing.T) {
	timer := NewTimer()
	report := timer.Report()
	if report.TotalMS != 0 || len(report.Phases) != 0 {
		t.Fatalf("Report() = %+v, want zero value", report)
	}
}

func TestTimer_BeginEndRecordsPhase(t *testing.T) {
	timer := NewTimer()
	idx := timer.Begin("submit")
	timer.End(idx, "ok")

	report := timer.Report()
	if len(report.Phases) != 1 {
		t.Fatalf("Phases = %v, want 1 entry", report.Phases)
	}
	p := report.Phases[0]
	if p.Name != "submit" || p.Note != "ok" {
		t.Fatalf("phase = %+v, want name=submit note=ok", p)
	}
	if p.DurationMS < 0 {
		t.Fatalf("DurationMS = %v, want non-negative", p.DurationMS)
	}
}

func TestTimer_EndWithInvalidIndexIsIgnored(t *testing.T) {
	timer := NewTimer()
	timer.End(5, "ignored")
	if report := timer.Report(); len(report.Phases) != 0 {
		t.Fatalf("Report() = %+v, want no phases recorded", report)
	}
}

func TestTimer_TotalSumsAllPhases(t *testing.T) {
	timer := NewTimer()
	a := timer.Begin("a")
	timer.End(a, "")
	b := timer.Begin("b")
	timer.End(b, "")

	report := timer.Report()
	var sum float64
	for _, p := range report.Phases {
		sum += p.DurationMS
	}
	if report.TotalMS != sum {
		t.Fatalf("TotalMS = %v, want sum of phases %v", report.TotalMS, sum)
	}
}
