package diag

// DedupReporter forwards a diagnostic only the first time its code,
// severity, scope, template and message occur together. A component that
// fails on every re-render is reported once; later repeats are counted.
type DedupReporter struct {
	next       Reporter
	seen       map[dedupKey]int
	suppressed int
}

type dedupKey struct {
	code  Code
	sev   Severity
	scope uint64
	tmpl  string
	msg   string
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[dedupKey]int)}
}

func (r *DedupReporter) Report(code Code, sev Severity, primary Site, msg string, notes []Note) {
	if r == nil {
		return
	}
	key := dedupKey{code, sev, primary.Scope, primary.Template, msg}
	r.seen[key]++
	if r.seen[key] > 1 {
		r.suppressed++
		return
	}
	if r.next != nil {
		r.next.Report(code, sev, primary, msg, notes)
	}
}

// Suppressed is the number of repeats not forwarded.
func (r *DedupReporter) Suppressed() int {
	if r == nil {
		return 0
	}
	return r.suppressed
}
