package diagfmt

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	Width     uint8 // wrap long messages, 0 means no limit
	ShowNotes bool
	// ShowTitle appends the code title on a second line.
	ShowTitle bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	Max          int // output truncation, the Bag keeps everything
	IncludeNotes bool
	Indent       bool
}
