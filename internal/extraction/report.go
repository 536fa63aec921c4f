package extraction

import "time"

// File outcomes.
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// FileReport describes what happened to one source file under one recipe.
type FileReport struct {
	Source      string       `json:"source"`
	Recipe      string       `json:"recipe"`
	Output      string       `json:"output,omitempty"`
	Status      string       `json:"status"`
	Encoding    string       `json:"encoding,omitempty"`
	Rows        int          `json:"rows"`
	Excluded    int          `json:"excluded,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// Report summarizes one extraction run.
type Report struct {
	RunID      string       `json:"run_id"`
	Root       string       `json:"root"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Files      []FileReport `json:"files"`
}

func (r *Report) count(status string) int {
	n := 0
	for _, f := range r.Files {
		if f.Status == status {
			n++
		}
	}
	return n
}

// Processed is the number of outputs written.
func (r *Report) Processed() int { return r.count(StatusProcessed) }

// Skipped is the number of malformed sources passed over.
func (r *Report) Skipped() int { return r.count(StatusSkipped) }

// Failed is the number of sources that could not be read or written.
func (r *Report) Failed() int { return r.count(StatusFailed) }

// Warnings is the number of warning diagnostics across all files.
func (r *Report) Warnings() int {
	n := 0
	for _, f := range r.Files {
		for _, d := range f.Diagnostics {
			if d.Level == LevelWarning {
				n++
			}
		}
	}
	return n
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary is the compact form returned over the API.
type Summary struct {
	RunID      string   `json:"run_id"`
	Processed  int      `json:"processed"`
	Skipped    int      `json:"skipped"`
	Failed     int      `json:"failed"`
	Warnings   int      `json:"warnings"`
	DurationMS float64  `json:"duration_ms"`
	Outputs    []string `json:"outputs"`
}

// Summarize condenses the report. Outputs are relative to Root.
func (r *Report) Summarize() Summary {
	s := Summary{
		RunID:      r.RunID,
		Processed:  r.Processed(),
		Skipped:    r.Skipped(),
		Failed:     r.Failed(),
		Warnings:   r.Warnings(),
		DurationMS: float64(r.Duration().Microseconds()) / 1000,
		Outputs:    []string{},
	}
	for _, f := range r.Files {
		if f.Status == StatusProcessed {
			s.Outputs = append(s.Outputs, f.Output)
		}
	}
	return s
}
