package cases

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwebster45206/case-engine/pkg/conditions"
)

// CrimeStatus is a crime as offered on the accusation screen.
type CrimeStatus struct {
	Crime
	Available bool   `json:"available"`
	Needs     string `json:"needs,omitempty"` // hint shown while locked
}

// FileStatus is a case file and whether it is open.
type FileStatus struct {
	File
	Active bool `json:"active"`
}

// Verdict is the outcome of an accusation.
type Verdict struct {
	SuspectID string `json:"suspect_id"`
	CrimeID   string `json:"crime_id"`
	Culprit   string `json:"culprit"`
	FileID    string `json:"file_id,omitempty"`
	Correct   bool   `json:"correct"`
}

// Resolver answers accusation questions against live state.
type Resolver struct {
	cfg       *Config
	state     conditions.StateView
	evaluator *conditions.Evaluator
	logger    *slog.Logger
}

// NewResolver creates a resolver. A nil logger uses slog.Default().
func NewResolver(cfg *Config, state conditions.StateView, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{cfg: cfg, state: state, evaluator: conditions.NewEvaluator(logger), logger: logger}
}

// Load switches to another case.
func (r *Resolver) Load(cfg *Config) {
	r.cfg = cfg
}

// Files lists every case file in declaration order.
func (r *Resolver) Files() []FileStatus {
	if r.cfg == nil {
		return nil
	}
	out := make([]FileStatus, len(r.cfg.Files))
	for i, f := range r.cfg.Files {
		out[i] = FileStatus{File: f, Active: r.fileActive(f)}
	}
	return out
}

// ActiveFiles lists the open case files.
func (r *Resolver) ActiveFiles() []File {
	var out []File
	for _, fs := range r.Files() {
		if fs.Active {
			out = append(out, fs.File)
		}
	}
	return out
}

func (r *Resolver) fileActive(f File) bool {
	return r.evaluator.Holds(f.ActiveWhen, r.state)
}

// Crimes lists the crimes a suspect can be accused of, in declaration order.
func (r *Resolver) Crimes(suspectID string) []CrimeStatus {
	if r.cfg == nil {
		return nil
	}
	var out []CrimeStatus
	for _, c := range r.cfg.Crimes {
		if c.SuspectID != suspectID {
			continue
		}
		out = append(out, r.status(c))
	}
	return out
}

func (r *Resolver) status(c Crime) CrimeStatus {
	st := CrimeStatus{Crime: c}
	if c.File != "" {
		f, ok := r.cfg.File(c.File)
		if ok && !r.fileActive(f) {
			st.Needs = conditions.Describe(*f.ActiveWhen)
			return st
		}
	}
	if !r.evaluator.Evaluate(c.UnlockWhen, r.state) {
		st.Needs = conditions.Describe(c.UnlockWhen)
		return st
	}
	st.Available = true
	return st
}

// Summary renders a suspect's crimes, one per line:
//
//	Crimes:
//	- Drug possession: Available
//	- Assault: Locked (needs whiskersCheeseCount>=2)
//
// A suspect with no crimes gets an empty string.
func (r *Resolver) Summary(suspectID string) string {
	crimes := r.Crimes(suspectID)
	if len(crimes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Crimes:")
	for _, c := range crimes {
		if c.Available {
			fmt.Fprintf(&b, "\n- %s: Available", c.Label)
		} else {
			fmt.Fprintf(&b, "\n- %s: Locked (needs %s)", c.Label, c.Needs)
		}
	}
	return b.String()
}

// Culprit returns who actually committed a crime: the culprit of its case file,
// else the case culprit, else the crime's own suspect.
func (r *Resolver) Culprit(c Crime) string {
	if f, ok := r.cfg.File(c.File); ok && c.File != "" {
		return f.Culprit
	}
	if r.cfg.Culprit != "" {
		return r.cfg.Culprit
	}
	return c.SuspectID
}

// Accuse judges an accusation. Locked and unknown crimes are refused.
func (r *Resolver) Accuse(suspectID, crimeID string) (Verdict, error) {
	if r.cfg == nil {
		return Verdict{}, fmt.Errorf("%w: %s", ErrUnknownCrime, crimeID)
	}
	c, ok := r.cfg.Crime(crimeID)
	if !ok {
		return Verdict{}, fmt.Errorf("%w: %s", ErrUnknownCrime, crimeID)
	}
	if st := r.status(c); !st.Available {
		return Verdict{}, fmt.Errorf("%w: %s needs %s", ErrCrimeLocked, crimeID, st.Needs)
	}
	culprit := r.Culprit(c)
	v := Verdict{
		SuspectID: suspectID,
		CrimeID:   crimeID,
		Culprit:   culprit,
		FileID:    c.File,
		Correct:   suspectID == culprit,
	}
	r.logger.Info("Accusation made",
		"case_id", r.cfg.ID,
		"suspect_id", suspectID,
		"crime_id", crimeID,
		"correct", v.Correct)
	return v, nil
}
