package scenario

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/sill-dev/sill/internal/errors"
	"github.com/sill-dev/sill/pkg/custom"
	"github.com/sill-dev/sill/pkg/dom"
	"github.com/sill-dev/sill/pkg/hosttest"
)

// MainDocument is the handle of the document every run starts with.
const MainDocument = "main"

// Result is the outcome of a scenario run.
type Result struct {
	// Trace is the recorded callback trace, one line per event.
	Trace []string

	// Mismatches describes every divergence from the expect block.
	// Empty when the trace matched or the scenario had no expect block.
	Mismatches []string

	// Stats is the dispatcher counter snapshot after the run.
	Stats custom.Stats
}

// OK reports whether the trace matched the expectations.
func (r *Result) OK() bool {
	return len(r.Mismatches) == 0
}

// Run registers the scenario's kinds, replays its steps against an
// in-memory tree and compares the callback trace with the expect block.
// A nil logger silences dispatch logging.
func Run(s *Scenario, logger *slog.Logger) (*Result, error) {
	reg := custom.NewRegistry()
	rec := &hosttest.Recorder{}

	for _, k := range s.Kinds {
		kind, err := dom.ParseKindName(k.Kind)
		if err != nil {
			return nil, errors.New("E140").
				WithDetail("Invalid kind name " + strconv.Quote(k.Kind)).
				Wrap(err)
		}
		observed := make([]dom.Name, 0, len(k.Observed))
		for _, o := range k.Observed {
			n, err := dom.ParseName(o)
			if err != nil {
				return nil, errors.New("E140").
					WithDetail("Invalid observed attribute " + strconv.Quote(o) + " on " + k.Kind).
					Wrap(err)
			}
			observed = append(observed, n)
		}
		if err := hosttest.DefineRecorder(reg, kind, rec, observed...); err != nil {
			return nil, errors.New("E140").Wrap(err)
		}
	}

	var opts []custom.Option
	if logger != nil {
		opts = append(opts, custom.WithLogger(logger))
	}
	tree := hosttest.New()
	disp := custom.NewDispatcher(tree, reg, opts...)

	r := &runner{
		driver: hosttest.NewDriver(tree, disp),
		refs:   make(map[string]dom.NodeRef),
		docs:   make(map[string]dom.DocumentRef),
	}
	r.docs[MainDocument] = r.driver.Document()

	for i, st := range s.Steps {
		if err := r.step(i, st); err != nil {
			return nil, err
		}
	}

	res := &Result{Trace: rec.Events(), Stats: disp.Stats()}
	if len(s.Expect) > 0 {
		res.Mismatches = compare(r.expand(s.Expect), res.Trace)
	}
	return res, nil
}

// runner holds the live tree plus the handle tables steps refer to.
type runner struct {
	driver *hosttest.Driver
	refs   map[string]dom.NodeRef
	docs   map[string]dom.DocumentRef
}

func (r *runner) step(i int, st Step) error {
	switch {
	case st.Create != "":
		name, err := dom.ParseName(st.Create)
		if err != nil {
			return stepErr(i, "create", err)
		}
		r.refs[st.As] = r.driver.CreateElement(name)

	case st.NewDocument != "":
		r.docs[st.NewDocument] = r.driver.NewDocument()

	case st.Connect != "":
		ref, err := r.ref(i, st.Connect)
		if err != nil {
			return err
		}
		if st.Under != "" {
			parent, err := r.ref(i, st.Under)
			if err != nil {
				return err
			}
			if err := r.driver.ConnectUnder(ref, parent); err != nil {
				return stepErr(i, "connect", err)
			}
			return nil
		}
		if err := r.driver.Connect(ref); err != nil {
			return stepErr(i, "connect", err)
		}

	case st.Disconnect != "":
		ref, err := r.ref(i, st.Disconnect)
		if err != nil {
			return err
		}
		if err := r.driver.Disconnect(ref); err != nil {
			return stepErr(i, "disconnect", err)
		}

	case st.Adopt != "":
		ref, err := r.ref(i, st.Adopt)
		if err != nil {
			return err
		}
		doc, ok := r.docs[st.Doc]
		if !ok {
			return errors.New("E142").
				WithDetail("Step " + strconv.Itoa(i+1) + " references unknown document " + strconv.Quote(st.Doc)).
				WithSuggestion("Create it earlier with a 'new-document' step")
		}
		if err := r.driver.Adopt(ref, doc, st.Connected); err != nil {
			return stepErr(i, "adopt", err)
		}

	case st.SetAttribute != "":
		ref, err := r.ref(i, st.SetAttribute)
		if err != nil {
			return err
		}
		name, err := dom.ParseName(st.Name)
		if err != nil {
			return stepErr(i, "set-attribute", err)
		}
		if err := r.driver.SetAttribute(ref, name, st.Value); err != nil {
			return stepErr(i, "set-attribute", err)
		}

	case st.RemoveAttribute != "":
		ref, err := r.ref(i, st.RemoveAttribute)
		if err != nil {
			return err
		}
		name, err := dom.ParseName(st.Name)
		if err != nil {
			return stepErr(i, "remove-attribute", err)
		}
		if err := r.driver.RemoveAttribute(ref, name); err != nil {
			return stepErr(i, "remove-attribute", err)
		}

	case st.Destroy != "":
		ref, err := r.ref(i, st.Destroy)
		if err != nil {
			return err
		}
		if err := r.driver.Destroy(ref); err != nil {
			return stepErr(i, "destroy", err)
		}
	}
	return nil
}

func (r *runner) ref(i int, handle string) (dom.NodeRef, error) {
	ref, ok := r.refs[handle]
	if !ok {
		return dom.NodeRef{}, errors.New("E142").
			WithDetail("Step " + strconv.Itoa(i+1) + " references unknown element " + strconv.Quote(handle)).
			WithSuggestion("Create it earlier with a 'create' step")
	}
	return ref, nil
}

func stepErr(i int, action string, err error) error {
	return errors.New("E142").
		WithDetail("Step " + strconv.Itoa(i+1) + " (" + action + ") failed: " + err.Error()).
		Wrap(err)
}

// expand substitutes $handle references in expect lines with the host
// identities assigned during the run. Longer handles are substituted
// first so one handle cannot clip another's prefix.
func (r *runner) expand(lines []string) []string {
	handles := make([]string, 0, len(r.refs)+len(r.docs))
	values := make(map[string]string, len(r.refs)+len(r.docs))
	for h, ref := range r.refs {
		handles = append(handles, h)
		values[h] = ref.String()
	}
	for h, doc := range r.docs {
		handles = append(handles, h)
		values[h] = doc.String()
	}
	sort.Slice(handles, func(a, b int) bool {
		if len(handles[a]) != len(handles[b]) {
			return len(handles[a]) > len(handles[b])
		}
		return handles[a] < handles[b]
	})

	pairs := make([]string, 0, len(handles)*2)
	for _, h := range handles {
		pairs = append(pairs, "$"+h, values[h])
	}
	rep := strings.NewReplacer(pairs...)

	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = rep.Replace(line)
	}
	return out
}

// compare matches the expected trace against the observed one line by line.
func compare(want, got []string) []string {
	var mismatches []string
	for i := 0; i < len(want) || i < len(got); i++ {
		switch {
		case i >= len(got):
			mismatches = append(mismatches, fmt.Sprintf("line %d: expected %q, trace ended", i+1, want[i]))
		case i >= len(want):
			mismatches = append(mismatches, fmt.Sprintf("line %d: unexpected %q", i+1, got[i]))
		case want[i] != got[i]:
			mismatches = append(mismatches, fmt.Sprintf("line %d: expected %q, got %q", i+1, want[i], got[i]))
		}
	}
	return mismatches
}
