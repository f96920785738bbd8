package scenario

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/sill-dev/sill/internal/errors"
)

// Scenario is a replayable lifecycle script. Kinds are registered first,
// then steps run in order against a fresh in-memory tree. The expect block
// is compared line by line against the recorded callback trace.
type Scenario struct {
	// Name labels the scenario in output.
	Name string `yaml:"name,omitempty"`

	// Kinds lists the element kinds the scenario registers.
	Kinds []Kind `yaml:"kinds"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Expect is the expected callback trace. Lines may reference elements
	// and documents created by steps as $handle; the reference expands to
	// the host identity assigned at run time. Empty means no assertion.
	Expect []string `yaml:"expect,omitempty"`
}

// Kind declares one element kind to register for the scenario.
type Kind struct {
	// Kind is the element kind name, e.g. "x-badge".
	Kind string `yaml:"kind"`

	// Observed lists the attribute names delivered to the kind.
	Observed []string `yaml:"observed,omitempty"`
}

// Step is one scenario action. Exactly one action field must be set; the
// rest parameterize it.
type Step struct {
	// Create makes a detached element of the given kind.
	Create string `yaml:"create,omitempty"`

	// As names the created element or document for later steps.
	As string `yaml:"as,omitempty"`

	// NewDocument creates an additional document under the given handle.
	NewDocument string `yaml:"new-document,omitempty"`

	// Connect attaches the element under the main document root, or under
	// the element named by Under.
	Connect string `yaml:"connect,omitempty"`
	Under   string `yaml:"under,omitempty"`

	// Disconnect detaches the element.
	Disconnect string `yaml:"disconnect,omitempty"`

	// Adopt moves the element into the document named by Doc. Connected
	// controls whether it is attached under the new root.
	Adopt     string `yaml:"adopt,omitempty"`
	Doc       string `yaml:"doc,omitempty"`
	Connected bool   `yaml:"connected,omitempty"`

	// SetAttribute writes Name=Value on the element.
	SetAttribute string `yaml:"set-attribute,omitempty"`
	Name         string `yaml:"name,omitempty"`
	Value        string `yaml:"value,omitempty"`

	// RemoveAttribute removes Name from the element.
	RemoveAttribute string `yaml:"remove-attribute,omitempty"`

	// Destroy removes the element from the tree entirely.
	Destroy string `yaml:"destroy,omitempty"`
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E140").
			WithDetail("Cannot read " + path).
			Wrap(err)
	}
	return Parse(path, data)
}

// Parse parses scenario YAML. The path is used for error locations only.
func Parse(path string, data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.New("E140").
			WithDetail("Failed to parse " + path + ": " + err.Error()).
			WithLocationFromYAML(path, err).
			WithSuggestion("Check the scenario YAML syntax")
	}

	if len(s.Kinds) == 0 {
		return nil, errors.New("E140").
			WithDetail("Scenario " + path + " declares no kinds").
			WithSuggestion("Add a 'kinds' block with at least one element kind")
	}
	if len(s.Steps) == 0 {
		return nil, errors.New("E140").
			WithDetail("Scenario " + path + " has no steps")
	}

	for i, st := range s.Steps {
		if err := st.check(i); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// check validates that the step names exactly one action and carries the
// parameters that action needs.
func (st Step) check(i int) error {
	n := 0
	for _, set := range []bool{
		st.Create != "", st.NewDocument != "", st.Connect != "",
		st.Disconnect != "", st.Adopt != "", st.SetAttribute != "",
		st.RemoveAttribute != "", st.Destroy != "",
	} {
		if set {
			n++
		}
	}
	switch {
	case n == 0:
		return errors.New("E141").
			WithDetail("Step " + strconv.Itoa(i+1) + " sets no action").
			WithSuggestion("Use one of create, new-document, connect, disconnect, adopt, set-attribute, remove-attribute, destroy")
	case n > 1:
		return errors.New("E141").
			WithDetail("Step " + strconv.Itoa(i+1) + " sets more than one action")
	}

	if st.Create != "" && st.As == "" {
		return errors.New("E140").
			WithDetail("Step " + strconv.Itoa(i+1) + ": create needs 'as' to name the element")
	}
	if st.Adopt != "" && st.Doc == "" {
		return errors.New("E140").
			WithDetail("Step " + strconv.Itoa(i+1) + ": adopt needs 'doc'").
			WithSuggestion("Create the document first with a 'new-document' step, or use 'main'")
	}
	if st.SetAttribute != "" && st.Name == "" {
		return errors.New("E140").
			WithDetail("Step " + strconv.Itoa(i+1) + ": set-attribute needs 'name'")
	}
	if st.RemoveAttribute != "" && st.Name == "" {
		return errors.New("E140").
			WithDetail("Step " + strconv.Itoa(i+1) + ": remove-attribute needs 'name'")
	}
	return nil
}
