package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a storage scenario loaded from YAML.
type Scenario struct {
	// Name uniquely identifies the scenario. It also names the golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Schemas lists CUE files declaring the entity types, relative to the
	// scenario file.
	Schemas []string `yaml:"schemas"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions"`
}

// Step operations.
const (
	OpCreate   = "create"
	OpModify   = "modify"
	OpRemove   = "remove"
	OpSnapshot = "snapshot"
)

// Step is one storage operation.
type Step struct {
	Op string `yaml:"op"`

	// Entity is the entity type to create.
	Entity string `yaml:"entity,omitempty"`

	// As binds the created entity, or names the snapshot taken.
	As string `yaml:"as,omitempty"`

	// Target is the alias a modify or remove applies to.
	Target string `yaml:"target,omitempty"`

	// Source is the entity source on create, or the new source on modify.
	Source string `yaml:"source,omitempty"`

	// ID requests an explicit entity ID on create.
	ID int64 `yaml:"id,omitempty"`

	// Values are the field values supplied on create.
	Values map[string]any `yaml:"values,omitempty"`

	// Set replaces field values on modify.
	Set map[string]any `yaml:"set,omitempty"`

	// Add and Remove edit list and set fields element by element on modify.
	Add    map[string][]any `yaml:"add,omitempty"`
	Remove map[string][]any `yaml:"remove,omitempty"`

	// ExpectError is the error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion types.
const (
	AssertField        = "field"
	AssertCount        = "count"
	AssertAbsent       = "absent"
	AssertVersionNewer = "version_newer"
)

// Assertion checks the final storage, or a named snapshot.
type Assertion struct {
	Type string `yaml:"type"`

	// Target is an entity alias (field, absent, version_newer).
	Target string `yaml:"target,omitempty"`

	// Field and Equals give the expected field value (field).
	Field  string `yaml:"field,omitempty"`
	Equals any    `yaml:"equals,omitempty"`

	// Snapshot evaluates the assertion against a named snapshot instead of
	// the storage.
	Snapshot string `yaml:"snapshot,omitempty"`

	// Entity and Source filter the entities counted (count).
	Entity string `yaml:"entity,omitempty"`
	Source string `yaml:"source,omitempty"`
	Count  *int   `yaml:"count,omitempty"`

	// Than names the snapshot the target must be newer than (version_newer).
	Than string `yaml:"than,omitempty"`
}

// LoadScenario reads a scenario file. Schema paths are resolved relative to
// the file's directory. Unknown YAML fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i, p := range scenario.Schemas {
		if !filepath.IsAbs(p) {
			scenario.Schemas[i] = filepath.Join(base, p)
		}
	}
	for _, p := range scenario.Schemas {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("invalid scenario: schema file not found: %s", p)
		}
	}
	return scenario, nil
}

// ParseScenario parses and validates scenario YAML. Schema paths are left
// as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Schemas) == 0 {
		return fmt.Errorf("schemas list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, st *Step) error {
	switch st.Op {
	case OpCreate:
		if st.Entity == "" {
			return fmt.Errorf("steps[%d]: entity is required for create", i)
		}
		if st.ID < 0 {
			return fmt.Errorf("steps[%d]: id must be positive", i)
		}
	case OpModify:
		if st.Target == "" {
			return fmt.Errorf("steps[%d]: target is required for modify", i)
		}
	case OpRemove:
		if st.Target == "" {
			return fmt.Errorf("steps[%d]: target is required for remove", i)
		}
	case OpSnapshot:
		if st.As == "" {
			return fmt.Errorf("steps[%d]: as is required for snapshot", i)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, st.Op)
	}
	return nil
}

func validateAssertion(i int, a *Assertion) error {
	switch a.Type {
	case AssertField:
		if a.Target == "" || a.Field == "" {
			return fmt.Errorf("assertions[%d]: target and field are required for field", i)
		}
		if a.Equals == nil {
			return fmt.Errorf("assertions[%d]: equals is required for field", i)
		}
	case AssertCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for count", i)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", i)
		}
	case AssertAbsent:
		if a.Target == "" {
			return fmt.Errorf("assertions[%d]: target is required for absent", i)
		}
	case AssertVersionNewer:
		if a.Target == "" || a.Than == "" {
			return fmt.Errorf("assertions[%d]: target and than are required for version_newer", i)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	return nil
}
