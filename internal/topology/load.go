package topology

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// reference enforces the numeric floors of a reference topology; structural
// accepts any number, as snapshots produced by the mutation engine may carry
// negative lead times, costs or capacities.
var (
	reference  = newValidator(true)
	structural = newValidator(false)
)

func newValidator(floors bool) *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("nonneg", func(fl validator.FieldLevel) bool {
		if !floors {
			return true
		}
		f := fl.Field()
		switch f.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return f.Int() >= 0
		case reflect.Float32, reflect.Float64:
			return f.Float() >= 0
		}
		return true
	})
	return v
}

// LoadFile reads a reference topology from a YAML or JSON file and checks it
// with Validate. Files ending in .json are decoded as JSON; everything else
// as YAML.
func LoadFile(path string) (Snapshot, error) {
	s, err := decodeFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	if err := Validate(s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// LoadSnapshotFile reads a snapshot such as one written by "apply --out" and
// checks it with ValidateStructure only.
func LoadSnapshotFile(path string) (Snapshot, error) {
	s, err := decodeFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	if err := ValidateStructure(s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func decodeFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading topology file: %w", err)
	}

	var s Snapshot
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &s); err != nil {
			return Snapshot{}, fmt.Errorf("parsing topology JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Snapshot{}, fmt.Errorf("parsing topology YAML: %w", err)
		}
	}
	return s, nil
}

// Validate checks a reference topology: everything ValidateStructure checks,
// plus non-negative lead times, cost indexes, capacities and demand.
func Validate(s Snapshot) error {
	return check(reference, s)
}

// ValidateStructure checks only the shape of a snapshot: required ids,
// known enum values, unique ids and edges whose endpoints exist. Numeric
// values are not range checked.
func ValidateStructure(s Snapshot) error {
	return check(structural, s)
}

func check(v *validator.Validate, s Snapshot) error {
	if err := v.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid topology: %s failed %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid topology: %w", err)
	}

	nodeIDs := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		if nodeIDs[n.ID] {
			return fmt.Errorf("invalid topology: duplicate node id %q", n.ID)
		}
		nodeIDs[n.ID] = true
	}

	edgeIDs := make(map[string]bool, len(s.Edges))
	for _, e := range s.Edges {
		if edgeIDs[e.ID] {
			return fmt.Errorf("invalid topology: duplicate edge id %q", e.ID)
		}
		edgeIDs[e.ID] = true
		if !nodeIDs[e.From] {
			return fmt.Errorf("invalid topology: edge %s references unknown node %q", e.ID, e.From)
		}
		if !nodeIDs[e.To] {
			return fmt.Errorf("invalid topology: edge %s references unknown node %q", e.ID, e.To)
		}
	}

	return nil
}
