package file

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/vmsops/vmsctl/faults"
	"github.com/vmsops/vmsctl/resource"
	"github.com/vmsops/vmsctl/schema"
)

type specDocument struct {
	Resources []specEntry `yaml:"resources"`
}

type specEntry struct {
	Kind       string    `yaml:"kind"`
	Operation  string    `yaml:"operation"`
	Key        string    `yaml:"key"`
	Attributes yaml.Node `yaml:"attributes"`
}

// LoadSpecs reads declared resources from the given files, preserving
// declaration order across files and attribute order within each resource.
// Declaration order is the author's dependency order.
func LoadSpecs(registry *schema.Registry, paths ...string) ([]resource.Spec, error) {
	var specs []resource.Spec
	for _, path := range paths {
		loaded, err := loadSpecFile(registry, path)
		if err != nil {
			return nil, err
		}
		specs = append(specs, loaded...)
	}
	return specs, nil
}

func loadSpecFile(registry *schema.Registry, path string) ([]resource.Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, faults.NewTypedError(faults.ValidationError, "spec file "+path+" could not be read", err)
	}

	var specs []resource.Spec
	decoder := yaml.NewDecoder(strings.NewReader(string(raw)))
	for {
		var document specDocument
		if err := decoder.Decode(&document); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, faults.NewTypedError(faults.ValidationError, "spec file "+path+" is not valid YAML", err)
		}

		for idx, entry := range document.Resources {
			spec, err := entry.toSpec(registry)
			if err != nil {
				return nil, faults.NewTypedError(
					faults.ValidationError,
					fmt.Sprintf("spec file %s resource %d is invalid", path, idx+1),
					err,
				)
			}
			specs = append(specs, spec)
		}
	}
	return specs, nil
}

func (e specEntry) toSpec(registry *schema.Registry) (resource.Spec, error) {
	operation, err := resource.ParseOperation(e.Operation)
	if err != nil {
		return resource.Spec{}, err
	}

	descriptor, err := registry.Lookup(resource.Kind(e.Kind))
	if err != nil {
		return resource.Spec{}, err
	}

	attributes, err := decodeAttributes(e.Attributes)
	if err != nil {
		return resource.Spec{}, err
	}

	key := strings.TrimSpace(e.Key)
	if key == "" {
		// Fall back to the natural key attribute so authors only name the
		// resource once.
		if value, ok := attributes.Get(descriptor.NaturalKey); ok {
			if rendered, isString := value.(string); isString {
				key = rendered
			}
		}
	}
	if key == "" {
		return resource.Spec{}, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("resource must set key or the %s attribute", descriptor.NaturalKey),
			nil,
		)
	}

	spec := resource.Spec{
		Kind:       descriptor.Kind,
		Operation:  operation,
		Key:        key,
		Attributes: attributes,
	}
	if err := spec.Validate(); err != nil {
		return resource.Spec{}, err
	}
	return spec, nil
}

// decodeAttributes walks the YAML mapping node directly so declaration order
// survives and explicit nulls are treated as absent rather than sent as null.
func decodeAttributes(node yaml.Node) (resource.Attributes, error) {
	if node.Kind == 0 || node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, faults.NewTypedError(faults.ValidationError, "attributes must be a mapping", nil)
	}

	attributes := make(resource.Attributes, 0, len(node.Content)/2)
	for idx := 0; idx+1 < len(node.Content); idx += 2 {
		keyNode := node.Content[idx]
		valueNode := node.Content[idx+1]

		if valueNode.Tag == "!!null" {
			continue
		}

		var value any
		if err := valueNode.Decode(&value); err != nil {
			return nil, faults.NewTypedError(
				faults.ValidationError,
				"attribute "+keyNode.Value+" could not be decoded",
				err,
			)
		}
		normalized, err := resource.Normalize(value)
		if err != nil {
			return nil, err
		}
		attributes = append(attributes, resource.Attribute{Name: keyNode.Value, Value: normalized})
	}
	return attributes, nil
}
