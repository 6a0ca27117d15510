package olap

import (
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// catalogDocument is the YAML form of a catalog:
//
//	name: FoodMart
//	dimensions:
//	  - name: Store
//	    hierarchies:
//	      - allMember: All Stores
//	        levels: [Country, State, City]
//	        members:
//	          - name: USA
//	            children: [CA, OR]
//	cubes:
//	  - name: Sales
//	    dimensions: [Store]
//	  - name: Everything
//	    virtual: true
//	    cubes: [Sales]
type catalogDocument struct {
	Name       string              `yaml:"name"`
	Dimensions []dimensionDocument `yaml:"dimensions"`
	Cubes      []cubeDocument      `yaml:"cubes"`
	NamedSets  []namedSetDocument  `yaml:"namedSets"`
}

type dimensionDocument struct {
	Name        string              `yaml:"name"`
	Hierarchies []hierarchyDocument `yaml:"hierarchies"`
}

type hierarchyDocument struct {
	Name      string           `yaml:"name"`
	AllMember string           `yaml:"allMember"`
	Levels    []string         `yaml:"levels"`
	Members   []memberDocument `yaml:"members"`
}

// memberDocument is either a bare name or a mapping with children
type memberDocument struct {
	Name     string           `yaml:"name"`
	Children []memberDocument `yaml:"children"`
}

type cubeDocument struct {
	Name       string   `yaml:"name"`
	Virtual    bool     `yaml:"virtual"`
	Dimensions []string `yaml:"dimensions"`
	Cubes      []string `yaml:"cubes"`
}

type namedSetDocument struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
}

// UnmarshalYAML accepts a scalar as shorthand for a leaf member
func (m *memberDocument) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		m.Name = node.Value
		return nil
	}
	type plain memberDocument
	return node.Decode((*plain)(m))
}

// LoadCatalog reads a YAML catalog document from fs
func LoadCatalog(fs afero.Fs, path string) (*Catalog, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog file %s: %w", path, err)
	}
	return catalog, nil
}

// ParseCatalog builds a catalog from a YAML catalog document
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc catalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	b := NewBuilder(doc.Name)
	for _, dim := range doc.Dimensions {
		d := b.Dimension(dim.Name)
		for _, hier := range dim.Hierarchies {
			h := d.Hierarchy(hier.Name, hier.Levels...)
			if hier.AllMember != "" {
				h.WithAll(hier.AllMember)
			}
			addMembers(h, nil, hier.Members)
		}
	}
	for _, cube := range doc.Cubes {
		if cube.Virtual {
			b.VirtualCube(cube.Name, cube.Cubes...)
		} else {
			b.Cube(cube.Name, cube.Dimensions...)
		}
	}
	for _, set := range doc.NamedSets {
		b.NamedSet(set.Name, set.Expression)
	}
	return b.Build()
}

func addMembers(h *HierarchyDef, parent []string, members []memberDocument) {
	for _, m := range members {
		path := append(append([]string(nil), parent...), m.Name)
		h.Member(path...)
		addMembers(h, path, m.Children)
	}
}
