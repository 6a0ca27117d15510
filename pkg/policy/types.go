// Package policy turns declarative role documents into frozen access roles
package policy

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Source provides the raw policy document
type Source interface {
	LoadRawData() (map[string]interface{}, error)
}

var (
	// ErrInvalidDocument is returned for a document that does not have the
	// expected shape
	ErrInvalidDocument = errors.New("invalid policy document")

	// ErrUnknownElement is returned when a grant names an element the
	// catalog does not have
	ErrUnknownElement = errors.New("unknown element")

	// ErrUnknownRole is returned when a user or the default role names a
	// role the document does not define
	ErrUnknownRole = errors.New("unknown role")

	// ErrInvalidGrant is returned when a grant is rejected by the role
	ErrInvalidGrant = errors.New("invalid grant")
)

// Document is the decoded form of a policy:
//
//	roles:
//	  - name: California manager
//	    schemaGrants:
//	      - access: none
//	        cubeGrants:
//	          - cube: Sales
//	            access: all
//	            hierarchyGrants:
//	              - hierarchy: "[Store]"
//	                access: custom
//	                topLevel: "[Store].[Country]"
//	                rollupPolicy: partial
//	                memberGrants:
//	                  - member: "[Store].[USA].[CA]"
//	                    access: all
//	users:
//	  alice: [California manager]
//	defaultRole: California manager
type Document struct {
	Roles       []RoleDocument      `yaml:"roles"`
	Users       map[string][]string `yaml:"users"`
	DefaultRole string              `yaml:"defaultRole"`
}

type RoleDocument struct {
	Name         string        `yaml:"name"`
	SchemaGrants []SchemaGrant `yaml:"schemaGrants"`
}

type SchemaGrant struct {
	Access     string      `yaml:"access"`
	CubeGrants []CubeGrant `yaml:"cubeGrants"`
}

type CubeGrant struct {
	Cube            string           `yaml:"cube"`
	Access          string           `yaml:"access"`
	DimensionGrants []DimensionGrant `yaml:"dimensionGrants"`
	HierarchyGrants []HierarchyGrant `yaml:"hierarchyGrants"`
}

type DimensionGrant struct {
	Dimension string `yaml:"dimension"`
	Access    string `yaml:"access"`
}

type HierarchyGrant struct {
	Hierarchy    string        `yaml:"hierarchy"`
	Access       string        `yaml:"access"`
	TopLevel     string        `yaml:"topLevel"`
	BottomLevel  string        `yaml:"bottomLevel"`
	RollupPolicy string        `yaml:"rollupPolicy"`
	MemberGrants []MemberGrant `yaml:"memberGrants"`
}

type MemberGrant struct {
	Member string `yaml:"member"`
	Access string `yaml:"access"`
}

// Decode converts raw data from a Source into a Document. The raw map is
// round-tripped through YAML so every source format shares one decoder.
func Decode(raw map[string]interface{}) (*Document, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: no data", ErrInvalidDocument)
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return &doc, nil
}
