package policy

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mmcdole/olapsec/pkg/lpc"
	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// FileSource reads a policy file. The format follows the extension: YAML
// for .yaml and .yml, JSON with comments for .json, and the LPC object
// format for .o.
type FileSource struct {
	fs   afero.Fs
	path string
}

// NewFileSource creates a source reading path from fs
func NewFileSource(fs afero.Fs, path string) *FileSource {
	return &FileSource{
		fs:   fs,
		path: path,
	}
}

// LoadRawData implements Source
func (s *FileSource) LoadRawData() (map[string]interface{}, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	var raw map[string]interface{}
	switch ext := strings.ToLower(filepath.Ext(s.path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".json":
		err = json.Unmarshal(jsonc.ToJSON(data), &raw)
	case ".o":
		var result *lpc.ParseResult
		result, err = lpc.NewObjectParser(true).ParseObject(string(data))
		if err == nil {
			raw = result.Object
		}
	default:
		return nil, fmt.Errorf("unsupported policy file type %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing policy file %s: %w", s.path, err)
	}
	return raw, nil
}
