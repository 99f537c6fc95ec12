package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	repositoryListKeyConstant         = "repo"
	nameKeyConstant                   = "name"
	urlKeyConstant                    = "url"
	yamlExtensionConstant             = ".yaml"
	ymlExtensionConstant              = ".yml"
	missingFileReasonConstant         = "missing manifest"
	readFailureReasonConstant         = "unable to read manifest"
	parseFailureReasonConstant        = "unable to parse manifest"
	emptyRepositoryListReasonConstant = "must contain at least one [[repo]] entry"
	entryNotTableTemplateConstant     = "invalid [[repo]] entry %d (not a table): %v"
	entryMissingKeysTemplateConstant  = "invalid [[repo]] entry %d (needs name + url): %v"
	entryDecodeTemplateConstant       = "invalid [[repo]] entry %d"
	entryBlankValueTemplateConstant   = "invalid [[repo]] entry %d (name and url must be non-empty)"
	entryInvalidNameTemplateConstant  = "invalid [[repo]] entry %d (name %q must be a single directory name)"
	duplicateNameTemplateConstant     = "duplicate repo name %q"
	currentDirectoryNameConstant      = "."
	parentDirectoryNameConstant       = ".."
)

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

// Loader reads manifests from disk.
type Loader struct {
	fileReader FileReader
}

// NewLoader constructs a Loader. A nil reader falls back to os.ReadFile.
func NewLoader(fileReader FileReader) *Loader {
	if fileReader == nil {
		fileReader = os.ReadFile
	}
	return &Loader{fileReader: fileReader}
}

// Load reads the manifest at path and returns its entries in file order.
func Load(path string) ([]RepoSpec, error) {
	return NewLoader(nil).Load(path)
}

type repositoryEntry struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
	Ref  string `mapstructure:"ref"`
}

// Load reads, parses, and validates the manifest at path.
func (loader *Loader) Load(path string) ([]RepoSpec, error) {
	contents, readError := loader.fileReader(path)
	if readError != nil {
		if errors.Is(readError, os.ErrNotExist) {
			return nil, LoadError{Path: path, Reason: missingFileReasonConstant, Cause: readError}
		}
		return nil, LoadError{Path: path, Reason: readFailureReasonConstant, Cause: readError}
	}

	document, parseError := parseDocument(path, contents)
	if parseError != nil {
		return nil, LoadError{Path: path, Reason: parseFailureReasonConstant, Cause: parseError}
	}

	rawEntries, isList := document[repositoryListKeyConstant].([]any)
	if !isList || len(rawEntries) == 0 {
		return nil, LoadError{Path: path, Reason: emptyRepositoryListReasonConstant}
	}

	specs := make([]RepoSpec, 0, len(rawEntries))
	seenNames := make(map[string]struct{}, len(rawEntries))
	for entryIndex, rawEntry := range rawEntries {
		spec, entryError := decodeEntry(entryIndex, rawEntry)
		if entryError != nil {
			return nil, LoadError{Path: path, Reason: entryError.Error()}
		}
		if _, duplicate := seenNames[spec.Name]; duplicate {
			return nil, LoadError{Path: path, Reason: fmt.Sprintf(duplicateNameTemplateConstant, spec.Name)}
		}
		seenNames[spec.Name] = struct{}{}
		specs = append(specs, spec)
	}

	return specs, nil
}

func parseDocument(path string, contents []byte) (map[string]any, error) {
	document := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case yamlExtensionConstant, ymlExtensionConstant:
		decoder := yaml.NewDecoder(bytes.NewReader(contents))
		if decodeError := decoder.Decode(&document); decodeError != nil {
			return nil, decodeError
		}
	default:
		if decodeError := toml.Unmarshal(contents, &document); decodeError != nil {
			return nil, decodeError
		}
	}
	return document, nil
}

func decodeEntry(entryIndex int, rawEntry any) (RepoSpec, error) {
	table, isTable := rawEntry.(map[string]any)
	if !isTable {
		return RepoSpec{}, fmt.Errorf(entryNotTableTemplateConstant, entryIndex, rawEntry)
	}
	if _, hasName := table[nameKeyConstant]; !hasName {
		return RepoSpec{}, fmt.Errorf(entryMissingKeysTemplateConstant, entryIndex, table)
	}
	if _, hasURL := table[urlKeyConstant]; !hasURL {
		return RepoSpec{}, fmt.Errorf(entryMissingKeysTemplateConstant, entryIndex, table)
	}

	var entry repositoryEntry
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &entry,
	})
	if decoderError != nil {
		return RepoSpec{}, decoderError
	}
	if decodeError := decoder.Decode(table); decodeError != nil {
		return RepoSpec{}, fmt.Errorf(entryDecodeTemplateConstant+": %w", entryIndex, decodeError)
	}

	spec := NewRepoSpec(entry.Name, entry.URL, entry.Ref)
	if len(spec.Name) == 0 || len(spec.URL) == 0 {
		return RepoSpec{}, fmt.Errorf(entryBlankValueTemplateConstant, entryIndex)
	}
	if !isSingleDirectoryName(spec.Name) {
		return RepoSpec{}, fmt.Errorf(entryInvalidNameTemplateConstant, entryIndex, spec.Name)
	}
	return spec, nil
}

func isSingleDirectoryName(name string) bool {
	if name == currentDirectoryNameConstant || name == parentDirectoryNameConstant {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
