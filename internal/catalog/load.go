package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Error codes reported by Load and Validate.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No catalog files found
	ErrCodeLoadFailed  = "E004" // CUE or YAML load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	ErrCodeSource   = "E101" // Missing or unknown table source
	ErrCodeColumns  = "E102" // Invalid column list
	ErrCodeRows     = "E103" // Row does not fit the columns
	ErrCodeQuery    = "E104" // Missing query or table reference
	ErrCodeDatabase = "E105" // Missing database
	ErrCodeName     = "E106" // Missing or duplicate name
)

// LoadError represents an error that occurred while loading a catalog.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Code returns the error code for err, one of the ErrCode constants.
func Code(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field)
	}
	var defErr *DefinitionError
	if errors.As(err, &defErr) {
		return MapFieldToErrorCode(defErr.Field)
	}
	return ErrCodeGeneric
}

// MapFieldToErrorCode maps a definition field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "source":
		return ErrCodeSource
	case "columns", "columns.name", "arguments", "arguments.name":
		return ErrCodeColumns
	case "rows":
		return ErrCodeRows
	case "query", "from":
		return ErrCodeQuery
	case "database":
		return ErrCodeDatabase
	case "name":
		return ErrCodeName
	default:
		return ErrCodeGeneric
	}
}

// yamlFile is the layout of a YAML catalog file.
type yamlFile struct {
	Builtins  *bool         `yaml:"builtins"`
	Tables    []TableDef    `yaml:"tables"`
	Functions []FunctionDef `yaml:"functions"`
}

// Load reads every .cue and .yaml file in dir into one catalog.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func Load(dir string, mode LoadMode) (*Catalog, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalog directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, yamlFiles, err := FindFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles)+len(yamlFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no catalog files found in %s", dir)}}
	}

	cat := &Catalog{Dir: dir, Builtins: true, FileCount: len(cueFiles) + len(yamlFiles)}
	var errs []error
	stop := func(err error) bool {
		errs = append(errs, err)
		return mode == LoadModeFailFast
	}

	if len(cueFiles) > 0 {
		v, err := buildCUE(dir)
		if err != nil {
			return nil, []error{err}
		}
		if halted := loadCUE(cat, v, stop); halted {
			return cat, errs
		}
	}

	for _, path := range yamlFiles {
		if err := loadYAML(cat, path); err != nil {
			if stop(err) {
				return cat, errs
			}
		}
	}

	if len(cat.Tables) == 0 && len(cat.Functions) == 0 && len(errs) == 0 && !cat.Builtins {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "catalog defines no tables or functions"})
	}
	return cat, errs
}

// FindFiles walks dir and returns the .cue and .yaml files in it.
func FindFiles(dir string) (cueFiles, yamlFiles []string, err error) {
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".cue":
			cueFiles = append(cueFiles, path)
		case ".yaml", ".yml":
			yamlFiles = append(yamlFiles, path)
		}
		return nil
	})
	slices.Sort(yamlFiles)
	return cueFiles, yamlFiles, err
}

func buildCUE(dir string) (cue.Value, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return v, nil
}

// loadCUE adds the tables and functions declared in v. It reports whether
// loading should stop.
func loadCUE(cat *Catalog, v cue.Value, stop func(error) bool) bool {
	if bv := v.LookupPath(cue.ParsePath("builtins")); bv.Exists() {
		b, err := bv.Bool()
		if err != nil {
			if stop(convertCompileError(formatCUEError(err), "builtins")) {
				return true
			}
		} else {
			cat.Builtins = b
		}
	}

	if each(v, "table", stop, func(fv cue.Value) error {
		def, err := CompileTable(fv)
		if err != nil {
			return err
		}
		cat.Tables = append(cat.Tables, *def)
		return nil
	}) {
		return true
	}

	return each(v, "function", stop, func(fv cue.Value) error {
		def, err := CompileFunction(fv)
		if err != nil {
			return err
		}
		cat.Functions = append(cat.Functions, *def)
		return nil
	})
}

// each applies fn to every field of the struct at path.
func each(v cue.Value, path string, stop func(error) bool, fn func(cue.Value) error) bool {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return false
	}
	iter, err := sv.Fields()
	if err != nil {
		return stop(&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating %s: %v", path, err)})
	}
	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			if stop(convertCompileError(err, path+"."+iter.Selector().String())) {
				return true
			}
		}
	}
	return false
}

func loadYAML(cat *Catalog, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("opening %s: %v", path, err)}
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var doc yamlFile
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("parsing %s: %v", path, err)}
	}

	if doc.Builtins != nil {
		cat.Builtins = *doc.Builtins
	}
	for i, t := range doc.Tables {
		t.Origin = fmt.Sprintf("%s:tables[%d]", path, i)
		cat.Tables = append(cat.Tables, t)
	}
	for i, fn := range doc.Functions {
		fn.Origin = fmt.Sprintf("%s:functions[%d]", path, i)
		cat.Functions = append(cat.Functions, fn)
	}
	return nil
}

// convertCompileError converts a compile error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}
