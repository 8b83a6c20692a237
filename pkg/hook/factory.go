package hook

import (
	"reflect"
	"strings"

	"github.com/dpinedaj/loom/internal/errors"
)

// configTypes registers the constructor of every command's configuration.
// The set is fixed; Resolve rejects anything else.
var configTypes = map[string]func() Config{
	"build":            func() Config { return &BuildConfig{} },
	"clean":            func() Config { return &CleanConfig{} },
	"compile":          func() Config { return &CompileConfig{} },
	"debug":            func() Config { return &DebugConfig{} },
	"deps":             func() Config { return &DepsConfig{} },
	"list":             func() Config { return &ListConfig{} },
	"parse":            func() Config { return &ParseConfig{} },
	"run":              func() Config { return &RunConfig{} },
	"run-operation":    func() Config { return &RunOperationConfig{} },
	"seed":             func() Config { return &SeedConfig{} },
	"snapshot":         func() Config { return &SnapshotConfig{} },
	"source-freshness": func() Config { return &SourceFreshnessConfig{} },
	"test":             func() Config { return &TestConfig{} },
}

// commandNames maps the normalized form of each command to its canonical name.
var commandNames = func() map[string]string {
	m := make(map[string]string, len(configTypes))
	for name := range configTypes {
		m[normalizeOption(name)] = name
	}
	return m
}()

// Resolve normalizes a command name (case-insensitive, - and _
// interchangeable) and returns its canonical form. Unknown commands fail
// with a validation error.
func Resolve(command string) (string, error) {
	name, ok := commandNames[normalizeOption(command)]
	if !ok {
		return "", errors.Validationf("unknown command %q", command)
	}
	return name, nil
}

// New resolves a command and returns its configuration with standard
// defaults applied.
func New(command string) (Config, error) {
	name, err := Resolve(command)
	if err != nil {
		return nil, err
	}
	cfg := configTypes[name]()
	applyDefaults(cfg)
	return cfg, nil
}

// Create resolves a command, instantiates its configuration, populates it
// from the loosely typed field map, and applies standard defaults. Field
// names are matched case-insensitively with - and _ interchangeable; mapping
// values for textual fields are serialized to their canonical JSON form;
// option-variant strings are parsed and validated. The fixed command
// identifier and task-type attributes cannot be overridden: keys naming them
// are ignored.
func Create(command string, fields map[string]interface{}) (Config, error) {
	name, err := Resolve(command)
	if err != nil {
		return nil, err
	}
	cfg := configTypes[name]()

	settable := structFields(reflect.ValueOf(cfg).Elem())
	for key, value := range fields {
		normalized := normalizeFieldName(key)
		switch normalized {
		case "which", "cls", "task_type":
			// Fixed attributes; caller input has no effect.
			continue
		}
		fv, ok := settable[normalized]
		if !ok {
			return nil, errors.Validationf("unknown field %q for command %q", key, name)
		}
		if err := setField(fv, key, value); err != nil {
			return nil, err
		}
	}

	applyDefaults(cfg)
	return cfg, nil
}

// Field describes one declared configuration field, for callers building
// dynamic forms.
type Field struct {
	Name string
	Kind string
}

// Fields returns the declared field set of a command's configuration.
func Fields(command string) ([]Field, error) {
	name, err := Resolve(command)
	if err != nil {
		return nil, err
	}
	cfg := configTypes[name]()

	var out []Field
	collectFields(reflect.ValueOf(cfg).Elem().Type(), &out)
	return out, nil
}

// applyDefaults fills unset fields with the engine's standard defaults.
func applyDefaults(cfg Config) {
	b := cfg.base()
	if b.Vars == "" {
		b.Vars = "{}"
	}
	if b.LogFormat == "" {
		b.LogFormat = LogFormatDefault
	}
	if b.ProjectDir == "" {
		b.ProjectDir = "."
	}
	if lc, ok := cfg.(*ListConfig); ok && lc.Output == "" {
		lc.Output = OutputSelector
	}
}

func normalizeFieldName(s string) string {
	return strings.ToLower(strings.NewReplacer("-", "_", " ", "_").Replace(s))
}

// snakeCase converts a Go field name to its snake_case form.
func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// structFields flattens a config struct, embedded shapes included, into a
// map of normalized field name to settable value.
func structFields(v reflect.Value) map[string]reflect.Value {
	out := make(map[string]reflect.Value)
	var walk func(reflect.Value)
	walk = func(cur reflect.Value) {
		t := cur.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Anonymous {
				walk(cur.Field(i))
				continue
			}
			if !f.IsExported() {
				continue
			}
			out[snakeCase(f.Name)] = cur.Field(i)
		}
	}
	walk(v)
	return out
}

func collectFields(t reflect.Type, out *[]Field) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			collectFields(f.Type, out)
			continue
		}
		if !f.IsExported() {
			continue
		}
		*out = append(*out, Field{Name: snakeCase(f.Name), Kind: f.Type.String()})
	}
}

var (
	logFormatType         = reflect.TypeOf(LogFormat(""))
	indirectSelectionType = reflect.TypeOf(IndirectSelection(""))
	outputType            = reflect.TypeOf(Output(""))
)

// setField assigns a loosely typed value to a configuration field,
// normalizing and validating along the way.
func setField(fv reflect.Value, key string, value interface{}) error {
	switch fv.Type() {
	case logFormatType:
		return setOption(fv, key, value, func(s string) (string, error) {
			v, err := ParseLogFormat(s)
			return string(v), err
		})
	case indirectSelectionType:
		return setOption(fv, key, value, func(s string) (string, error) {
			v, err := ParseIndirectSelection(s)
			return string(v), err
		})
	case outputType:
		return setOption(fv, key, value, func(s string) (string, error) {
			v, err := ParseOutput(s)
			return string(v), err
		})
	}

	switch fv.Kind() {
	case reflect.String:
		switch v := value.(type) {
		case string:
			fv.SetString(v)
		case map[string]interface{}:
			s, err := canonicalJSON(v)
			if err != nil {
				return errors.Validationf("field %q: %v", key, err)
			}
			fv.SetString(s)
		default:
			return errors.Validationf("field %q expects a string, got %T", key, value)
		}
		return nil

	case reflect.Pointer:
		switch fv.Type().Elem().Kind() {
		case reflect.Bool:
			b, ok := value.(bool)
			if !ok {
				return errors.Validationf("field %q expects a bool, got %T", key, value)
			}
			fv.Set(reflect.ValueOf(&b))
			return nil
		case reflect.Int:
			switch v := value.(type) {
			case int:
				fv.Set(reflect.ValueOf(&v))
			case float64:
				i := int(v)
				fv.Set(reflect.ValueOf(&i))
			default:
				return errors.Validationf("field %q expects an int, got %T", key, value)
			}
			return nil
		}

	case reflect.Slice:
		if fv.Type().Elem().Kind() == reflect.String {
			switch v := value.(type) {
			case []string:
				fv.Set(reflect.ValueOf(v))
			case []interface{}:
				strs := make([]string, 0, len(v))
				for _, item := range v {
					s, ok := item.(string)
					if !ok {
						return errors.Validationf("field %q expects strings, got %T", key, item)
					}
					strs = append(strs, s)
				}
				fv.Set(reflect.ValueOf(strs))
			default:
				return errors.Validationf("field %q expects a string list, got %T", key, value)
			}
			return nil
		}
	}

	return errors.Validationf("field %q has unsupported type %s", key, fv.Type())
}

func setOption(fv reflect.Value, key string, value interface{}, parse func(string) (string, error)) error {
	if reflect.TypeOf(value) == fv.Type() {
		fv.Set(reflect.ValueOf(value))
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return errors.Validationf("field %q expects a string, got %T", key, value)
	}
	parsed, err := parse(s)
	if err != nil {
		return err
	}
	fv.SetString(parsed)
	return nil
}
