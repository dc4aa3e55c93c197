package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const (
	// DefaultPrefix is the property namespace the loader binds from.
	DefaultPrefix = "goliatone.scriptloader"
	// PathProperty names the load root property under the prefix.
	PathProperty = "scriptPath"
)

// Properties are the settings the loader needs before the host is ready.
type Properties struct {
	ScriptPath string `mapstructure:"scriptPath"`
}

// Validate rejects an absent or blank script path.
func (p Properties) Validate() error {
	if strings.TrimSpace(p.ScriptPath) == "" {
		return &ValidationError{Property: PathProperty, Reason: "must not be empty"}
	}
	return nil
}

// LoadRoot is the validated directory under which sources are discovered.
type LoadRoot string

func (r LoadRoot) String() string {
	return string(r)
}

// ValidationError reports a bound property that failed validation.
type ValidationError struct {
	Prefix   string
	Property string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("config: property %q %s", joinKey(e.Prefix, e.Property), e.Reason)
}

// BindError reports properties that could not be decoded into Properties.
type BindError struct {
	Prefix string
	Err    error
}

func (e *BindError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("config: bind %q: %v", e.Prefix, e.Err)
}

func (e *BindError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Bind decodes every property under prefix into Properties. It does not
// validate the result.
func Bind(source PropertySource, prefix string) (Properties, error) {
	var props Properties
	if source == nil {
		return props, &BindError{Prefix: prefix, Err: fmt.Errorf("property source is nil")}
	}

	canonicalPrefix := CanonicalKey(prefix) + "."
	input := map[string]any{}
	for _, key := range source.Keys() {
		canonical := CanonicalKey(key)
		if !strings.HasPrefix(canonical, canonicalPrefix) {
			continue
		}
		value, ok := source.Lookup(key)
		if !ok {
			continue
		}
		input[strings.TrimPrefix(canonical, canonicalPrefix)] = value
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &props,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		MatchName: func(mapKey, fieldName string) bool {
			return canonicalSegment(mapKey) == canonicalSegment(fieldName)
		},
	})
	if err != nil {
		return props, &BindError{Prefix: prefix, Err: err}
	}
	if err := decoder.Decode(input); err != nil {
		return props, &BindError{Prefix: prefix, Err: err}
	}
	return props, nil
}

// PreResolve binds and validates the loader properties and returns the load
// root. It reads nothing but source and never substitutes defaults.
func PreResolve(source PropertySource, prefix string) (LoadRoot, error) {
	props, err := Bind(source, prefix)
	if err != nil {
		return "", err
	}
	if err := props.Validate(); err != nil {
		if vErr, ok := err.(*ValidationError); ok {
			vErr.Prefix = prefix
		}
		return "", err
	}
	return LoadRoot(filepath.Clean(strings.TrimSpace(props.ScriptPath))), nil
}
