package filesystem

import (
	"fmt"
	"time"

	fserrors "github.com/driftfs/driftfs/pkg/errors"
	"github.com/driftfs/driftfs/pkg/types"
)

// Option keys recognized in per-call option maps.
const (
	OptionVisibility    = "visibility"
	OptionMimeType      = "mimetype"
	OptionSize          = "size"
	OptionTimestamp     = "timestamp"
	OptionOverwrite     = "overwrite"
	OptionDirAttributes = "directory_attributes"
)

// resolveConfig merges a free-form option mapping into a typed Config. In
// strict mode unrecognized keys fail with INVALID_CONFIG; in permissive mode
// they are dropped. The resolved Config is never shared between calls.
func (f *Filesystem) resolveConfig(opts map[string]interface{}) (*types.Config, error) {
	cfg := &types.Config{}
	for key, value := range opts {
		switch key {
		case OptionVisibility:
			v, err := visibilityOption(value)
			if err != nil {
				return nil, err
			}
			cfg.Visibility = v
		case OptionMimeType:
			s, ok := value.(string)
			if !ok {
				return nil, fserrors.InvalidConfig(key, "must be a string")
			}
			cfg.MimeType = s
		case OptionSize:
			n, err := sizeOption(value)
			if err != nil {
				return nil, err
			}
			cfg.Size = n
		case OptionTimestamp:
			t, ok := value.(time.Time)
			if !ok {
				return nil, fserrors.InvalidConfig(key, "must be a time.Time")
			}
			cfg.Timestamp = t
		case OptionOverwrite:
			b, ok := value.(bool)
			if !ok {
				return nil, fserrors.InvalidConfig(key, "must be a bool")
			}
			cfg.Overwrite = b
		case OptionDirAttributes:
			attrs, err := dirAttributesOption(value)
			if err != nil {
				return nil, err
			}
			cfg.DirAttributes = attrs
		default:
			if f.strict {
				return nil, fserrors.InvalidConfig(key, "unrecognized option")
			}
		}
	}
	return cfg, nil
}

func visibilityOption(value interface{}) (types.Visibility, error) {
	var v types.Visibility
	switch val := value.(type) {
	case types.Visibility:
		v = val
	case string:
		v = types.Visibility(val)
	default:
		return "", fserrors.InvalidConfig(OptionVisibility, "must be a visibility string")
	}
	if !v.Valid() {
		return "", fserrors.InvalidConfig(OptionVisibility,
			fmt.Sprintf("must be %q or %q", types.VisibilityPublic, types.VisibilityPrivate))
	}
	return v, nil
}

func sizeOption(value interface{}) (int64, error) {
	var n int64
	switch val := value.(type) {
	case int:
		n = int64(val)
	case int64:
		n = val
	default:
		return 0, fserrors.InvalidConfig(OptionSize, "must be an integer")
	}
	if n < 0 {
		return 0, fserrors.InvalidConfig(OptionSize, "cannot be negative")
	}
	return n, nil
}

func dirAttributesOption(value interface{}) (map[string]string, error) {
	switch val := value.(type) {
	case map[string]string:
		return val, nil
	case map[string]interface{}:
		attrs := make(map[string]string, len(val))
		for k, v := range val {
			s, ok := v.(string)
			if !ok {
				return nil, fserrors.InvalidConfig(OptionDirAttributes, "values must be strings")
			}
			attrs[k] = s
		}
		return attrs, nil
	default:
		return nil, fserrors.InvalidConfig(OptionDirAttributes, "must be a string map")
	}
}
