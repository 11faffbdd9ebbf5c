package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/haukened/upid"
)

// StringToPrefixes is a DecodeHookFunc that converts a comma separated string
// into a list of normalized upid prefixes.
func StringToPrefixes() mapstructure.DecodeHookFunc {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf([]string{}) {
			return data, nil
		}
		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return []string{}, nil
		}
		var out []string
		for _, p := range strings.Split(raw, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				return nil, fmt.Errorf("empty prefix in %q", raw)
			}
			if !upid.ValidPrefix(p) {
				return nil, fmt.Errorf("prefix %q: %w", p, upid.ErrAlphabet)
			}
			out = append(out, upid.NormalizePrefix(p))
		}
		return out, nil
	}
}
