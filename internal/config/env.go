package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// lookupFunc resolves one environment variable. os.LookupEnv in production.
type lookupFunc func(key string) (string, bool)

// applyEnv overrides every field carrying an `env` tag whose variable is set.
// All bad values are reported together.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	return errors.Join(overlay(reflect.ValueOf(cfg).Elem(), "", lookup)...)
}

func overlay(section reflect.Value, path string, lookup lookupFunc) []error {
	var errs []error
	t := section.Type()
	for i := 0; i < section.NumField(); i++ {
		field, meta := section.Field(i), t.Field(i)
		name := meta.Name
		if path != "" {
			name = path + "." + meta.Name
		}

		if field.Kind() == reflect.Struct {
			errs = append(errs, overlay(field, name, lookup)...)
			continue
		}

		key := meta.Tag.Get("env")
		if key == "" {
			continue
		}
		raw, ok := lookup(key)
		if !ok {
			continue
		}
		if err := assign(field, raw); err != nil {
			errs = append(errs, fmt.Errorf("%s (%s): %w", key, name, err))
		}
	}
	return errs
}

// assign parses raw into field. String slices are comma separated; durations stay
// strings in Config and are checked by validateConfig.
func assign(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("expected a boolean, got %q", raw)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("expected an integer, got %q", raw)
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("expected a number, got %q", raw)
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported list of %s", field.Type().Elem().Kind())
		}
		field.Set(reflect.ValueOf(commaList(raw)))
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

func commaList(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
