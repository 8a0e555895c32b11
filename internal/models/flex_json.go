package models

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// modelOutputFieldMap caches JSON tag -> struct field index mappings
var (
	modelOutputFieldMap     map[string]int
	modelOutputFieldMapOnce sync.Once
)

func getModelOutputFieldMap() map[string]int {
	modelOutputFieldMapOnce.Do(func() {
		t := reflect.TypeOf(ModelOutput{})
		modelOutputFieldMap = make(map[string]int, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			tag := t.Field(i).Tag.Get("json")
			if tag == "" || tag == "-" {
				continue
			}
			name := strings.Split(tag, ",")[0]
			modelOutputFieldMap[name] = i
		}
	})
	return modelOutputFieldMap
}

// UnmarshalJSON implements flexible JSON unmarshaling that accepts both
// string-encoded and native JSON types. Language models routinely quote
// numbers and booleans ("75", "true") or emit the outcome class as a bare
// number (1 instead of "1"); this coerces them to the declared Go types.
// Fields that cannot be coerced are left unset so validation can default them.
func (o *ModelOutput) UnmarshalJSON(data []byte) error {
	// Alias prevents infinite recursion
	type Alias ModelOutput
	a := (*Alias)(o)

	// Fast path: try standard unmarshal (works when all types match natively)
	if err := json.Unmarshal(data, a); err == nil {
		return nil
	}

	// Slow path: field-by-field with coercion
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("flex unmarshal: %w", err)
	}

	*o = ModelOutput{}
	fieldMap := getModelOutputFieldMap()
	v := reflect.ValueOf(a).Elem()

	for key, rawVal := range raw {
		idx, ok := fieldMap[key]
		if !ok {
			continue
		}

		fv := v.Field(idx)
		if !fv.CanSet() {
			continue
		}

		// Try direct unmarshal first
		ptr := reflect.New(fv.Type())
		if err := json.Unmarshal(rawVal, ptr.Interface()); err == nil {
			fv.Set(ptr.Elem())
			continue
		}

		trimmed := strings.TrimSpace(string(rawVal))
		if trimmed == "" || trimmed == "null" {
			continue
		}

		// Quoted scalar into numeric/bool target
		if trimmed[0] == '"' {
			var s string
			if err := json.Unmarshal(rawVal, &s); err != nil {
				continue
			}
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			coerceStringToField(fv, s)
			continue
		}

		// Bare number or bool into string target
		if fv.Kind() == reflect.String {
			fv.SetString(trimmed)
		}
	}

	return nil
}

// coerceStringToField converts a string value to the field's native type,
// allocating pointer targets on success.
func coerceStringToField(fv reflect.Value, s string) {
	if fv.Kind() == reflect.Ptr {
		elem := reflect.New(fv.Type().Elem())
		if coerceScalar(elem.Elem(), s) {
			fv.Set(elem)
		}
		return
	}
	coerceScalar(fv, s)
}

func coerceScalar(fv reflect.Value, s string) bool {
	switch fv.Kind() {
	case reflect.Float32, reflect.Float64:
		// "75%" is a common model habit
		if n, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64); err == nil {
			fv.SetFloat(n)
			return true
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// ParseFloat handles "28.5" → truncate to int
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			fv.SetInt(int64(n))
			return true
		}
	case reflect.Bool:
		switch strings.ToLower(s) {
		case "yes", "oui":
			fv.SetBool(true)
			return true
		case "no", "non":
			fv.SetBool(false)
			return true
		}
		if b, err := strconv.ParseBool(s); err == nil {
			fv.SetBool(b)
			return true
		}
	case reflect.String:
		fv.SetString(s)
		return true
	}
	return false
}
