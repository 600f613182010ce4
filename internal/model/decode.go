package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// UnmarshalJSON decodes a task without failing on wrongly typed fields. The
// offending field is kept and reported by Validate, so one bad record does
// not discard the rest of the page. Annotations recover on their own.
func (t *Task) UnmarshalJSON(b []byte) error {
	type plain Task
	var p plain
	field, err := decodeLenient(b, &p)
	if err != nil {
		return err
	}
	*t = Task(p)
	t.badField = field
	if field != "" && t.TaskID == "" {
		t.TaskID = looseString(b, "task_id")
	}
	return nil
}

func (a *Annotation) UnmarshalJSON(b []byte) error {
	type plain Annotation
	var p plain
	field, err := decodeLenient(b, &p)
	if err != nil {
		return err
	}
	*a = Annotation(p)
	a.badField = field
	if field != "" && a.UUID == "" {
		a.UUID = looseString(b, "uuid")
	}
	return nil
}

// decodeLenient unmarshals b into v. A type mismatch is returned as the name
// of the first offending field instead of an error; encoding/json still fills
// every other field.
func decodeLenient(b []byte, v any) (string, error) {
	err := json.Unmarshal(b, v)
	if err == nil {
		return "", nil
	}
	var ute *json.UnmarshalTypeError
	if !errors.As(err, &ute) {
		return "", err
	}
	if ute.Field == "" {
		return "value", nil
	}
	return ute.Field, nil
}

// looseString reads key from a JSON object whatever its type, for naming a
// record in error messages.
func looseString(b []byte, key string) string {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return ""
	}
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
