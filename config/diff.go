package config

import (
	"reflect"
	"strings"
)

// diffEvent builds an Event naming the top-level fields that differ.
func diffEvent(old, new any) Event {
	evt := Event{OldConfig: old, NewConfig: new}
	if old == nil || new == nil {
		return evt
	}

	oldVal := reflect.Indirect(reflect.ValueOf(old))
	newVal := reflect.Indirect(reflect.ValueOf(new))
	if oldVal.Kind() != reflect.Struct || oldVal.Type() != newVal.Type() {
		return evt
	}

	typ := oldVal.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		if !reflect.DeepEqual(oldVal.Field(i).Interface(), newVal.Field(i).Interface()) {
			evt.ChangedKeys = append(evt.ChangedKeys, keyOf(field))
		}
	}
	return evt
}

// keyOf returns the config tag name of a field, or its Go name without one.
func keyOf(f reflect.StructField) string {
	tag, _, _ := strings.Cut(f.Tag.Get("config"), ",")
	if tag == "" || tag == "-" {
		return f.Name
	}
	return tag
}
