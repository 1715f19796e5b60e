// Package utils provides conversion helpers between application structs and
// the map[string]any entity payloads carried by data commands.
package utils

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// StructToPayload converts a struct into an entity payload suitable for
// insert, update and upsert commands. Field names follow the struct's json
// tags, so the payload keys line up with whatever the wire representation of
// the entity uses.
//
// The input must be a struct or a non-nil pointer to one.
func StructToPayload[T any](record T) (map[string]any, error) {
	val := reflect.ValueOf(record)
	if !val.IsValid() {
		return nil, fmt.Errorf("record cannot be nil")
	}
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, fmt.Errorf("record cannot be a nil pointer")
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("record must be a struct or pointer to one, got %s", val.Kind())
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	payload := map[string]any{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to build payload: %w", err)
	}
	return payload, nil
}

// PayloadToStruct is the inverse of StructToPayload: it populates a new T
// from an entity payload, typically a row scanned out of a query result.
func PayloadToStruct[T any](payload map[string]any) (T, error) {
	var result T
	if payload == nil {
		return result, fmt.Errorf("payload cannot be nil")
	}

	typ := reflect.TypeOf(result)
	if typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return result, fmt.Errorf("target type must be a struct, got %v", typ)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return result, fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("failed to populate %s: %w", typ.Name(), err)
	}
	return result, nil
}
