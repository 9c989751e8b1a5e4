package utils

import (
	"fmt"
	"reflect"
)

var ColumnTag = "db"

// StructTagValues lists the column names of a db-tagged struct in field order.
func StructTagValues(input any) []string {
	targetValue := indirectStruct(input)
	targetType := targetValue.Type()

	result := make([]string, 0, targetValue.NumField())
	for i := 0; i < targetValue.NumField(); i++ {
		if column, ok := columnOf(targetType.Field(i)); ok {
			result = append(result, column)
		}
	}

	return result
}

// StructToMap maps column name to field value, leaving out any column in skip.
func StructToMap(input any, skip ...string) map[string]any {
	itemValue := indirectStruct(input)
	itemType := itemValue.Type()

	result := make(map[string]any, itemValue.NumField())

fields:
	for i := 0; i < itemValue.NumField(); i++ {
		column, ok := columnOf(itemType.Field(i))
		if !ok {
			continue
		}

		for _, s := range skip {
			if s == column {
				continue fields
			}
		}

		result[column] = itemValue.Field(i).Interface()
	}

	return result
}

// PrefixColumns qualifies each column with a table alias.
func PrefixColumns(prefix string, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = fmt.Sprintf("%s.%s", prefix, c)
	}
	return out
}

func ErrorWrapOrNil(err error, msg string) error {
	if err == nil {
		return nil
	}

	if msg == "" {
		return err
	}

	return fmt.Errorf("%s: %w", msg, err)
}

func indirectStruct(input any) reflect.Value {
	v := reflect.ValueOf(input)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		panic("input must be a pointer to a struct or a struct")
	}

	return v
}

func columnOf(f reflect.StructField) (string, bool) {
	if f.PkgPath != "" {
		return "", false
	}

	tag := f.Tag.Get(ColumnTag)
	if tag == "" || tag == "-" {
		return "", false
	}
	return tag, true
}
