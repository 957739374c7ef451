package logging

import (
	"context"
)

type fieldsKeyType int

const fieldsKey = fieldsKeyType(iota)

// WithFields returns a context whose C* log statements carry the given key value pairs, after
// any pairs already attached to ctx.
func WithFields(ctx context.Context, keysAndValues ...interface{}) context.Context {
	existing := FieldsFrom(ctx)
	merged := make([]interface{}, 0, len(existing)+len(keysAndValues))
	merged = append(merged, existing...)
	merged = append(merged, keysAndValues...)
	return context.WithValue(ctx, fieldsKey, merged)
}

// FieldsFrom returns the key value pairs attached with WithFields.
func FieldsFrom(ctx context.Context) []interface{} {
	if fields, ok := ctx.Value(fieldsKey).([]interface{}); ok {
		return fields
	}
	return nil
}
