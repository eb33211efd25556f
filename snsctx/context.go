// Package snsctx carries request scoped flags through driver calls.
package snsctx

import "context"

type verboseKey struct{}

// IsVerbose reports whether wire level dumps were requested for ctx.
func IsVerbose(ctx context.Context) bool {
	val, ok := ctx.Value(verboseKey{}).(bool)
	return ok && val
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, verboseKey{}, value)
}
