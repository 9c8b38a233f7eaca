/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import "context"

// AnonymousOperator names the caller when the control surface runs without a
// JWT secret.
const AnonymousOperator = "anonymous"

type claimsKey struct{}

// WithClaims returns ctx carrying the operator's claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims set by Middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	if !ok || claims == nil {
		return nil, false
	}
	return claims, true
}

// Operator names who issued a control request, for logs and audit events.
func Operator(ctx context.Context) string {
	if claims, ok := ClaimsFromContext(ctx); ok && claims.Operator != "" {
		return claims.Operator
	}
	return AnonymousOperator
}
