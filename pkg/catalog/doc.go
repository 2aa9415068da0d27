// Package catalog normalizes the remote list of subscription plans into a
// rank-ordered, comparable structure.
//
// Plans are compared by Rank, never by price, because price does not always
// track tier in every billing cycle. A subscription's current plan is reported
// by name from a separate endpoint, so lookups resolve names case-insensitively
// and treat unknown names as "no current plan" rather than as an error.
//
// # Usage
//
//	cat, err := catalog.Load(ctx, src)
//	if err != nil {
//		// errors.Is(err, catalog.ErrFetchFailed) for remote failures
//	}
//
//	rank, ok := cat.RankOf("pro") // case-insensitive
//	plan, ok := cat.ByToken("pro") // deep-link plan-type token
//
// # Sources
//
// Plans can come from any Source: the remote product API (see package
// billingapi), an in-memory list (NewInMemSource) or a YAML document
// (NewYAMLSource) which is handy for fixtures and local development.
package catalog
