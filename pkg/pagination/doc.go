// Package pagination follows GitHub-style Link header pagination.
//
// GitHub paginates list endpoints with a Link response header:
//
//	Link: <https://api.github.com/orgs/acme/repos?page=2>; rel="next",
//	      <https://api.github.com/orgs/acme/repos?page=5>; rel="last"
//
// Parse turns that header into a Links value holding the first, prev, next
// and last page URLs together with their page numbers. A Walker uses any
// PageFetcher (normally *client.Client) to fetch the first page and keep
// following the next link until the server stops sending one.
//
// Example usage:
//
//	walker := pagination.NewWalker(apiClient)
//	pages, err := walker.Collect(ctx, "/orgs/acme/repos", nil)
//
// Count estimates the number of items behind an endpoint by fetching only the
// first and the last page:
//
//	total, err := walker.Count(ctx, "/orgs/acme/members", nil)
//
// Pages are fetched strictly one after another. Each page tells the walker
// where the next one is, so there is nothing to parallelise.
package pagination
