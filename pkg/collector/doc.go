// Package collector gathers a paginated catalog listing into one ordered list.
//
// Page size shrinking happens in the fetcher; the collector only carries the
// smaller size forward for the rest of the listing.
package collector
