// package stats turns saved-track records into ordered frequency maps.
//
// An [Aggregator] buckets records under a [Policy]:
//
//	day      2-Jan-06
//	month    Jan-06
//	year     2006
//	weekday  Sunday..Saturday (all seven seeded at zero, Sunday first)
//	genre    genres of the first 20 distinct albums, one increment per genre per record
//
// Keys keep the order in which they were first seen, so callers pass records oldest first ([OldestFirst]).
package stats
