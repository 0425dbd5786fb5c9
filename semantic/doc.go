// Package semantic integrates the external relevance gateway that scores
// agents against natural-language queries.
//
// The gateway indexes registration files off-path; this package only
// queries it. Matches come back as (chain, agent, score) triples which the
// search engine intersects with its structured candidate sets. The wire
// format has drifted across gateway versions, so the client accepts both
// envelope shapes and both field spellings, dropping entries it cannot
// read.
package semantic
