// Package dedup implements the tiered duplicate-matching pipeline for
// ballot measures.
//
// # Matching tiers
//
// Detection checks three tiers in order of strictness:
//
//  1. Exact fingerprint: the same event re-observed from the same
//     source. Treated as an update, never a duplicate.
//  2. Content hash: a near-identical record whose identifier could not
//     be extracted. Marked as a within-source duplicate immediately.
//  3. Measure fingerprint across sources: the same real-world event
//     reported by a different source. Not marked at ingest time;
//     master selection needs the whole group, so these are resolved by
//     the batch consolidation pass.
//
// # Consolidation
//
// For each group of active records sharing a measure fingerprint, the
// Selector scores every member (summary, vote data, description,
// document, ballot question, source priority) and picks a master, ties
// broken by lowest id. The Merger then folds non-conflicting fields from
// the rest of the group into the master, recomputing vote-derived fields
// from the merged counts so a percentage from one source is never
// paired with totals from another.
//
// The matching is deterministic and rule-based by design: a caller can
// always reconstruct why two records were or were not linked from the
// fingerprints and scores alone.
package dedup
