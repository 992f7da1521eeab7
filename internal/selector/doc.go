// Package selector resolves user intent into exactly one target container.
//
// Inputs are the discovered containers, the package format (or an explicit
// family override), and the selection policy: an explicit container name,
// whether automatic creation is allowed, and an optional base-image
// override for creation.
//
// Resolution order:
//  1. An explicit name must exist in the discovered list; it is classified
//     and returned with no family filtering.
//  2. Otherwise every container is classified and those whose family is in
//     the candidate set are kept. Containers that cannot be classified are
//     skipped.
//  3. A single match is returned without prompting. Several matches are
//     offered as a numbered list when the session is interactive.
//  4. With no match, the default container for the first candidate family
//     is created when allowed (or confirmed interactively).
//
// Ambiguity never leads to creation: several matches that are not resolved
// by the user fail with model.ErrNoMatchFound, asking the caller to pass
// --container or --family.
package selector
