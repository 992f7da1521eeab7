// Package snapshot records container package inventories and exports
// whatever a package-manager transaction added or upgraded.
//
// A snapshot is the verbatim "name<TAB>version" inventory of one
// container, stored as SNAPSHOT_DIR/<box>.txt and fully replaced on every
// write. The package-manager shims call Take before a transaction and
// PostTransaction after it; PostTransaction diffs the stored inventory
// against the live one and hands each new or upgraded package to the
// export engine.
//
// Removed packages are not detected, and their exports are left in place.
package snapshot
