// Package models defines the core domain models for onecount.
//
// # Models
//
//   - Member: a person taking part in a bill
//   - Item: a priced line on the active bill, assignable to any number of members
//   - Bill: the single active (unsaved) bill being edited
//   - Folder: an immutable snapshot of a finalized bill
//   - ParsedReceipt: the structured result of analysing a receipt image
//
// # Identity
//
// Members are identified by ID inside one bill. Across folders the same person
// is matched by Name, because every bill snapshot carries its own member records.
//
// # Ownership
//
// A logical bill lives in exactly one place at a time: the active slot while it
// is being edited, or the archive once finalized. Reopening a folder moves it back
// into the active slot and removes it from the archive. BillState names these homes.
package models
