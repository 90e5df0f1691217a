// Package domain defines the core business types for the CRM back office.
//
// Types in this package are pure value objects: status tokens with their
// transition tables, funnel metric records, and the entities that own them.
// They carry no database dependencies and no HTTP concerns; they are the
// shared language between handlers, services, and repositories.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Validation methods are allowed (they're pure functions on the type)
//   - Constants, enums, and transition tables belong here
package domain
