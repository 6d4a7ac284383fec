// Package core provides the business logic for provider import operations.
//
// This package is the heart of the importer, containing all domain logic
// independent of any transport or storage layer. It can be used by web
// handlers, CLI tools, or tests without modification.
//
// # Architecture
//
// The package is organized around one pipeline with three input adapters:
//
//   - Template: a 39-column CSV upload ([Service.ImportFile])
//   - AI-Map: objects produced by an external mapping step ([Service.ImportExtracted])
//   - URL: a roster page passed through robots.txt compliance and an
//     extraction service ([Service.ImportURL])
//
// Every adapter produces a [Batch]. [Pipeline.Run] turns a batch into an
// [ImportJob] row by row:
//
//	map headers -> sanitize -> validate -> business rules -> dedupe
//
// Records that pass validation are staged on the job and written to the
// provider store only by an explicit [Service.CommitJob].
//
// # Validation
//
// Field rules are declarative ([FieldRule]) and chosen by [Profile]: the
// template profile requires the full provider identity, the extracted
// profile only names and specialty. Cross-field [Invariants] and
// [BusinessRules] run after the field rules. Business rules only warn; a row
// is accepted when it has no error-severity issues.
//
// # Duplicate Detection
//
// Accepted rows are compared with a candidate window from the
// [ProviderStore] using exact NPI, name plus date of birth, and fuzzy name
// plus specialty, in that order.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - SEC001-SEC004: Security gates (injection, file type, blocked URL)
//   - FILE001-FILE005: File errors (size, format, empty, read timeout)
//   - EXT001-EXT005: Extraction errors (robots.txt, timeout, no records)
//   - IMP001-IMP006: Import job errors (busy, not found, commit)
//   - DB001-DB007: Provider store errors
//   - REQ001: Malformed API requests
package core
