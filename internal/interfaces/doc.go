// Package interfaces documents the core abstractions of the cover cache and
// holds compile-time checks that the concrete types satisfy them.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - WorkIdentifiers, IdentifierWriter: identifier reads and writes used by
//     the acquisition engine (internal/acquisition/engine.go)
//   - ManifestationStore, CoverlessWorks: catalog sync targets
//     (internal/maintenance/maintenance.go)
//   - Store, IdentifierStore: cover retrieval and staff overrides
//     (internal/works/service.go)
//
// ## External Service Interfaces
//
//   - catalog.Source: the external bibliographic database
//     (internal/catalog/catalog.go)
//   - sources.Source: one image provider (internal/sources/source.go)
//   - sources.Recommender: providers that suggest related titles
//     (internal/sources/registry.go)
//
// ## Progress Tracking Interfaces
//
//   - ProgressReporter: maintenance run progress
//     (internal/maintenance/maintenance.go)
//
// # Adding a New Image Provider
//
//  1. Add the source name to internal/entities/covers.go.
//  2. Implement sources.Source in internal/sources/<name>.go: Applies decides
//     which identifiers the provider can use, ImageURL builds the request,
//     Validate rejects placeholder or error responses and Filename names the
//     stored file.
//  3. Register it in sources.NewDefaultRegistry and add a compile-time check
//     to checks.go.
//  4. Add the name to SOURCE_PRECEDENCE where it should rank.
//
// # Adding a New Identifier Source
//
// Provider identifiers found in catalog links are configured, not coded: add
// an entry to provider_indicators in the config file mapping the source name
// to a pattern whose first capture group is the identifier value.
package interfaces
