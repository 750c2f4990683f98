// Package app composes the domain services into a running application.
//
// The package sits above the services and is responsible only for wiring
// and lifecycle, never for business logic:
//
//	internal/app/
//	├── application.go      # Application struct, wiring, lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── icon/           # Icons, generation requests and results
//	│   └── credit/         # Credit balances, ledger entries, subscriptions
//	├── storage/            # Store interfaces plus memory and postgres backends
//	├── services/           # Business logic (generation, library, credits, subscription)
//	├── httpapi/            # HTTP handlers, routing, SSE streaming
//	└── system/             # Lifecycle manager for attached services
//
// Dependencies flow downward: cmd/server builds an Application from config,
// the Application wires services to stores, and httpapi translates HTTP
// requests into service calls. Services never import httpapi, and storage
// implementations never import services.
//
// When adding a new domain, create its models under domain/, add a store
// interface to storage/interfaces.go with memory and postgres
// implementations, build the service under services/, then wire it in
// application.go and expose it from httpapi.
package app
