// Package internal holds helpers private to this module: random session ids
// and token digests shared by the store adapters.
//
// Sub-packages:
//
//   - config: environment configuration via viper
//   - logger: zap logger construction
//   - httpjson: JSON response helper shared by middleware and servers
//   - app: the storefront-auth HTTP service assembly
package internal
