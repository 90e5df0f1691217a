// Package adcampaign implements ad-campaign lifecycle management and the
// campaign statistics engine.
//
// The service layer contains all business logic for creating, transitioning,
// and aggregating paid campaigns. It depends on the repository interface
// defined in this package and should never import from api/.
//
// Statistics are computed in a single streaming pass over the filtered
// campaign collection and memoized in the result cache under a fingerprint
// of the canonicalized filters.
package adcampaign
