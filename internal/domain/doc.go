// Package domain models public-utility facility records gathered from a
// bundled nationwide dataset and remote government facility APIs.
//
// # Data Sources
//
// Four providers feed the discovery core:
//
//	bundled  Ships with the binary: a nationwide fixture covering major
//	         metros in all 50 states. Loaded once at startup, never refetched.
//	hrsa     Health Resources & Services Administration health centers
//	         (community, migrant, homeless, public housing, school-based,
//	         and federally qualified sites).
//	va       Department of Veterans Affairs facilities (medical centers,
//	         outpatient clinics, vet centers, regional offices, cemeteries).
//	usda     Department of Agriculture offices (rural development, SNAP,
//	         farm service, extension, WIC).
//
// Each provider exposes its own type vocabulary; Normalize maps those through
// static per-provider tables into the closed Category enumeration. Strings
// with no table entry map to CategoryUnknown rather than being dropped, so
// downstream filtering can still surface them under an "other" bucket.
//
// # ID Generation
//
// Facility IDs are prefixed with the provider tag and the provider's local
// identifier ("hrsa_0042"), matching the upstream convention. Records without
// a local identifier get a deterministic SHA-256 hash of
// provider|name|lat|lon, so refetching the same underlying record always
// yields the same ID. See [buildID].
//
// # Coordinates
//
// Latitude must lie in [-90, 90] and longitude in [-180, 180]; anything else
// (including NaN and ±Inf) rejects the record at normalization. Distances are
// great-circle kilometers via [Haversine].
package domain
