package types

// Version is the canonical project version.
// The HTTP API, the completion event contract and the CLI share it
// (lockstep versioning).
const Version = "0.4.0"

// ContractVersion is stamped on every published completion event.
// It always equals Version.
const ContractVersion = Version
