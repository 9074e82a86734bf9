package model

// PairingState is the explicit lifecycle of a device's pairing. It is stored
// on the device row rather than inferred from nullable pin/secret columns so
// that re-pairing cannot produce ambiguous intermediate states.
type PairingState string

const (
	PairingStateUnpaired  PairingState = "unpaired"
	PairingStatePinIssued PairingState = "pin_issued"
	PairingStatePaired    PairingState = "paired"
)

// Scope is the targeting tier of a publication. Resolution priority is
// DEVICE > STORE > GLOBAL.
type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeStore  Scope = "store"
	ScopeDevice Scope = "device"
)

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
	MediaTypeWeb   MediaType = "web"
)

type Orientation string

const (
	OrientationLandscape Orientation = "landscape"
	OrientationPortrait  Orientation = "portrait"
)
