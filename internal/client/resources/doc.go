// Package resources manages image bytes fetched with the bearer credential.
//
// Fetched bytes are held by a Registry and referred to by opaque local
// handles. Each rendering target is a Slot holding at most one live handle;
// a new handle is only registered after the previous one is released, a
// failed load releases it too so the slot shows the failure, and
// ReleaseAll reclaims every outstanding handle at once (on navigation away
// from a listing, before a listing reload and on logout).
//
// A Slot carries a generation counter and the Registry an epoch, so a load
// that completes after a newer load of the same slot, or after a bulk
// release, is discarded instead of overwriting fresher state.
package resources
