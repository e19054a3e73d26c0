// Package tilestream streams a large equirectangular panorama that has been
// pre-sliced into a grid of tiles, fetching only what the viewer can see.
//
// # Architecture overview
//
// The package is composed of three layers, leaf to root:
//
//  1. Grid geometry
//     Pure functions mapping a PanoramaConfig to tile sizes, texture points
//     to directions on the unit sphere, and grid corners to their four
//     adjacent tiles. Neighbors wrap around the seam and across the poles;
//     crossing a pole lands in the antipodal column band.
//
//  2. Visibility sampling
//     ComputeVisibleTiles tests every grid corner against the view
//     direction and the viewport. Each visible corner proposes its four
//     adjacent tiles, scored by the angle to the view center.
//
//  3. Scheduling
//     A Scheduler owns the known set of requested tiles and starts at most
//     Options.Concurrency fetches, always the pending tile nearest the view
//     center first. Each Submit demotes tiles that left the view so they
//     are not newly started; tiles already running are never preempted.
//
// Data flows one way per refresh: camera change, visibility, Submit,
// fetches drained by priority, then each settled tile is handed to a
// TextureSink and a redraw is requested.
//
// # Collaborators
//
// The package never renders. The viewer supplies a Projector (its lens
// model), a Fetcher (network and decoding) and a TextureSink (where decoded
// tiles go). HTTPFetcher and AtlasSink are ready-made implementations.
//
// # Clearing
//
// Loading a new panorama empties the known set before cancelling the old
// tasks. A fetch that finishes after its task was cancelled is discarded
// and never reaches the sink, so tiles of one panorama cannot be drawn into
// the canvases of the next.
//
// # Errors
//
// An invalid panorama fails fast with *ConfigurationError. A failed tile is
// a *FetchError local to that tile: the sink still receives it to draw a
// placeholder, and the tile may be requested again by a later refresh.
package tilestream
