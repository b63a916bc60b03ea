package flamegraph

import _ "embed"

// embeddedJS is the zoom/search interaction script inlined into every
// rendered SVG. Its observable contract (globals and element ids it
// reads) is fixed by spec §6; the script itself is treated as an opaque
// asset (spec §4.5 "Emit", §9 "Embedded JS").
//
//go:embed flamegraph.js
var embeddedJS string
