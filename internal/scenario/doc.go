// Package scenario replays YAML lifecycle scripts against an in-memory
// host tree. A scenario registers element kinds, runs a list of host
// mutations (create, connect, adopt, attribute writes, destroy) and
// compares the recorded callback trace with an expected block.
//
// Scenario files look like:
//
//	name: badge lifecycle
//	kinds:
//	  - kind: x-badge
//	    observed: [count]
//	steps:
//	  - create: x-badge
//	    as: badge
//	  - connect: badge
//	  - set-attribute: badge
//	    name: count
//	    value: "1"
//	  - destroy: badge
//	expect:
//	  - construct x-badge $badge
//	  - connect x-badge $badge
//	  - attr x-badge $badge count "" -> "1"
//	  - disconnect x-badge $badge
//	  - finalize changes=1
//
// $handle references expand to the host identity the run assigned, so
// expectations stay stable across tree layouts.
package scenario
