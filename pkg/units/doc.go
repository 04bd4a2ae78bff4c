// Package units provides unit resolvers for rule expressions.
//
// A resolver maps unit suffix names (the "mm" in "0.25mm") to a scale into a
// common base unit and to an abstract unit kind. Different use sites inject
// different resolvers: board distances are stored in nanometres, schematic
// distances in units of 100 nm.
//
// # Basic Usage
//
//	r := units.Board()
//	for i, name := range r.SupportedUnits() {
//	    fmt.Println(i, name, r.UnitKind(i))
//	}
//
//	v := r.Convert("0.25", 0) // 250000 (nm)
//
// Resolvers are immutable and safe for concurrent use.
package units
