// Package board provides the object model that Anvil rules are checked
// against, loaded from YAML:
//
//	name: demo
//	units: board
//	layers: [F.Cu, B.Cu]
//	items:
//	  - name: R1-1
//	    type: pad
//	    layers: [F.Cu]
//	    net: VCC
//	    netclass: Power
//	    plated: true
//	    properties:
//	      Clearance: 0.2mm
//	      Drill: 0.8mm
//
// A Binder exposes the board to the expression compiler. Rules see the
// items under test as A and B:
//
//	A.Type == 'pad' && A.Clearance >= 0.15mm
//	A.existsOnLayer('F.Cu') && A.hasNetclass('Pow*')
//
// Missing nets, net classes and layers read as null. A property declared
// on some items reads as null on the others.
package board
