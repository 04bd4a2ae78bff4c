// Package rules loads design rules, compiles them against a board and
// checks the board for violations.
//
// A rule file is YAML:
//
//	rules:
//	  - name: pad-clearance
//	    condition: A.Type == 'pad'
//	    assert: A.Clearance >= 0.15mm
//	    message: "@{A.Name} clearance @{A.Clearance} is below 0.15mm"
//	  - name: via-spacing
//	    pairwise: true
//	    condition: A.Type == 'via' && B.Type == 'via'
//	    assert: A.Net == B.Net || A.Clearance >= 0.2mm
//	    severity: warning
//
// Compile turns every enabled rule into libeval programs using the
// board's unit system and property names. Rules that fail to compile are
// reported and left out; the rest are evaluated by a Checker:
//
//	cs, err := rules.Compile(ctx, set, b, rules.WithLogger(logger))
//	res, err := rules.NewChecker(cs).Check(ctx, b)
//
// Evaluation fails closed: an assertion that faults at run time is
// reported as a violation with Fault set.
//
// A Loader combines a Source with Compile and swaps in a fresh Checker on
// every successful Reload, which lets watch mode pick up rule edits
// without interrupting a running check.
package rules
