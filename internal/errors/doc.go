// Package errors provides structured, coded error messages for sill.
//
// Every failure the bridge can report carries a stable code so that hosts,
// logs, and operators can key off it without string matching:
//   - A short message describing the error
//   - A detailed explanation
//   - A documentation URL
//
// # Error Categories
//
// Errors are organized into categories:
//   - registry: kind definition errors (duplicate kinds, invalid names)
//   - lifecycle: dispatch errors (unknown handles, callback failures)
//   - borrow: reentrant instance state access violations
//   - template: template build and cache errors
//   - protocol: wire errors (invalid frames, version mismatches)
//   - host: document engine refusals (dead handles, failed queries)
//   - config: sill.json errors
//   - cli: scenario and command errors
//
// # Usage
//
//	err := errors.New("E001").
//	    WithDetail(fmt.Sprintf("kind %q was first defined by %s", kind, origin)).
//	    WithSuggestion("Give one of the two definitions a different kind name")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E001: Element kind already registered
//	//
//	//   kind "status-badge" was first defined by widgets.Register
//	//
//	//   Hint: Give one of the two definitions a different kind name
//	//
//	//   Learn more: https://sill.dev/docs/errors/E001
//
// Scenario and configuration parse errors additionally carry a file location
// with surrounding lines, attached via WithLocation or WithLocationFromYAML.
package errors
