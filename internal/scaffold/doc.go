// Package scaffold holds the built-in project templates behind sill init.
//
// A template is a set of files rendered with text/template against a
// Config. The minimal template is a sill.json and one element template;
// the demo template adds a second element and a scenario runnable with
// sill simulate.
package scaffold
