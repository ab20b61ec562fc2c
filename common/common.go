// Package common holds build identity shared across binaries.
package common

// PackageName identifies this module in metrics and logs.
const PackageName = "automata"

// Version is set at build time through ldflags.
var Version = "dev"
