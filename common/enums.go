// Package common keeps enumerations shared by configuration and commands.
package common

//go:generate go tool go-enum --marshal --names

// Specification of requested output type.
// ENUM(css, yaml, tree)
type OutputFmt int

func (o OutputFmt) Ext() string {
	switch o {
	case OutputFmtCss:
		return ".css"
	case OutputFmtYaml:
		return ".yaml"
	case OutputFmtTree:
		return ".txt"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}
