// Package domain exposes planner and calendar operations as MCP tools.
//
// Every handler acts for the single user a Scope names. Dates are civil
// YYYY-MM-DD strings; an empty date means today in the user's location.
package domain
