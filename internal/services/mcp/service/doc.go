// Package service wires the MCP protocol to the planner tools: server
// construction, tool and resource registration, and serving on a transport.
package service
