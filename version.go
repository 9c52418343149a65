package relay

// Version is the release of the relay module, reported by the CLI and the MCP server.
const Version = "0.1.0"
