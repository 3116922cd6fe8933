package mcpserver

import (
	"strings"

	"github.com/chatwise-tools/chatwise-mcp/internal/search"
)

// Tool names.
const (
	ToolSearch = search.ToolName
	ToolGather = search.GatherToolName
	ToolDelete = "delete_conversation"
)

// ProfileRead holds the tools that only read the chat database.
var ProfileRead = map[string]bool{
	ToolSearch: true,
	ToolGather: true,
}

// ProfileAdmin holds the tools that modify the chat database.
var ProfileAdmin = map[string]bool{
	ToolDelete: true,
}

// Profiles maps profile names to their tool sets.
var Profiles = map[string]map[string]bool{
	"read":  ProfileRead,
	"admin": ProfileAdmin,
}

// ResolveTools turns a comma-separated list of profile names and tool
// names into the set of tools to register. Empty or "all" returns nil,
// meaning every tool.
func ResolveTools(input string) map[string]bool {
	input = strings.TrimSpace(input)
	if input == "" || input == "all" {
		return nil
	}

	result := make(map[string]bool)
	for _, token := range strings.Split(input, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if token == "all" {
			return nil
		}
		if profile, ok := Profiles[token]; ok {
			for tool := range profile {
				result[tool] = true
			}
		} else {
			result[token] = true
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

func shouldRegister(name string, allowlist map[string]bool) bool {
	if allowlist == nil {
		return true
	}
	return allowlist[name]
}
