// ABOUTME: Agent configuration and the system prompt template
// ABOUTME: Configs are persisted once per name and shared by every chat

package agent

import (
	"strings"
	"text/template"
)

// Config describes an agent independently of any chat.
type Config struct {
	Name         Name
	Description  string
	Role         Role
	SystemPrompt string // rendered once from Role instructions, empty for users
}

const systemPromptText = `{{if .Name}}Your name is {{.Name}}. {{end}}You are taking part in a group chat with a human user and possibly other AI assistants. Messages from other participants are labelled with their author's name when one is known. Speak only for yourself.

{{.Instructions}}`

var systemPromptTmpl = template.Must(template.New("system_prompt").Parse(systemPromptText))

// RenderSystemPrompt fills the system prompt template. The output depends only
// on the inputs.
func RenderSystemPrompt(name Name, instructions string) string {
	var b strings.Builder
	data := struct {
		Name         string
		Instructions string
	}{
		Name:         name.Author(),
		Instructions: instructions,
	}
	// The template is static and the data is two strings; Execute cannot fail.
	_ = systemPromptTmpl.Execute(&b, data)
	return strings.TrimSpace(b.String())
}

// UserConfig builds the configuration of the human participant.
func UserConfig(name Name, description string) Config {
	return Config{
		Name:        name,
		Description: description,
		Role:        UserRole(),
	}
}

// AssistantConfig builds an assistant configuration, rendering its prompt.
func AssistantConfig(name Name, instructions, description string) Config {
	return Config{
		Name:         name,
		Description:  description,
		Role:         AssistantRole(instructions),
		SystemPrompt: RenderSystemPrompt(name, instructions),
	}
}
