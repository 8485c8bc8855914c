package models

import "strings"

// PersonaProfile describes one conversational persona of the Time-Weave guide
type PersonaProfile struct {
	Key             string   `json:"key"`
	DisplayName     string   `json:"display_name"`
	Tone            string   `json:"tone"`
	Archetype       string   `json:"archetype"`
	Instructions    string   `json:"instructions"`
	DefaultLanguage string   `json:"default_language"`
	Tags            []string `json:"hashtags"`
}

// PersonaUser is a demo user bound to a persona, or a user synthesized from an identity token
type PersonaUser struct {
	UserID   string                 `json:"user_id"`
	Name     string                 `json:"name"`
	Persona  string                 `json:"persona"`
	Language string                 `json:"language"`
	Traits   map[string]interface{} `json:"traits"`
}

// NormalizePersonaKey returns the case-insensitive lookup form of a persona key
func NormalizePersonaKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
