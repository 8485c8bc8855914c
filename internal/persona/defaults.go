package persona

import "aeterna/internal/models"

// Built-in catalogue used when no seed file is configured or it lists nothing.
var defaultPersonas = []models.PersonaProfile{
	{
		Key:         "priya",
		DisplayName: "Priya Singh",
		Tone:        "empathetic and family-focused",
		Archetype:   "International family explorer from Mumbai",
		Instructions: "You are Priya Singh's Time-Weave Guide. Prioritise family safety, Hindi + English bilingual tips, " +
			"gear fit for kids, and low-density scheduling. Highlight discounts for family bundles and " +
			"call out AR previews suitable for children aged 7 and 10.",
		DefaultLanguage: "en",
		Tags:            []string{"family", "bilingual", "crowd-aware"},
	},
	{
		Key:         "jax",
		DisplayName: "Jax Thompson",
		Tone:        "lively and data-rich",
		Archetype:   "Sydney-based history buff seeking exclusive events",
		Instructions: "Guide Jax with sport and history-first storytelling. Surface limited merch drops, score-based " +
			"timelines, and suggest AR replays of iconic matches. Always include population density deltas " +
			"and link to collectibles.",
		DefaultLanguage: "en",
		Tags:            []string{"history", "merch", "events"},
	},
	{
		Key:         "lena",
		DisplayName: "Lena Kowalski",
		Tone:        "respectful and scholarly",
		Archetype:   "Anangu collaborator and ranger",
		Instructions: "Support Lena with co-created cultural materials, cite Indigenous knowledge custodianship, " +
			"emphasise sustainability metrics and consent. Offer options to audit AR overlays for cultural compliance.",
		DefaultLanguage: "en",
		Tags:            []string{"ethics", "sustainability", "co-created"},
	},
	{
		Key:         "mike",
		DisplayName: "Mike Hargreaves",
		Tone:        "operational and decisive",
		Archetype:   "Uluru operations manager",
		Instructions: "Deliver logistics-first analytics for Mike. Provide crowd forecasts, capacity planning, " +
			"multi-coach itinerary builders, and highlight telco QoS requirements. Surface alerts when " +
			"density threatens cultural limits.",
		DefaultLanguage: "en",
		Tags:            []string{"operations", "forecast", "alerts"},
	},
	{
		Key:         "amara",
		DisplayName: "Amara Singh",
		Tone:        "playful and curious",
		Archetype:   "Priya's 10-year-old daughter",
		Instructions: "Adopt a playful, kid-safe tone. Answer in short bilingual snippets (Hindi + English). " +
			"Recommend mini quests, AR scavenger hunts, and notify parents for bookings.",
		DefaultLanguage: "en",
		Tags:            []string{"kids", "quests", "bilingual"},
	},
	{
		Key:         "kabir",
		DisplayName: "Kabir Singh",
		Tone:        "adventurous and encouraging",
		Archetype:   "Priya's 7-year-old son",
		Instructions: "Respond with adventurous yet safe suggestions. Encourage AR animal companions, " +
			"translate tricky words, and keep instructions clear for younger readers.",
		DefaultLanguage: "en",
		Tags:            []string{"kids", "adventure", "simplicity"},
	},
}

var defaultUsers = []models.PersonaUser{
	{
		UserID:   "user-priya",
		Name:     "Priya Singh",
		Persona:  "priya",
		Language: "en",
		Traits: map[string]interface{}{
			"homeCity":           "Mumbai",
			"familyMembers":      []interface{}{"Amara", "Kabir"},
			"preferredLanguages": []interface{}{"en", "hi"},
		},
	},
	{
		UserID:   "user-jax",
		Name:     "Jax Thompson",
		Persona:  "jax",
		Language: "en",
		Traits:   map[string]interface{}{"membershipTier": "Legends+", "collectiblesOwned": 8},
	},
	{
		UserID:   "user-lena",
		Name:     "Lena Kowalski",
		Persona:  "lena",
		Language: "en",
		Traits:   map[string]interface{}{"role": "anthropologist", "region": "Uluru"},
	},
	{
		UserID:   "user-mike",
		Name:     "Mike Hargreaves",
		Persona:  "mike",
		Language: "en",
		Traits:   map[string]interface{}{"team": "Uluru Ops", "dailyCapacity": 500},
	},
	{
		UserID:   "user-amara",
		Name:     "Amara Singh",
		Persona:  "amara",
		Language: "en",
		Traits:   map[string]interface{}{"age": 10, "guardianUserId": "user-priya"},
	},
	{
		UserID:   "user-kabir",
		Name:     "Kabir Singh",
		Persona:  "kabir",
		Language: "en",
		Traits:   map[string]interface{}{"age": 7, "guardianUserId": "user-priya"},
	},
}
