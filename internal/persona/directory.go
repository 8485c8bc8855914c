package persona

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync"
	"unicode"

	"aeterna/internal/models"
	"aeterna/pkg/auth"
)

// Directory is the read-only catalogue of personas and demo users.
// The catalogue is loaded on first use and kept for the life of the process.
type Directory struct {
	seedPath string
	tokens   *auth.IdentityTokens

	once     sync.Once
	personas []models.PersonaProfile
	byKey    map[string]int
	users    []models.PersonaUser
}

// NewDirectory creates a directory reading seedPath (empty for the built-in
// catalogue) and verifying identity tokens with tokens.
func NewDirectory(seedPath string, tokens *auth.IdentityTokens) *Directory {
	return &Directory{seedPath: seedPath, tokens: tokens}
}

type seedFile struct {
	Personas []seedPersona `json:"personas"`
	Users    []seedUser    `json:"users"`
}

type seedPersona struct {
	Key             string   `json:"key"`
	DisplayName     string   `json:"display_name"`
	Tone            string   `json:"tone"`
	Archetype       string   `json:"archetype"`
	Instructions    string   `json:"instructions"`
	DefaultLanguage string   `json:"default_language"`
	Hashtags        []string `json:"hashtags"`
}

type seedUser struct {
	UserID   string                 `json:"user_id"`
	Name     string                 `json:"name"`
	Persona  string                 `json:"persona"`
	Language string                 `json:"language"`
	Traits   map[string]interface{} `json:"traits"`
}

func (d *Directory) load() {
	d.once.Do(func() {
		personas, users := d.readSeed()
		if len(personas) == 0 {
			personas = defaultPersonas
		}
		if len(users) == 0 {
			users = defaultUsers
		}

		d.byKey = make(map[string]int, len(personas))
		for _, p := range personas {
			key := models.NormalizePersonaKey(p.Key)
			if _, dup := d.byKey[key]; dup {
				log.Printf("⚠️  [PERSONA] Duplicate persona key %q in catalogue, keeping the first", p.Key)
				continue
			}
			d.byKey[key] = len(d.personas)
			d.personas = append(d.personas, p)
		}
		d.users = users

		log.Printf("✅ [PERSONA] Catalogue loaded: %d personas, %d users", len(d.personas), len(d.users))
	})
}

func (d *Directory) readSeed() ([]models.PersonaProfile, []models.PersonaUser) {
	if d.seedPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(d.seedPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		log.Printf("⚠️  [PERSONA] Cannot read seed file %s, using built-in catalogue: %v", d.seedPath, err)
		return nil, nil
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		log.Printf("⚠️  [PERSONA] Malformed seed file %s, using built-in catalogue: %v", d.seedPath, err)
		return nil, nil
	}

	var personas []models.PersonaProfile
	for _, entry := range seed.Personas {
		if strings.TrimSpace(entry.Key) == "" {
			log.Printf("⚠️  [PERSONA] Skipping seed persona without a key")
			continue
		}
		p := models.PersonaProfile{
			Key:             entry.Key,
			DisplayName:     entry.DisplayName,
			Tone:            entry.Tone,
			Archetype:       entry.Archetype,
			Instructions:    entry.Instructions,
			DefaultLanguage: entry.DefaultLanguage,
			Tags:            entry.Hashtags,
		}
		if p.DisplayName == "" {
			p.DisplayName = capitalizeWords(p.Key)
		}
		if p.Tone == "" {
			p.Tone = "insightful"
		}
		if p.DefaultLanguage == "" {
			p.DefaultLanguage = "en"
		}
		if p.Tags == nil {
			p.Tags = []string{}
		}
		personas = append(personas, p)
	}

	var users []models.PersonaUser
	for _, entry := range seed.Users {
		if entry.UserID == "" {
			log.Printf("⚠️  [PERSONA] Skipping seed user without a user_id")
			continue
		}
		u := models.PersonaUser{
			UserID:   entry.UserID,
			Name:     entry.Name,
			Persona:  entry.Persona,
			Language: entry.Language,
			Traits:   entry.Traits,
		}
		if u.Name == "" {
			u.Name = u.UserID
		}
		if u.Persona == "" {
			u.Persona = "priya"
		}
		if u.Language == "" {
			u.Language = "en"
		}
		if u.Traits == nil {
			u.Traits = map[string]interface{}{}
		}
		users = append(users, u)
	}

	return personas, users
}

// FindPersona looks up a persona by key, ignoring case
func (d *Directory) FindPersona(key string) (models.PersonaProfile, bool) {
	d.load()
	i, ok := d.byKey[models.NormalizePersonaKey(key)]
	if !ok {
		return models.PersonaProfile{}, false
	}
	return d.personas[i], true
}

// Personas lists the catalogue in load order
func (d *Directory) Personas() []models.PersonaProfile {
	d.load()
	return append([]models.PersonaProfile(nil), d.personas...)
}

// Users lists the demo users
func (d *Directory) Users() []models.PersonaUser {
	d.load()
	return append([]models.PersonaUser(nil), d.users...)
}

func (d *Directory) findUser(userID, persona string) (models.PersonaUser, bool) {
	for _, u := range d.users {
		if u.UserID == userID && u.Persona == persona {
			return u, true
		}
	}
	return models.PersonaUser{}, false
}

func capitalizeWords(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if i == 0 || !unicode.IsLetter(runes[i-1]) {
			runes[i] = unicode.ToUpper(r)
		} else {
			runes[i] = unicode.ToLower(r)
		}
	}
	return string(runes)
}
