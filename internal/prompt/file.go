package prompt

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ashureev/wellness-companion/internal/domain"
	"gopkg.in/yaml.v3"
)

// LoadTable reads an instruction table from a YAML file:
//
//	persona:
//	  en: You are a compassionate mental wellness assistant.
//	intents:
//	  mood_analysis:
//	    en: Analyze the user's mood ...
//
// Entries missing from the file are taken from DefaultTable, so a file only
// needs the texts it overrides. Unknown intents and languages are rejected.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read prompt table: %w", err)
	}

	var override Table
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&override); err != nil {
		return Table{}, fmt.Errorf("parse prompt table %s: %w", path, err)
	}

	table := DefaultTable()
	for lang, text := range override.Persona {
		if !lang.IsSupported() {
			return Table{}, fmt.Errorf("prompt table %s: unsupported language %q", path, lang)
		}
		table.Persona[lang] = text
	}
	for in, variants := range override.Intents {
		if !in.Valid() {
			return Table{}, fmt.Errorf("prompt table %s: unknown intent %q", path, in)
		}
		for lang, text := range variants {
			if !lang.IsSupported() {
				return Table{}, fmt.Errorf("prompt table %s: unsupported language %q", path, lang)
			}
			if table.Intents[in] == nil {
				table.Intents[in] = make(map[domain.Language]string)
			}
			table.Intents[in][lang] = text
		}
	}

	if err := table.Validate(); err != nil {
		return Table{}, fmt.Errorf("prompt table %s: %w", path, err)
	}
	return table, nil
}
