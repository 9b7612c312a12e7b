package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ashureev/wellness-companion/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTable(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadTableOverridesDefaults(t *testing.T) {
	path := writeTable(t, `
persona:
  en: You are a gentle listener.
intents:
  journal:
    es: Ofrece una pregunta para escribir.
`)

	table, err := LoadTable(path)
	require.NoError(t, err)

	assert.Equal(t, "You are a gentle listener.", table.Persona[domain.English])
	assert.Equal(t, "Ofrece una pregunta para escribir.", table.Intents[domain.IntentJournal][domain.Spanish])
	assert.Equal(t, DefaultTable().Intents[domain.IntentJournal][domain.English], table.Intents[domain.IntentJournal][domain.English])

	c, err := NewComposer(table)
	require.NoError(t, err)
	out, err := c.Compose(Context{UserText: "hi", Language: domain.English, Intent: domain.IntentGeneral})
	require.NoError(t, err)
	assert.Contains(t, out, "You are a gentle listener.")
}

func TestLoadTableRejectsBlankEnglish(t *testing.T) {
	path := writeTable(t, `
intents:
  motivation:
    en: ""
`)
	_, err := LoadTable(path)
	require.ErrorIs(t, err, ErrMissingInstruction)
}

func TestLoadTableRejectsUnknownKeys(t *testing.T) {
	for name, body := range map[string]string{
		"intent":   "intents:\n  gossip:\n    en: chat\n",
		"language": "persona:\n  it: Ciao\n",
		"field":    "personas:\n  en: hi\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadTable(writeTable(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoadTableMissingFile(t *testing.T) {
	_, err := LoadTable(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
