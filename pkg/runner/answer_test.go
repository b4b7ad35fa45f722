package runner

import (
	"testing"

	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decision(mode domain.ChoiceMode, titles ...string) domain.Decision {
	d := domain.Decision{Context: "db", Title: "Database", Mode: mode}
	for _, t := range titles {
		d.Options = append(d.Options, domain.Option{Title: t})
	}
	return d
}

func TestParseAnswer_Single(t *testing.T) {
	d := decision(domain.ChoiceSingle, "Postgres", "MySQL")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"By Number", "2", "MySQL", false},
		{"By Title", "Postgres", "Postgres", false},
		{"Case Insensitive", "mysql", "MySQL", false},
		{"Out Of Range", "3", "", true},
		{"Unknown", "Oracle", "", true},
		{"Empty Without Suggestion", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnswer(d, tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAnswer)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Value)
		})
	}
}

func TestParseAnswer_Suggested(t *testing.T) {
	d := decision(domain.ChoiceSingle, "Postgres", "MySQL")
	d.Suggested = "MySQL"

	got, err := ParseAnswer(d, "  ")
	require.NoError(t, err)
	assert.Equal(t, "MySQL", got.Value)

	// A stale suggestion naming a removed option is not reused.
	d.Suggested = "Oracle"
	_, err = ParseAnswer(d, "")
	assert.ErrorIs(t, err, ErrInvalidAnswer)
}

func TestParseAnswer_Multi(t *testing.T) {
	d := decision(domain.ChoiceMulti, "git", "make", "docker")

	got, err := ParseAnswer(d, "3, git,3")
	require.NoError(t, err)
	titles, err := domain.DecodeMulti(got.Value)
	require.NoError(t, err)
	assert.Equal(t, []string{"docker", "git"}, titles)

	_, err = ParseAnswer(d, " , ")
	assert.ErrorIs(t, err, ErrInvalidAnswer)

	d.Suggested = domain.EncodeMulti([]string{"make"})
	got, err = ParseAnswer(d, "")
	require.NoError(t, err)
	assert.Equal(t, d.Suggested, got.Value)
}

func TestFormAnswer(t *testing.T) {
	d := decision(domain.ChoiceForm, "host", "port")
	d.Options[1].Field = &domain.FormField{Default: "5432"}

	got, err := FormAnswer(d, map[string]string{"host": "db.local"})
	require.NoError(t, err)
	values, err := domain.DecodeForm(got.Value)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"host": "db.local", "port": "5432"}, values)

	_, err = FormAnswer(d, map[string]string{"user": "x"})
	assert.ErrorIs(t, err, ErrInvalidAnswer)

	// Stored values win over declared defaults.
	d.Suggested = domain.EncodeForm(map[string]string{"host": "old", "port": "6543"})
	got, err = FormAnswer(d, map[string]string{"host": "new"})
	require.NoError(t, err)
	values, _ = domain.DecodeForm(got.Value)
	assert.Equal(t, "6543", values["port"])
}

func TestValidSuggestion(t *testing.T) {
	d := decision(domain.ChoiceMulti, "a", "b")
	assert.False(t, ValidSuggestion(d))

	d.Suggested = domain.EncodeMulti([]string{"a", "b"})
	assert.True(t, ValidSuggestion(d))

	d.Suggested = domain.EncodeMulti([]string{"a", "z"})
	assert.False(t, ValidSuggestion(d))

	d.Suggested = "not json"
	assert.False(t, ValidSuggestion(d))
}
