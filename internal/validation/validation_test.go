package validation

import (
	"errors"
	"strings"
	"testing"

	"classblog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blogPayload struct {
	Title      string  `json:"title" validate:"required,max=255"`
	Status     string  `json:"status" validate:"omitempty,oneof=draft published"`
	Slug       *string `json:"slug" validate:"omitempty,max=255,slug"`
	AuthorMail string  `json:"author_mail" validate:"omitempty,email"`
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeValidation, appErr.Code)
	return appErr.Fields
}

func TestStruct_Valid(t *testing.T) {
	slug := "hello-world"
	assert.NoError(t, Struct(&blogPayload{Title: "Hello", Status: "draft", Slug: &slug}))
}

func TestStruct_FieldMessages(t *testing.T) {
	bad := "Not A Slug"
	err := Struct(&blogPayload{
		Title:      "",
		Status:     "archived",
		Slug:       &bad,
		AuthorMail: "nope",
	})

	fields := fieldsOf(t, err)
	assert.Equal(t, "The title field is required.", fields["title"])
	assert.Equal(t, "The selected status is invalid.", fields["status"])
	assert.Equal(t, "The slug may only contain lowercase letters, numbers, and dashes.", fields["slug"])
	assert.Equal(t, "The author mail must be a valid email address.", fields["author_mail"])
}

func TestStruct_MaxLength(t *testing.T) {
	err := Struct(&blogPayload{Title: strings.Repeat("x", 256)})
	assert.Equal(t, "The title may not be greater than 255 characters.", fieldsOf(t, err)["title"])
}

func TestStruct_Password(t *testing.T) {
	type signup struct {
		Password string `json:"password" validate:"required,password"`
	}
	err := Struct(&signup{Password: "short"})
	assert.Equal(t, "The password must be at least 12 characters long.", fieldsOf(t, err)["password"])
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "SecurePass12!@", false},
		{"Exactly Min Length", "Abcdefghij1!", false},
		{"Exactly Max Length", "A" + strings.Repeat("b", 125) + "1!", false},
		{"Too Short", "Small1!", true},
		{"Too Long", "A" + strings.Repeat("b", 126) + "1!", true},
		{"No Upper", "securepass12!", true},
		{"No Lower", "SECUREPASS12!", true},
		{"No Digit", "SecurePass!!", true},
		{"No Special", "SecurePass123", true},
		{"Unicode Characters", "ÅngstromPass12!", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidSlug(t *testing.T) {
	assert.True(t, ValidSlug("web-development"))
	assert.False(t, ValidSlug("-leading"))
	assert.False(t, ValidSlug("Upper"))
	assert.False(t, ValidSlug(""))
}
