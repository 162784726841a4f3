package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventhub/backend/internal/models"
)

func TestGenerateValidate(t *testing.T) {
	svc := NewJWTService("secret", "idp", 1)
	id := uuid.New()
	tok, err := svc.Generate(id, "ana@example.com", "Ana", models.CategoryProfessional)
	require.NoError(t, err)

	claims, err := svc.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	actor := claims.Actor()
	assert.Equal(t, id, actor.ID)
	assert.Equal(t, models.CategoryProfessional, actor.Category)
}

func TestValidateRejects(t *testing.T) {
	svc := NewJWTService("secret", "idp", 1)
	tok, err := svc.Generate(uuid.New(), "a@b.c", "A", models.CategoryStudent)
	require.NoError(t, err)

	_, err = NewJWTService("other", "idp", 1).Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewJWTService("secret", "someone-else", 1).Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewJWTService("secret", "idp", -1).Generate(uuid.New(), "a@b.c", "A", models.CategoryStudent)
	require.NoError(t, err)
	_, err = svc.Validate(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
