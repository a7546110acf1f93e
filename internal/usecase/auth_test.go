package usecase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polkiloo/orderflow/internal/domain/model"
	pkgAuth "github.com/polkiloo/orderflow/internal/pkg/auth"
	testhelpers "github.com/polkiloo/orderflow/internal/test"
)

func TestAuthUseCaseParseToken(t *testing.T) {
	var seen string
	uc := NewAuthUseCase(testhelpers.StrategyStub{ParseFn: func(token string) (model.Principal, error) {
		seen = token
		if token != "good" {
			return model.Principal{}, pkgAuth.ErrInvalidToken
		}
		return model.Principal{UserID: 7, Role: model.RoleAdmin}, nil
	}})

	principal, err := uc.ParseToken("  good ")
	require.NoError(t, err)
	assert.Equal(t, "good", seen)
	assert.Equal(t, model.Principal{UserID: 7, Role: model.RoleAdmin}, principal)

	_, err = uc.ParseToken("bad")
	assert.True(t, errors.Is(err, pkgAuth.ErrInvalidToken))
}

func TestAuthUseCaseRejectsBlankToken(t *testing.T) {
	called := false
	uc := NewAuthUseCase(testhelpers.StrategyStub{ParseFn: func(string) (model.Principal, error) {
		called = true
		return model.Principal{}, nil
	}})

	_, err := uc.ParseToken("   ")
	require.ErrorIs(t, err, pkgAuth.ErrInvalidToken)
	assert.False(t, called)
}
