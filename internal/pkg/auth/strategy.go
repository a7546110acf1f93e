package auth

import "github.com/polkiloo/orderflow/internal/domain/model"

// Strategy verifies bearer tokens carrying caller identity.
// Tokens are issued by the identity service; this service only checks them.
type Strategy interface {
	ParseToken(token string) (model.Principal, error)
}
