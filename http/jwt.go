package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/SermoDigital/jose/crypto"
	"github.com/SermoDigital/jose/jws"
	"github.com/SermoDigital/jose/jwt"
)

var hashAlg = crypto.SigningMethodHS256

const scopesClaim = "scopes"

type Scope string

var (
	AdminScope = Scope("admin")
)

type JwtAuth struct {
	Emitter
	Key []byte
}

func (t *JwtAuth) NewToken(scopes ...Scope) ([]byte, error) {
	if len(t.Key) == 0 {
		return nil, errors.New("signing key not available")
	}

	claims := jws.Claims{}
	claims.Set(scopesClaim, scopes)
	claims.SetIssuedAt(time.Now())
	encoder := jws.NewJWT(claims, hashAlg)
	token, err := encoder.Serialize(t.Key)
	if err != nil {
		return nil, err
	}

	return token, nil
}

func (t *JwtAuth) Authenticate(req *http.Request, scope Scope) error {
	if len(t.Key) == 0 {
		return t.emitErr(errors.New("Signing key not set"))
	}

	bearerToken := req.Header.Get("Authorization")
	if bearerToken == "" {
		return t.emitErr(errors.New("Authentication header not presented"))
	}

	if len(bearerToken) < 7 || !strings.EqualFold(bearerToken[0:7], "BEARER ") {
		return t.emitErr(errors.New("Cannot recognize JWT token in passed value"))
	}

	tokenStr := bearerToken[7:]
	token, err := jws.ParseJWT([]byte(tokenStr))
	if err != nil {
		return t.emitErr(errors.New("Cannot parse passed JWT token"))
	}

	err = token.Validate(t.Key, hashAlg)
	if err != nil {
		return t.emitErr(errors.New("JWT token have invalid signature. It may be corrupted or expired"))
	}

	if !tokenHasScope(token.Claims(), scope) {
		return t.emitErr(errors.New("The token doesn't have the scope to perform the action"))
	}

	t.Emit("authenticator:success")

	return nil
}

func (t *JwtAuth) emitErr(err error) error {
	t.Emit("authenticator:error", err)
	return err
}

func tokenHasScope(claims jwt.Claims, scope Scope) bool {
	scopes, ok := claims.Get(scopesClaim).([]interface{})
	if !ok {
		return false
	}

	for _, value := range scopes {
		if str, ok := value.(string); ok && Scope(str) == scope {
			return true
		}
	}

	return false
}
