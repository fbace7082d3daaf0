package ports

import "github.com/layer-3/siwx/core"

// Tokenizer converts between sessions and access tokens
type Tokenizer interface {
	SessionToAccessToken(session *core.Session) (string, error)
	AccessTokenToSession(token string) (*core.Session, error)
}
