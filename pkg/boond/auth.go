package boond

import (
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
)

// jwtHeader is the header carrying the client-mode JWT.
const jwtHeader = "X-Jwt-Client-Boondmanager"

// Credentials authenticate against one environment. Client mode (tokens plus
// key) is preferred; Username/Password fall back to basic auth.
type Credentials struct {
	ClientToken string `mapstructure:"client_token"`
	ClientKey   string `mapstructure:"client_key"`
	UserToken   string `mapstructure:"user_token"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

func (c Credentials) clientMode() bool {
	return c.ClientToken != "" && c.ClientKey != "" && c.UserToken != ""
}

func (c Credentials) valid() bool {
	return c.clientMode() || (c.Username != "" && c.Password != "")
}

// session caches the signed JWT for one environment. Invalidate forces the
// next authorize call to mint a fresh token.
type session struct {
	creds Credentials
	now   func() time.Time

	mu    sync.Mutex
	token string
}

func newSession(creds Credentials) *session {
	return &session{creds: creds, now: time.Now}
}

// authorize sets the authentication header on req.
func (s *session) authorize(req *http.Request) error {
	if !s.creds.clientMode() {
		req.SetBasicAuth(s.creds.Username, s.creds.Password)
		return nil
	}
	tok, err := s.current()
	if err != nil {
		return err
	}
	req.Header.Set(jwtHeader, tok)
	return nil
}

func (s *session) current() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}

	claims := jwt.MapClaims{
		"userToken":   s.creds.UserToken,
		"clientToken": s.creds.ClientToken,
		"time":        s.now().Unix(),
		"mode":        "normal",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.creds.ClientKey))
	if err != nil {
		return "", eris.Wrap(err, "boond: sign client token")
	}
	s.token = signed
	return s.token, nil
}

func (s *session) invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}
