package draftstore

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"mutari/pkg/types"

	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"
)

const (
	// browsers drop cookies above 4096 bytes including name and attributes
	cookieChunkSize = 3800
	maxCookieChunks = 8
)

// CookieStore keeps the draft in encrypted cookies, split across
// name, name.1, name.2... when the encoded draft outgrows one cookie. It is
// bound to one request/response pair; saves made during the request are
// visible to later loads in the same request.
type CookieStore struct {
	codec  *securecookie.SecureCookie
	name   string
	maxAge int
	logger logrus.FieldLogger

	w       http.ResponseWriter
	r       *http.Request
	pending *types.Draft
	deleted bool
	written int
}

// NewCodec builds the securecookie codec drafts are written with. Length is
// checked by CookieStore per chunk, so the codec's own limit is off.
func NewCodec(hashKey, blockKey []byte) *securecookie.SecureCookie {
	sc := securecookie.New(hashKey, blockKey)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxLength(0)
	return sc
}

func NewCookieStore(codec *securecookie.SecureCookie, name string, maxAge int, w http.ResponseWriter, r *http.Request, logger logrus.FieldLogger) *CookieStore {
	return &CookieStore{codec: codec, name: name, maxAge: maxAge, logger: logger, w: w, r: r}
}

func (s *CookieStore) chunkName(i int) string {
	if i == 0 {
		return s.name
	}
	return s.name + "." + strconv.Itoa(i)
}

// Load returns the draft carried by the request. A draft that cannot be
// decoded, for example after a key rotation, is expired and reported as
// missing.
func (s *CookieStore) Load(_ context.Context) (*types.Draft, error) {
	if s.deleted {
		return nil, types.ErrDraftNotFound
	}
	if s.pending != nil {
		d := *s.pending
		return &d, nil
	}

	var value strings.Builder
	for i := 0; i < maxCookieChunks; i++ {
		cookie, err := s.r.Cookie(s.chunkName(i))
		if err != nil {
			break
		}
		value.WriteString(cookie.Value)
	}
	if value.Len() == 0 {
		return nil, types.ErrDraftNotFound
	}

	var draft = new(types.Draft)
	if err := s.codec.Decode(s.name, value.String(), draft); err != nil {
		s.logger.WithError(err).Debug("discarding unreadable draft cookie")
		s.expire(0)
		s.deleted = true
		return nil, types.ErrDraftNotFound
	}

	return draft, nil
}

func (s *CookieStore) Save(_ context.Context, d *types.Draft) error {
	encoded, err := s.codec.Encode(s.name, d)
	if err != nil {
		return fmt.Errorf("failed to encode draft cookie: %w", err)
	}
	if len(encoded) > cookieChunkSize*maxCookieChunks {
		return fmt.Errorf("%w: %d bytes encoded", types.ErrDraftTooLarge, len(encoded))
	}

	n := 0
	for start := 0; start < len(encoded); start += cookieChunkSize {
		end := min(start+cookieChunkSize, len(encoded))
		s.setCookie(s.chunkName(n), encoded[start:end], s.maxAge)
		n++
	}
	s.expire(n)

	s.written = n
	s.pending = d
	s.deleted = false
	return nil
}

func (s *CookieStore) Delete(_ context.Context) error {
	s.expire(0)

	s.written = 0
	s.pending = nil
	s.deleted = true
	return nil
}

// expire clears chunks from index from onwards that the client holds or
// that were written earlier in this request.
func (s *CookieStore) expire(from int) {
	for i := from; i < maxCookieChunks; i++ {
		name := s.chunkName(i)
		if _, err := s.r.Cookie(name); err != nil && i >= s.written {
			continue
		}
		s.setCookie(name, "", -1)
	}
}

func (s *CookieStore) setCookie(name, value string, maxAge int) {
	http.SetCookie(s.w, &http.Cookie{
		Name:     name,
		Value:    value,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
		Path:     "/",
	})
}
